package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wusb-radio/textpost/internal/reconcile"
	"github.com/wusb-radio/textpost/pkg/textpost"
	"github.com/wusb-radio/textpost/pkg/textpost/admin"
	"github.com/wusb-radio/textpost/pkg/textpost/config"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long:  `Apply pending migrations to the configured postgres or sqlite database. The memory backend needs none.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, comps, err := loadComponents(cmd, config.WithAutoMigrate(true))
			if err != nil {
				return err
			}
			defer comps.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", cfg.DatabaseType)
			return nil
		},
	}
}

// NewReconcileCommand creates the reconcile command
func NewReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Clear silent edit flags left behind by failed writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, comps, err := loadComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			n, err := reconcile.New(comps.Service, "", nil).RunOnce(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reconciled %d post(s)\n", n)
			return nil
		},
	}
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var authorID string
	var published bool
	var drafts bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, published first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if published && drafts {
				return errors.New("--published and --drafts are mutually exclusive")
			}
			req := textpost.ListPostsRequest{PublishedOnly: published, DraftsOnly: drafts}
			if authorID != "" {
				id, err := uuid.Parse(authorID)
				if err != nil {
					return fmt.Errorf("invalid author id: %w", err)
				}
				req.AuthorID = &id
			}

			_, comps, err := loadComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			posts, err := comps.Service.ListPosts(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tSTATUS\tLENGTH\tEDITS\tPUBLISHED")
			for _, p := range posts {
				status := "draft"
				if p.IsPublished {
					status = "published"
				}
				publishedAt := "-"
				if p.PublishedAt != nil {
					publishedAt = p.PublishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Slug, status, p.LengthClass, p.EditCount, publishedAt)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&authorID, "author", "", "only posts by this author id")
	cmd.Flags().BoolVar(&published, "published", false, "only published posts")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "only drafts")

	return cmd
}

// seedPosts is sample content for local development.
var seedPosts = []struct {
	title     string
	body      string
	published bool
}{
	{"Fall Fund Drive", "Pledge week starts Monday. Call in!", true},
	{"New Late Night Schedule", "Starting next month the overnight block moves to 1am, with three new shows joining the rotation on weekends.", true},
	{"Record Fair Volunteers", "We need six volunteers to staff the record fair table on Saturday afternoon. Sign up at the front desk.", false},
	{"Studio B Closed", "Studio B is closed for repairs until further notice. Please book Studio A for pre-records, and talk to engineering before moving any gear between rooms. Thanks for your patience.", false},
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	var authorID string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample posts (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			author := uuid.New()
			if authorID != "" {
				id, err := uuid.Parse(authorID)
				if err != nil {
					return fmt.Errorf("invalid author id: %w", err)
				}
				author = id
			}

			cfg, comps, err := loadComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			if !cfg.IsDevelopment() {
				return fmt.Errorf("seed refuses to run in %q environment", cfg.Environment)
			}

			for _, s := range seedPosts {
				post, err := comps.Service.CreatePost(cmd.Context(), textpost.CreatePostRequest{
					Title:       s.title,
					AuthorID:    author,
					Body:        s.body,
					IsPublished: s.published,
				})
				if err != nil {
					return fmt.Errorf("seeding %q: %w", s.title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", post.Slug, post.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&authorID, "author", "", "author id for the sample posts (random when empty)")

	return cmd
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	var authorID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print post statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []admin.FilterOption
			if authorID != "" {
				id, err := uuid.Parse(authorID)
				if err != nil {
					return fmt.Errorf("invalid author id: %w", err)
				}
				opts = append(opts, admin.WithAuthorID(id))
			}

			_, comps, err := loadComponents(cmd)
			if err != nil {
				return err
			}
			defer comps.Close()

			resp, err := admin.New(comps.Repository).GetStatistics(cmd.Context(), admin.NewStatisticsRequest(opts...))
			if err != nil {
				return fmt.Errorf("stats failed: %w", err)
			}

			st := resp.Statistics
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:      %d\n", st.TotalCount)
			fmt.Fprintf(out, "Published:  %d\n", st.PublishedCount)
			fmt.Fprintf(out, "Drafts:     %d\n", st.DraftCount)
			fmt.Fprintf(out, "Edited:     %d (%d edits)\n", st.EditedCount, st.TotalEdits)
			fmt.Fprintf(out, "With image: %d\n", st.WithImageCount)
			if st.PendingSilentEdits != nil {
				fmt.Fprintf(out, "Pending silent edits: %d\n", *st.PendingSilentEdits)
			}
			if len(st.ByLengthClass) > 0 {
				fmt.Fprintf(out, "By length:  %s\n", formatCounts(st.ByLengthClass))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&authorID, "author", "", "only posts by this author id")

	return cmd
}

func formatCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
