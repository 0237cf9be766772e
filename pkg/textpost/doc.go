// Package textpost provides the publish/edit lifecycle for the text posts
// shown on the station site, with pluggable repository, blob storage and
// audit backends.
//
// It exposes a single Service interface with two write entry points: a
// full-document commit (SavePost) and a partial/bulk update (BulkUpdate).
// Both run the same pure transition function (ApplyWriteTransition) against
// the previously persisted state before writing. Repositories (memory,
// Postgres, SQLite) and blob stores (memory, filesystem, S3) are provided
// under subpackages.
//
// Lifecycle Fields
//
// PublishedAt is stamped exactly once, the first time a write leaves the
// post published. LastEditedAt and EditCount track body edits to published
// posts made through SavePost. A privileged caller may mark one write as a
// silent edit; the flag is persisted only until the write commits and is
// then cleared and reported to the AuditSink.
//
// LengthClass and WasEdited are derived on every read and never stored.
package textpost
