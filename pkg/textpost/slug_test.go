package textpost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple title", input: "Hello World", expected: "hello-world"},
		{name: "with special characters", input: "Hello, World!", expected: "hello-world"},
		{name: "with numbers", input: "Top 10 of 2026", expected: "top-10-of-2026"},
		{name: "with accents", input: "Café résumé", expected: "cafe-resume"},
		{name: "with multiple spaces", input: "Hello   World", expected: "hello-world"},
		{name: "with hyphens", input: "Hello - World", expected: "hello-world"},
		{name: "with leading/trailing spaces", input: "  Hello World  ", expected: "hello-world"},
		{name: "all special characters", input: "!@#$%^&*()", expected: ""},
		{name: "german umlauts", input: "Über München", expected: "uber-munchen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugify_Transliterates(t *testing.T) {
	got := Slugify("日本語")
	assert.NotEmpty(t, got)
	assert.Regexp(t, `^[a-z0-9-]+$`, got)
}

func TestSlugify_Truncates(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(got), maxSlugLength)
	assert.False(t, strings.HasSuffix(got, "-"))
}
