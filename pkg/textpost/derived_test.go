package textpost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthClassOf(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		expected LengthClass
	}{
		{name: "empty", length: 0, expected: LengthClassXS},
		{name: "just below s", length: 34, expected: LengthClassXS},
		{name: "s lower bound", length: 35, expected: LengthClassS},
		{name: "s upper bound", length: 70, expected: LengthClassS},
		{name: "m lower bound", length: 71, expected: LengthClassM},
		{name: "m upper bound", length: 140, expected: LengthClassM},
		{name: "l lower bound", length: 141, expected: LengthClassL},
		{name: "long", length: 5000, expected: LengthClassL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LengthClassOf(strings.Repeat("a", tt.length)))
		})
	}
}

func TestLengthClassOf_CountsCharacters(t *testing.T) {
	// 34 characters, 68 bytes
	body := strings.Repeat("é", 34)
	assert.Equal(t, LengthClassXS, LengthClassOf(body))
}

func TestLengthClassOf_CountsMarkup(t *testing.T) {
	// 30 characters of text wrapped in 7 characters of markup
	body := "<p>" + strings.Repeat("a", 30) + "</p>"
	assert.Equal(t, LengthClassS, LengthClassOf(body))
}

func TestPostDerivedFields(t *testing.T) {
	p := &Post{Body: strings.Repeat("a", 100)}
	assert.Equal(t, LengthClassM, p.LengthClass())
	assert.False(t, p.WasEdited())

	p.EditCount = 1
	assert.True(t, p.WasEdited())
}

func TestNewPostView(t *testing.T) {
	p := &Post{Body: "short", EditCount: 2, SilentEdit: true}
	view := NewPostView(p)

	assert.Equal(t, LengthClassXS, view.LengthClass)
	assert.True(t, view.WasEdited)
	assert.False(t, view.SilentEdit)
	assert.True(t, p.SilentEdit, "the source post is not modified")
}
