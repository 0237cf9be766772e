package textpost

import "unicode/utf8"

// Length class thresholds, in characters of the raw body.
const (
	lengthClassSMin = 35
	lengthClassSMax = 70
	lengthClassMMax = 140
)

// LengthClassOf classifies a body by its raw character count. Markup is
// counted as-is.
func LengthClassOf(body string) LengthClass {
	n := utf8.RuneCountInString(body)
	switch {
	case n < lengthClassSMin:
		return LengthClassXS
	case n <= lengthClassSMax:
		return LengthClassS
	case n <= lengthClassMMax:
		return LengthClassM
	default:
		return LengthClassL
	}
}

// LengthClass returns the length class of the current body.
func (p *Post) LengthClass() LengthClass {
	return LengthClassOf(p.Body)
}

// WasEdited reports whether the post has at least one tracked edit.
func (p *Post) WasEdited() bool {
	return p.EditCount > 0
}
