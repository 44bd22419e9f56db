// internal/textmatch/normalizer.go
package textmatch

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/UIVerifier/internal/utils"
)

// Options controls how expected text is compared against page text.
type Options struct {
	CaseInsensitive    bool `yaml:"case_insensitive,omitempty" json:"case_insensitive,omitempty"`
	CollapseWhitespace bool `yaml:"collapse_whitespace" json:"collapse_whitespace"`
	UnicodeNormalize   bool `yaml:"unicode_normalize" json:"unicode_normalize"`
}

// DefaultOptions returns the matching rules used by the built-in scenario:
// whitespace-normalized, NFC-normalized, case-sensitive.
func DefaultOptions() Options {
	return Options{
		CaseInsensitive:    false,
		CollapseWhitespace: true,
		UnicodeNormalize:   true,
	}
}

type transformFunc func(string) string

// Normalizer applies a fixed sequence of text transforms so that expected
// and actual text are compared under the same rules.
type Normalizer struct {
	opts  Options
	steps []transformFunc
}

// NewNormalizer builds a normalizer for the given options.
func NewNormalizer(opts Options) *Normalizer {
	n := &Normalizer{opts: opts}

	if opts.UnicodeNormalize {
		n.steps = append(n.steps, norm.NFC.String)
	}
	if opts.CollapseWhitespace {
		n.steps = append(n.steps, utils.NormalizeSpaces)
	}
	if opts.CaseInsensitive {
		folder := cases.Fold()
		n.steps = append(n.steps, folder.String)
	}

	return n
}

// Options returns the options the normalizer was built with.
func (n *Normalizer) Options() Options {
	return n.opts
}

// Normalize applies all transforms in sequence.
func (n *Normalizer) Normalize(s string) string {
	result := s
	for _, step := range n.steps {
		result = step(result)
	}
	return result
}

// Equals reports whether two strings match under the normalization rules.
func (n *Normalizer) Equals(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

// Contains reports whether haystack contains needle under the
// normalization rules.
func (n *Normalizer) Contains(haystack, needle string) bool {
	return strings.Contains(n.Normalize(haystack), n.Normalize(needle))
}
