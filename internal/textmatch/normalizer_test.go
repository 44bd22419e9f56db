// internal/textmatch/normalizer_test.go
package textmatch

import (
	"testing"
)

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		input    string
		expected string
	}{
		{
			name:     "collapse whitespace",
			opts:     Options{CollapseWhitespace: true},
			input:    "  Share   your\n\tID:  ",
			expected: "Share your ID:",
		},
		{
			name:     "case folding",
			opts:     Options{CaseInsensitive: true},
			input:    "Create Room",
			expected: "create room",
		},
		{
			name:     "nfc normalization",
			opts:     Options{UnicodeNormalize: true},
			input:    "Créer", // e + combining acute
			expected: "Créer",
		},
		{
			name:     "all transforms",
			opts:     Options{CaseInsensitive: true, CollapseWhitespace: true, UnicodeNormalize: true},
			input:    "  CRÉER   une  Salle ",
			expected: "créer une salle",
		},
		{
			name:     "no transforms",
			opts:     Options{},
			input:    "  As   Is  ",
			expected: "  As   Is  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.opts)
			if got := n.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_Equals(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	if !n.Equals("Create  Room", "Create Room") {
		t.Error("whitespace differences should not break equality")
	}
	if n.Equals("Create Room", "create room") {
		t.Error("default options are case sensitive")
	}

	folded := NewNormalizer(Options{CaseInsensitive: true, CollapseWhitespace: true})
	if !folded.Equals("CREATE ROOM", "create  room") {
		t.Error("case-insensitive options should fold case")
	}
}

func TestNormalizer_Contains(t *testing.T) {
	n := NewNormalizer(DefaultOptions())

	page := "Room created!\nShare your ID:   a1b2c3\nWaiting for peers..."
	if !n.Contains(page, "Share your ID:") {
		t.Error("Contains should find the confirmation fragment")
	}
	if n.Contains(page, "Share your id:") {
		t.Error("default options are case sensitive")
	}
	if n.Contains(page, "Delete Room") {
		t.Error("Contains should not match absent text")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.CaseInsensitive {
		t.Error("default matching should be case sensitive")
	}
	if !opts.CollapseWhitespace {
		t.Error("default matching should collapse whitespace")
	}
	if !opts.UnicodeNormalize {
		t.Error("default matching should normalize to NFC")
	}
}
