package phone

import "strings"

const domesticPrefix = "61"

// Config holds the process-wide numbering settings for a run.
type Config struct {
	// CountryCode is prepended to every normalized number, e.g. "61".
	CountryCode string
	// MagicTestNumber is the national placeholder number used in test exports.
	MagicTestNumber string
	// TestNumber replaces the placeholder after normalization.
	TestNumber string
}

// Normalizer turns free-form phone strings into international digit strings.
type Normalizer struct {
	cfg Config
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Normalize strips non-digits, removes one leading zero and then a "61"
// prefix, and prepends the configured country code. It returns false only
// when the digits are exactly "0". Length and format are not validated.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	digits := stripNonDigits(raw)
	if digits == "0" {
		return "", false
	}

	digits = strings.TrimPrefix(digits, "0")
	digits = strings.TrimPrefix(digits, domesticPrefix)

	return n.cfg.CountryCode + digits, true
}

// Override swaps the normalized placeholder number for the configured test number.
func (n *Normalizer) Override(normalized string) string {
	if n.cfg.MagicTestNumber == "" || n.cfg.TestNumber == "" {
		return normalized
	}
	if normalized == n.cfg.CountryCode+n.cfg.MagicTestNumber {
		return n.cfg.TestNumber
	}
	return normalized
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if ch := s[i]; ch >= '0' && ch <= '9' {
			b.WriteByte(ch)
		}
	}
	return b.String()
}
