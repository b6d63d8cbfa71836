package util

import (
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC normalization so that visually identical user
// input (e.g. an email typed with composed vs decomposed characters)
// compares and transmits consistently.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}
