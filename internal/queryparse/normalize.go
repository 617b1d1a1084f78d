package queryparse

import (
	"regexp"
	"strings"
)

const monthPattern = `jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec|january|february|march|april|june|july|august|september|october|november|december`

var (
	dashReplacer = strings.NewReplacer("—", "-", "–", "-", "−", "-")
	whitespaceRe = regexp.MustCompile(`\s+`)
	betweenRe    = regexp.MustCompile(`(?i)\bbetween\s+(\S.*?)\s+and\s+(\S.*?)\b`)
	rangeWordRe  = regexp.MustCompile(`(?i)\b(upto|through|till|until)\b`)
	shortYearRe  = regexp.MustCompile(`(?i)\b(` + monthPattern + `)\s*[-']\s*(\d{2})\b`)
)

// Normalize canonicalizes user input before any pattern matching runs:
// dash variants collapse to a hyphen, whitespace runs collapse to one space,
// "between A and B" becomes "A to B", upto/through/till/until become "to",
// and two-digit-year month abbreviations ("Nov-24") expand to "Nov 2024".
// Normalize is idempotent.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	s = dashReplacer.Replace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = betweenRe.ReplaceAllString(s, "${1} to ${2}")
	s = rangeWordRe.ReplaceAllString(s, "to")
	s = shortYearRe.ReplaceAllString(s, "${1} 20${2}")
	return s
}
