// Package names turns verbose Census labels into identifiers usable as column names.
package names

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SegmentDelimiter separates the levels of a Census variable label
const SegmentDelimiter = "!!"

// tokenTrim is stripped from both ends of every token
const tokenTrim = ",:"

// Clean condenses a label such as "Estimate!!Total:!!Male:!!5 to 9 years"
// into "Estimate_Total_Male_5To9Years". Group descriptions have no
// delimiter and clean to a single segment.
func Clean(label string) string {
	// a Caser keeps state between calls and is not safe for concurrent use
	caser := cases.Title(language.English)

	segments := strings.Split(label, SegmentDelimiter)
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(cleanSegment(caser, seg))
	}
	return b.String()
}

func cleanSegment(caser cases.Caser, seg string) string {
	seg = strings.Trim(seg, tokenTrim+" \t")

	var b strings.Builder
	for _, tok := range strings.Fields(seg) {
		tok = strings.Trim(tok, tokenTrim)
		if tok == "" {
			continue
		}
		b.WriteString(caser.String(tok))
	}
	return b.String()
}
