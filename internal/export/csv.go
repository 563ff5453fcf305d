// Package export serializes screening results for download or spreadsheets.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cv-screener/internal/screening"
)

// ErrNothingToExport is a notice, not a failure: there were no rows.
var ErrNothingToExport = errors.New("nothing to export")

// Header is the fixed column order.
var Header = []string{"Candidate", "Score", "Matched", "Missing", "Recommendation", "Shortlisted"}

const (
	tokenSeparator = " | "
	lineSeparator  = "\n"
)

// Row renders one result as the exported column values.
func Row(r screening.MatchResult) []string {
	shortlisted := "No"
	if r.Shortlisted {
		shortlisted = "Yes"
	}
	return []string{
		r.Candidate,
		strconv.Itoa(r.Score) + "%",
		strings.Join(r.Matched, tokenSeparator),
		strings.Join(r.Missing, tokenSeparator),
		string(r.Recommendation),
		shortlisted,
	}
}

// CSV renders the header plus one line per result, in the given order. Lines are
// separated by "\n" with no trailing newline. A field is quoted only when it
// contains a comma, a double quote or a newline.
func CSV(rows []screening.MatchResult) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNothingToExport
	}

	var sb strings.Builder
	writeRecord(&sb, Header)
	for _, r := range rows {
		sb.WriteString(lineSeparator)
		writeRecord(&sb, Row(r))
	}
	return []byte(sb.String()), nil
}

func writeRecord(sb *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(quoteField(field))
	}
}

func quoteField(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// FileName follows the <prefix>_all.csv / <prefix>_shortlisted.csv convention.
func FileName(prefix string, mode screening.ViewMode) string {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	if mode == "" {
		mode = screening.ViewAll
	}
	return fmt.Sprintf("%s_%s.csv", prefix, mode)
}

const DefaultFilePrefix = "candidates"
