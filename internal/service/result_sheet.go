package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/noah-isme/college-portal-api/pkg/export"
)

// Canonical spreadsheet columns.
const (
	ColumnStudentName = "studentName"
	ColumnCourseTitle = "courseTitle"
	ColumnSemester    = "semester"
	ColumnMarks       = "marks"
)

var headerAliases = []struct {
	pattern *regexp.Regexp
	column  string
}{
	{regexp.MustCompile(`(?i)^student(name)?$`), ColumnStudentName},
	{regexp.MustCompile(`(?i)^course(name|title)?$`), ColumnCourseTitle},
	{regexp.MustCompile(`(?i)^semester$`), ColumnSemester},
	{regexp.MustCompile(`(?i)^marks$`), ColumnMarks},
}

// NormalizeHeader strips whitespace from a header and maps known aliases to
// the canonical column names. Unknown headers keep their collapsed form.
func NormalizeHeader(header string) string {
	collapsed := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, header)
	for _, alias := range headerAliases {
		if alias.pattern.MatchString(collapsed) {
			return alias.column
		}
	}
	return collapsed
}

// NormalizeRow rekeys a spreadsheet row by canonical column and trims values.
// Columns are applied left to right, so when two headers alias the same
// column the later one wins unless its cell is blank.
func NormalizeRow(raw export.SheetRow) map[string]string {
	out := make(map[string]string, len(raw))
	for _, cell := range raw {
		key := NormalizeHeader(cell.Header)
		value := strings.TrimSpace(cell.Value)
		if prev, ok := out[key]; ok && value == "" && prev != "" {
			continue
		}
		out[key] = value
	}
	return out
}

// GradeFor maps marks to a letter grade.
func GradeFor(marks float64) string {
	switch {
	case marks >= 90:
		return "A+"
	case marks >= 80:
		return "A"
	case marks >= 70:
		return "B+"
	case marks >= 60:
		return "B"
	case marks >= 50:
		return "C+"
	case marks >= 40:
		return "C"
	case marks >= 33:
		return "D"
	default:
		return "F"
	}
}

// parseSemester accepts whole numbers 1 through 8. Spreadsheet cells such as
// "3.0" are accepted when integral.
func parseSemester(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, false
		}
		n = int(f)
	}
	return n, n >= 1 && n <= 8
}

func parseMarks(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = roundMarks(f)
	return f, validMarks(f)
}

// roundMarks keeps two decimals, the precision marks are stored with, so the
// grade is computed from the stored value.
func roundMarks(m float64) float64 {
	return math.Round(m*100) / 100
}

func validMarks(m float64) bool {
	return m >= 0 && m <= 100
}
