package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/phobologic/dupcheck/internal/model"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// EncodeTOON renders a result in TOON (Token-Oriented Object Notation).
func EncodeTOON(res *model.Result) string {
	var parts []string

	status := "ok"
	if res.HasConflicts() {
		status = "conflicts"
	}
	parts = append(parts, fmt.Sprintf("status: %s", encodeValue(status)))

	if res.MethodsChecked {
		var rows [][]string
		for i := range res.MethodDuplicates {
			d := &res.MethodDuplicates[i]
			rows = append(rows, []string{
				d.Module,
				d.Model,
				d.Method,
				d.Original.Class,
				d.Original.URI(),
				d.Duplicate.Class,
				d.Duplicate.URI(),
			})
		}
		parts = append(parts, formatTabular("methods",
			[]string{"module", "model", "method", "original_class", "original", "duplicate_class", "duplicate"}, rows))
	}

	if res.RecordsChecked {
		var rows [][]string
		for i := range res.RecordDuplicates {
			d := &res.RecordDuplicates[i]
			locs := make([]string, len(d.Occurrences))
			for j, l := range d.Occurrences {
				locs[j] = l.URI()
			}
			rows = append(rows, []string{d.Module, d.ID, strings.Join(locs, " ")})
		}
		parts = append(parts, formatTabular("ids", []string{"module", "id", "locations"}, rows))
	}

	if len(res.Diagnostics) > 0 {
		var rows [][]string
		for i := range res.Diagnostics {
			d := &res.Diagnostics[i]
			rows = append(rows, []string{string(d.Kind), d.URI(), d.Message})
		}
		parts = append(parts, formatTabular("diagnostics", []string{"kind", "location", "message"}, rows))
	}

	return strings.Join(parts, "\n")
}

func writeTOON(w io.Writer, res *model.Result) error {
	_, err := fmt.Fprintln(w, EncodeTOON(res))
	return err
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
