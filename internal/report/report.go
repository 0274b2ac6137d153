// Package report renders analysis results for humans and machines.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/phobologic/dupcheck/internal/model"
)

// Format selects the output encoding.
type Format string

const (
	Text Format = "text"
	TOON Format = "toon"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, TOON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or toon)", s)
	}
}

// Write renders res to w. Text output is styled only when w is a terminal.
func Write(w io.Writer, res *model.Result, format Format) error {
	if format == TOON {
		return writeTOON(w, res)
	}
	return writeText(w, res, newStyles(lipgloss.NewRenderer(w)))
}

func writeText(w io.Writer, res *model.Result, st styles) error {
	var b strings.Builder

	if res.MethodsChecked {
		if len(res.MethodDuplicates) == 0 {
			fmt.Fprintln(&b, st.ok.Render("[OK]")+" No duplicated methods found.")
		}
		for _, d := range res.MethodDuplicates {
			fmt.Fprintf(&b, "%s Method '%s' is duplicated in model '%s' (module '%s')\n",
				st.err.Render("[ERROR]"), d.Method, d.Model, d.Module)
			fmt.Fprintf(&b, "   -> First defined in: %s (%s)\n", d.Original.Class, st.link.Render(d.Original.URI()))
			fmt.Fprintf(&b, "   -> Duplicated in   : %s (%s)\n\n", d.Duplicate.Class, st.link.Render(d.Duplicate.URI()))
		}
	}

	if res.RecordsChecked {
		if len(res.RecordDuplicates) == 0 {
			fmt.Fprintln(&b, st.ok.Render("[OK]")+" No duplicate IDs found among declared files.")
		}
		for _, d := range res.RecordDuplicates {
			fmt.Fprintf(&b, "%s Duplicate ID '%s' found in module '%s' in declared files:\n",
				st.err.Render("[ERROR]"), d.ID, d.Module)
			for _, loc := range d.Occurrences {
				fmt.Fprintf(&b, "   -> %s\n", st.link.Render(loc.URI()))
			}
			b.WriteString("\n")
		}
	}

	if n := len(res.MethodDuplicates) + len(res.RecordDuplicates); n > 0 {
		fmt.Fprintf(&b, "%s %d conflict(s) found.\n", st.err.Render("[FAIL]"), n)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
