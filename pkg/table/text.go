package table

import (
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Text renders the table as aligned plain text with a header row
func (t *Table) Text() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	w.Write([]byte(t.entityColumn))
	for _, c := range t.columns {
		w.Write([]byte("\t" + c))
	}
	w.Write([]byte("\n"))

	for _, e := range t.entities {
		w.Write([]byte(e))
		row := t.rows[e]
		for _, c := range t.columns {
			cell := row[c].String()
			if cell == "" {
				cell = "NaN"
			}
			w.Write([]byte("\t" + cell))
		}
		w.Write([]byte("\n"))
	}
	w.Flush()
	return b.String()
}

// Chunks splits Text into pieces of at most size bytes. Cuts fall on rune
// boundaries; a single rune wider than size becomes its own chunk.
func (t *Table) Chunks(size int) []string {
	text := t.Text()
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	var out []string
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}
		out = append(out, text[start:end])
		start = end
	}
	return out
}
