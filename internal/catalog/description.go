package catalog

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips markup from a catalog description. Block-level elements
// and <br> become paragraph breaks; paragraphs are separated by a blank line.
// Script and style contents are dropped.
func PlainText(description string) string {
	if !strings.ContainsAny(description, "<&") {
		return strings.TrimSpace(description)
	}

	var (
		paragraphs []string
		current    strings.Builder
		skipDepth  int
	)
	flush := func() {
		text := strings.Join(strings.Fields(current.String()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	z := html.NewTokenizer(strings.NewReader(description))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return strings.Join(paragraphs, "\n\n")
		case html.TextToken:
			if skipDepth == 0 {
				current.Write(z.Text())
				current.WriteByte(' ')
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if a == atom.Script || a == atom.Style {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if isBreak(a) {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skipDepth > 0 {
				skipDepth--
				continue
			}
			if isBreak(a) {
				flush()
			}
		}
	}
}

// Paragraphs splits PlainText output for rendering.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isBreak(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Br, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}
