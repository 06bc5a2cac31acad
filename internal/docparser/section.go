package docparser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// sectionKind enumerates the four recognized "## Name" section headers.
type sectionKind string

const (
	sectionPresident  sectionKind = "president"
	sectionVoyage     sectionKind = "voyage"
	sectionPassengers sectionKind = "passengers"
	sectionMedia      sectionKind = "media"
)

func parseSectionKind(title string) (sectionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(title)) {
	case "president":
		return sectionPresident, true
	case "voyage":
		return sectionVoyage, true
	case "passengers":
		return sectionPassengers, true
	case "media":
		return sectionMedia, true
	default:
		return "", false
	}
}

// rawSection is one "## Name" heading plus the raw body text between it
// and the next level-2 heading (or end of document).
type rawSection struct {
	kind sectionKind
	body string
}

// splitSections walks the document's Markdown AST and slices it into
// ordered level-2 sections. Using goldmark rather than a bare line scan
// means "## " lines inside code fences are not mistaken for section
// boundaries. The walk does descend into block quotes and list items, so
// a level-2 heading nested there still starts a section.
func splitSections(source []byte) []rawSection {
	reader := text.NewReader(source)
	doc := goldmark.DefaultParser().Parse(reader)

	type headingPos struct {
		kind      sectionKind
		bodyStart int
	}
	var headings []headingPos

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 {
			return ast.WalkContinue, nil
		}
		title := headingText(h, source)
		kind, ok := parseSectionKind(title)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		seg := lines.At(lines.Len() - 1)
		bodyStart := nextLineStart(source, seg.Stop)
		headings = append(headings, headingPos{kind: kind, bodyStart: bodyStart})
		return ast.WalkContinue, nil
	})

	sections := make([]rawSection, 0, len(headings))
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = sectionEnd(source, headings[i+1].bodyStart)
		}
		body := ""
		if h.bodyStart < end {
			body = string(source[h.bodyStart:end])
		}
		sections = append(sections, rawSection{kind: h.kind, body: body})
	}
	return sections
}

// headingText reconstructs the plain-text content of a heading by
// concatenating its text children, ignoring inline markup.
func headingText(h *ast.Heading, source []byte) string {
	var sb strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(source))
		}
	}
	return sb.String()
}

// nextLineStart returns the byte offset of the start of the line
// following the one containing offset off.
func nextLineStart(source []byte, off int) int {
	for i := off; i < len(source); i++ {
		if source[i] == '\n' {
			return i + 1
		}
	}
	return len(source)
}

// sectionEnd returns the start of the next heading's marker line,
// i.e. just before any blank-line/"## " prefix preceding bodyStart. Since
// headings are always preceded by their own "## " marker on the same
// line as bodyStart's predecessor, walking back to the start of that
// marker line gives the exclusive end of the previous section's body.
func sectionEnd(source []byte, nextBodyStart int) int {
	// Find the start of the heading-marker line that precedes nextBodyStart.
	i := nextBodyStart - 1
	if i < 0 {
		return 0
	}
	// Walk back over the heading's own line.
	lineStart := i
	for lineStart > 0 && source[lineStart-1] != '\n' {
		lineStart--
	}
	return lineStart
}
