package profiler

import (
	"html"
	"regexp"
	"strings"
)

// Segment is one well-formed tagged element extracted from provider
// output.
type Segment struct {
	Tag   string
	Attrs map[string]string
	Text  string
}

// Attr returns an attribute value, empty when absent.
func (s Segment) Attr(name string) string {
	return s.Attrs[name]
}

var attrRegex = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)="([^"]*)"`)

// ExtractSegments scans text for complete <tag ...>...</tag> elements.
// Surrounding prose is ignored. An opening tag that never closes, or
// that runs into another opening of the same tag, is malformed and
// skipped on its own; later siblings still parse. Matching is
// non-greedy: each segment ends at the first closing tag.
func ExtractSegments(text, tag string) []Segment {
	openMark := "<" + tag
	closeMark := "</" + tag + ">"

	var segments []Segment
	pos := 0
	for {
		openStart := indexTagOpen(text, openMark, pos)
		if openStart < 0 {
			break
		}

		openEnd := strings.Index(text[openStart:], ">")
		if openEnd < 0 {
			break // tag never finishes opening
		}
		openEnd += openStart

		closeStart := strings.Index(text[openEnd:], closeMark)
		nextOpen := indexTagOpen(text, openMark, openEnd)

		if closeStart < 0 {
			break // unclosed; nothing complete remains
		}
		closeStart += openEnd

		if nextOpen >= 0 && nextOpen < closeStart {
			// Another opening before our close: this element is
			// malformed. Skip it alone and resume at the inner one.
			pos = nextOpen
			continue
		}

		rawAttrs := text[openStart+len(openMark) : openEnd]
		segments = append(segments, Segment{
			Tag:   tag,
			Attrs: parseAttrs(rawAttrs),
			Text:  html.UnescapeString(strings.TrimSpace(text[openEnd+1 : closeStart])),
		})
		pos = closeStart + len(closeMark)
	}

	return segments
}

// ExtractFirst returns the inner text of the first complete <tag>
// element, reporting whether one was found.
func ExtractFirst(text, tag string) (string, bool) {
	segments := ExtractSegments(text, tag)
	if len(segments) == 0 {
		return "", false
	}
	return segments[0].Text, true
}

// ExtractOrWhole returns the first <tag> element's inner text. When no
// element matches but the text is non-empty, the whole trimmed text is
// returned with fellBack=true so the caller can log the degraded parse
// instead of failing the cell. Empty input yields ("", false).
func ExtractOrWhole(text, tag string) (content string, fellBack bool) {
	if inner, ok := ExtractFirst(text, tag); ok {
		return inner, false
	}

	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

// indexTagOpen finds the next opening of tag at or after pos, requiring
// a word boundary so <profile> never matches <profiles>.
func indexTagOpen(text, openMark string, pos int) int {
	for {
		idx := strings.Index(text[pos:], openMark)
		if idx < 0 {
			return -1
		}
		idx += pos

		boundary := idx + len(openMark)
		if boundary >= len(text) {
			return -1
		}
		switch text[boundary] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return idx
		}
		pos = idx + len(openMark)
	}
}

func parseAttrs(raw string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range attrRegex.FindAllStringSubmatch(raw, -1) {
		attrs[match[1]] = match[2]
	}
	return attrs
}
