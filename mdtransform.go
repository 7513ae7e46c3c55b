package boltpage

import (
	"regexp"
	"strings"
)

// Precompiled regex patterns for performance.
var (
	// Line ending normalization
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Highlight syntax ==text==
	highlightPattern = regexp.MustCompile(`==(.*?)==`)

	// Fence opener (backticks or tildes, up to three spaces of indentation)
	// with an optional info string
	fenceOpen = regexp.MustCompile("^ {0,3}(```+|~~~+)\\s*(\\S*).*$")
)

// preprocessMarkdown applies source-level transformations before the
// Markdown grammar sees the content: line-ending normalization, ==text==
// highlight conversion outside code fences, and pretty-printing of valid
// json-tagged fences.
func preprocessMarkdown(content string) string {
	return transformLines(normalizeLineEndings(content))
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// convertHighlights transforms ==text== to <mark>text</mark>.
func convertHighlights(line string) string {
	return highlightPattern.ReplaceAllString(line, "<mark>$1</mark>")
}

// transformLines folds over the document line by line, carrying an explicit
// "inside code fence" flag plus an accumulator for the fence body. Fence
// content is never rewritten — no data loss — except that a json-tagged
// fence holding valid JSON is re-emitted pretty-printed.
func transformLines(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))

	var body []string
	var marker string
	prettyJSON := false

	for _, line := range lines {
		switch {
		case marker == "":
			if m := fenceOpen.FindStringSubmatch(line); m != nil {
				marker = m[1]
				prettyJSON = strings.EqualFold(m[2], "json")
				body = body[:0]
				out = append(out, line)
			} else {
				out = append(out, convertHighlights(line))
			}
		case closesFence(line, marker):
			out = append(out, flushFence(body, prettyJSON)...)
			out = append(out, line)
			marker = ""
		default:
			body = append(body, line)
		}
	}
	if marker != "" {
		// Unterminated fence passes through untouched.
		out = append(out, body...)
	}
	return strings.Join(out, "\n")
}

// closesFence reports whether line closes a fence opened by marker: the same
// fence character, at least as many of them, nothing else on the line, and at
// most three spaces of indentation.
func closesFence(line, marker string) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return false
	}
	trimmed = strings.TrimRight(trimmed, " \t")
	if len(trimmed) < len(marker) {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != marker[0] {
			return false
		}
	}
	return true
}

// flushFence returns the fence body, pretty-printed when it is valid JSON.
// Anything that fails to parse is preserved exactly.
func flushFence(body []string, prettyJSON bool) []string {
	if prettyJSON {
		if pretty, err := FormatJSON(strings.Join(body, "\n")); err == nil {
			return strings.Split(pretty, "\n")
		}
	}
	return body
}
