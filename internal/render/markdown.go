// Package render converts report markdown to HTML for the page.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders GitHub flavoured markdown. Raw HTML and dangerous link
// schemes in the source are omitted.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Markdown returns the HTML for src. An empty report renders as "".
func Markdown(src string) (string, error) {
	src = stripFence(src)
	if src == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// stripFence removes a code fence wrapping the whole reply, which some
// models add around markdown output. A reply holding any other fence line
// is left alone.
func stripFence(src string) string {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(s[3:], "```")
	// drop the info string (e.g. "markdown") on the opening line
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		inner = inner[nl+1:]
	} else {
		return s
	}
	for _, line := range strings.Split(inner, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			return s
		}
	}
	return strings.TrimSpace(inner)
}
