package mail

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]+`)
)

// HTMLToText reduces an HTML email body to readable plain text.
// Invalid markup falls back to the raw input.
func HTMLToText(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return strings.TrimSpace(content)
	}
	var sb strings.Builder
	writeText(doc, &sb, 0)
	return cleanText(sb.String())
}

func writeText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 100 {
		return
	}

	switch n.Type {
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "noscript":
			return
		case "br":
			sb.WriteString("\n")
		case "p", "div", "table", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			sb.WriteString("\n\n")
		case "li":
			sb.WriteString("\n- ")
		case "td", "th":
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "table", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			sb.WriteString("\n")
		}
	}
}

func cleanText(s string) string {
	s = multiSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
