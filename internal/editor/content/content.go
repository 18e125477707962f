// Package content reads and builds the block-tree JSON the rich-text editor
// stores as a post body: {"root":{"type":"root","children":[...]}}, where
// block nodes (paragraphs, headings, list items) hold inline "text" nodes.
package content

import (
	"encoding/json"
	"strings"
)

type node struct {
	Type     string  `json:"type"`
	Text     string  `json:"text,omitempty"`
	Version  int     `json:"version"`
	Children []*node `json:"children,omitempty"`
}

type document struct {
	Root *node `json:"root"`
}

// Empty returns a document with no blocks.
func Empty() json.RawMessage {
	raw, _ := json.Marshal(document{Root: &node{Type: "root", Version: 1, Children: []*node{}}})
	return raw
}

// Paragraphs builds a document with one paragraph per line of text.
func Paragraphs(text string) json.RawMessage {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return Empty()
	}
	lines := strings.Split(text, "\n")
	blocks := make([]*node, 0, len(lines))
	for _, line := range lines {
		p := &node{Type: "paragraph", Version: 1}
		if line != "" {
			p.Children = []*node{{Type: "text", Text: line, Version: 1}}
		}
		blocks = append(blocks, p)
	}
	raw, _ := json.Marshal(document{Root: &node{Type: "root", Version: 1, Children: blocks}})
	return raw
}

// PlainText flattens the document into text, one line per top-level block.
// Unreadable payloads yield "".
func PlainText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Root == nil {
		return ""
	}
	lines := make([]string, 0, len(doc.Root.Children))
	for _, block := range doc.Root.Children {
		var sb strings.Builder
		inlineText(block, &sb)
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}

func inlineText(n *node, sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.Text != "" {
		sb.WriteString(n.Text)
	}
	if n.Type == "linebreak" {
		sb.WriteString("\n")
	}
	for _, child := range n.Children {
		inlineText(child, sb)
	}
}

// Snippet returns up to limit runes of the text on a single line, with "..."
// appended when truncated.
func Snippet(raw json.RawMessage, limit int) string {
	res := strings.Join(strings.Fields(PlainText(raw)), " ")
	runes := []rune(res)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return res
}
