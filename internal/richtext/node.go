// Package richtext converts source markup into a structured document tree of
// tagged block and inline nodes. Conversion never fails: malformed markup
// degrades to a single plain-text paragraph.
package richtext

import (
	"encoding/json"

	"github.com/MikeSquared-Agency/portage/internal/links"
)

// Kind enumerates the node types of the document tree.
type Kind int

const (
	KindDoc Kind = iota
	KindParagraph
	KindHeading
	KindBulletList
	KindOrderedList
	KindListItem
	KindQuote
	KindImage
	KindText
	KindHardBreak
	KindCodeBlock
	KindRule
)

func (k Kind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindBulletList:
		return "bullet_list"
	case KindOrderedList:
		return "ordered_list"
	case KindListItem:
		return "list_item"
	case KindQuote:
		return "blockquote"
	case KindImage:
		return "image"
	case KindText:
		return "text"
	case KindHardBreak:
		return "hard_break"
	case KindCodeBlock:
		return "code_block"
	case KindRule:
		return "horizontal_rule"
	default:
		return "unknown"
	}
}

// Node is one node of the document tree. Text nodes carry their marks
// inline; image nodes carry src/alt; heading nodes carry a level. Links on
// text nodes are attached as shared descriptors so the reference patch pass
// reaches into already-built documents.
type Node struct {
	Kind     Kind
	Text     string
	Level    int
	Src      string
	Alt      string
	Href     string
	Link     *links.Descriptor
	Bold     bool
	Italic   bool
	Children []*Node
}

// MarshalJSON emits the wire shape of the document tree.
func (n *Node) MarshalJSON() ([]byte, error) {
	type mark struct {
		Type string            `json:"type"`
		Link *links.Descriptor `json:"link,omitempty"`
	}
	type wire struct {
		Type    string  `json:"type"`
		Text    string  `json:"text,omitempty"`
		Level   int     `json:"level,omitempty"`
		Src     string  `json:"src,omitempty"`
		Alt     string  `json:"alt,omitempty"`
		Marks   []mark  `json:"marks,omitempty"`
		Content []*Node `json:"content,omitempty"`
	}
	w := wire{
		Type:    n.Kind.String(),
		Text:    n.Text,
		Level:   n.Level,
		Src:     n.Src,
		Alt:     n.Alt,
		Content: n.Children,
	}
	if n.Bold {
		w.Marks = append(w.Marks, mark{Type: "bold"})
	}
	if n.Italic {
		w.Marks = append(w.Marks, mark{Type: "italic"})
	}
	if n.Link != nil {
		w.Marks = append(w.Marks, mark{Type: "link", Link: n.Link})
	}
	return json.Marshal(w)
}

// Walk visits n and its children depth-first, pre-order. The visitor returns
// false to skip a node's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// PlainText collects the text content of a subtree.
func PlainText(n *Node) string {
	var out []byte
	Walk(n, func(c *Node) bool {
		if c.Kind == KindText {
			out = append(out, c.Text...)
		}
		return true
	})
	return string(out)
}
