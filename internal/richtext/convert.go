package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML converts source markup into a document tree. Source-platform-only
// attributes are dropped (only src, alt and href survive), wrapper elements
// are unwrapped, and captioned figures normalize to an image node followed by
// an emphasized caption paragraph. Any failure to produce a structured tree
// degrades to one plain-text paragraph holding the tag-stripped text. Never
// returns nil.
func FromHTML(src string) *Node {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return fallback(src)
	}

	body := findBody(root)
	if body == nil {
		return fallback(src)
	}

	doc := &Node{Kind: KindDoc}
	c := &converter{}
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		c.block(child, &doc.Children)
	}
	c.flushInline(&doc.Children)

	if len(doc.Children) == 0 {
		if text := StripTags(src); text != "" {
			return fallback(src)
		}
	}
	return doc
}

func fallback(src string) *Node {
	doc := &Node{Kind: KindDoc}
	text := StripTags(src)
	if text == "" {
		return doc
	}
	doc.Children = append(doc.Children, &Node{
		Kind:     KindParagraph,
		Children: []*Node{{Kind: KindText, Text: text}},
	})
	return doc
}

// converter accumulates loose inline content between block elements so bare
// text and inline tags at the top level still end up inside paragraphs.
type converter struct {
	inline       []*Node
	spacePending bool
}

type style struct {
	bold   bool
	italic bool
	href   string
}

func (c *converter) block(n *html.Node, out *[]*Node) {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data, style{})
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.P:
		c.flushInline(out)
		c.inlineChildren(n, style{})
		c.flushInline(out)

	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.flushInline(out)
		level := int(n.Data[1] - '0')
		runs := c.collectInline(n, style{})
		runs, images := splitImages(runs)
		if len(runs) > 0 {
			*out = append(*out, &Node{Kind: KindHeading, Level: level, Children: runs})
		}
		*out = append(*out, images...)

	case atom.Ul, atom.Ol:
		c.flushInline(out)
		kind := KindBulletList
		if n.DataAtom == atom.Ol {
			kind = KindOrderedList
		}
		list := &Node{Kind: kind}
		for li := n.FirstChild; li != nil; li = li.NextSibling {
			if li.Type != html.ElementNode || li.DataAtom != atom.Li {
				continue
			}
			item := &Node{Kind: KindListItem}
			sub := &converter{}
			for grand := li.FirstChild; grand != nil; grand = grand.NextSibling {
				sub.block(grand, &item.Children)
			}
			sub.flushInline(&item.Children)
			if len(item.Children) > 0 {
				list.Children = append(list.Children, item)
			}
		}
		if len(list.Children) > 0 {
			*out = append(*out, list)
		}

	case atom.Blockquote:
		c.flushInline(out)
		quote := &Node{Kind: KindQuote}
		sub := &converter{}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			sub.block(child, &quote.Children)
		}
		sub.flushInline(&quote.Children)
		if len(quote.Children) > 0 {
			*out = append(*out, quote)
		}

	case atom.Figure:
		c.flushInline(out)
		c.figure(n, out)

	case atom.Img:
		c.flushInline(out)
		if img := imageNode(n); img != nil {
			*out = append(*out, img)
		}

	case atom.Pre:
		c.flushInline(out)
		if text := textContent(n); strings.TrimSpace(text) != "" {
			*out = append(*out, &Node{Kind: KindCodeBlock, Children: []*Node{{Kind: KindText, Text: strings.Trim(text, "\n")}}})
		}

	case atom.Hr:
		c.flushInline(out)
		*out = append(*out, &Node{Kind: KindRule})

	case atom.Script, atom.Style, atom.Iframe, atom.Noscript, atom.Form:
		// dropped entirely

	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer, atom.Aside, atom.Table, atom.Tbody, atom.Tr, atom.Td, atom.Th:
		// unwrap wrappers; table structure is not part of the target model
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			c.block(child, out)
		}

	default:
		// unknown element at block level: treat its content as inline
		c.inlineChildren(n, style{})
	}
}

func (c *converter) figure(n *html.Node, out *[]*Node) {
	var img *Node
	var caption string
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.ElementNode {
			switch h.DataAtom {
			case atom.Img:
				if img == nil {
					img = imageNode(h)
				}
				return
			case atom.Figcaption:
				caption = collapseSpace(textContent(h))
				return
			}
		}
		for child := h.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	if img == nil {
		c.inlineChildren(n, style{})
		return
	}
	*out = append(*out, img)
	if caption != "" {
		*out = append(*out, &Node{
			Kind:     KindParagraph,
			Children: []*Node{{Kind: KindText, Text: caption, Italic: true}},
		})
	}
}

func (c *converter) inlineChildren(n *html.Node, st style) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.inlineNode(child, st)
	}
}

func (c *converter) inlineNode(n *html.Node, st style) {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data, st)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		st.bold = true
		c.inlineChildren(n, st)
	case atom.Em, atom.I:
		st.italic = true
		c.inlineChildren(n, st)
	case atom.A:
		st.href = attr(n, "href")
		c.inlineChildren(n, st)
	case atom.Br:
		c.inline = append(c.inline, &Node{Kind: KindHardBreak})
	case atom.Img:
		if img := imageNode(n); img != nil {
			c.inline = append(c.inline, img)
		}
	case atom.Script, atom.Style:
	default:
		c.inlineChildren(n, st)
	}
}

func (c *converter) text(s string, st style) {
	collapsed := collapseSpace(s)
	if collapsed == "" {
		// whitespace-only run between two inline elements still separates them
		if s != "" && len(c.inline) > 0 {
			c.spacePending = true
		}
		return
	}
	// Keep a single separating space between adjacent runs when the source
	// had one, so "grind <b>matters</b>" does not collapse to "grindmatters".
	// The space attaches to whichever side is an unstyled run, keeping marks
	// tight around their own words.
	if len(c.inline) > 0 && (c.spacePending || leadingSpace(s)) {
		prev := c.inline[len(c.inline)-1]
		switch {
		case prev.Kind == KindText && plainRun(prev) && !strings.HasSuffix(prev.Text, " "):
			prev.Text += " "
		default:
			collapsed = " " + collapsed
		}
	}
	c.inline = append(c.inline, &Node{Kind: KindText, Text: collapsed, Bold: st.bold, Italic: st.italic, Href: st.href})
	c.spacePending = trailingSpace(s)
}

func leadingSpace(s string) bool {
	return s != "" && isSpace(s[0])
}

func trailingSpace(s string) bool {
	return s != "" && isSpace(s[len(s)-1])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func plainRun(n *Node) bool {
	return !n.Bold && !n.Italic && n.Href == ""
}

// collectInline converts an element's content to inline runs without touching
// the shared buffer.
func (c *converter) collectInline(n *html.Node, st style) []*Node {
	sub := &converter{}
	sub.inlineChildren(n, st)
	return sub.inline
}

// flushInline turns buffered inline runs into a paragraph, hoisting any
// images out as sibling block nodes.
func (c *converter) flushInline(out *[]*Node) {
	c.spacePending = false
	if len(c.inline) == 0 {
		return
	}
	runs, images := splitImages(c.inline)
	c.inline = nil
	if para := paragraph(runs); para != nil {
		*out = append(*out, para)
	}
	*out = append(*out, images...)
}

func paragraph(runs []*Node) *Node {
	if !hasContent(runs) {
		return nil
	}
	return &Node{Kind: KindParagraph, Children: runs}
}

func hasContent(runs []*Node) bool {
	for _, r := range runs {
		if r.Kind == KindText && strings.TrimSpace(r.Text) != "" {
			return true
		}
	}
	return false
}

func splitImages(runs []*Node) (inline, images []*Node) {
	for _, r := range runs {
		if r.Kind == KindImage {
			images = append(images, r)
			continue
		}
		inline = append(inline, r)
	}
	return inline, images
}

func imageNode(n *html.Node) *Node {
	src := attr(n, "src")
	if src == "" {
		return nil
	}
	return &Node{Kind: KindImage, Src: src, Alt: attr(n, "alt")}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.TextNode {
			b.WriteString(h.Data)
		}
		for child := h.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func findBody(root *html.Node) *html.Node {
	var body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return body
}

// StripTags returns the text content of markup with all tags removed and
// whitespace collapsed. Script and style bodies are dropped. Inline tags do
// not introduce separators, so "Grind <b>matters</b>." strips cleanly; block
// boundaries do, so adjacent paragraphs keep a space between them.
func StripTags(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch {
			case string(name) == "script" || string(name) == "style":
				if tt == html.StartTagToken {
					skip++
				}
			case inlineTag(name):
			default:
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch {
			case string(name) == "script" || string(name) == "style":
				if skip > 0 {
					skip--
				}
			case inlineTag(name):
			default:
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func inlineTag(name []byte) bool {
	switch string(name) {
	case "a", "abbr", "b", "code", "em", "i", "mark", "s", "small", "span", "strong", "sub", "sup", "u":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
