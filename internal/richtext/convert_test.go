package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTML_ParagraphAndImage(t *testing.T) {
	doc := FromHTML(`<p>Grind matters.</p><img src="https://ext.example/cup.jpg">`)

	require.Equal(t, KindDoc, doc.Kind)
	require.Len(t, doc.Children, 2)

	para := doc.Children[0]
	require.Equal(t, KindParagraph, para.Kind)
	require.Len(t, para.Children, 1)
	assert.Equal(t, "Grind matters.", para.Children[0].Text)

	img := doc.Children[1]
	assert.Equal(t, KindImage, img.Kind)
	assert.Equal(t, "https://ext.example/cup.jpg", img.Src)
}

func TestFromHTML_MalformedNeverEmpty(t *testing.T) {
	cases := []string{
		`<p>Unterminated <b>tag soup`,
		`<div><span>nested <p>wrong</span></div`,
		`just bare text, no tags at all`,
		`<ul><li>dangling`,
	}
	for _, src := range cases {
		doc := FromHTML(src)
		require.NotNil(t, doc, "source: %s", src)
		assert.NotEmpty(t, doc.Children, "source: %s", src)
		assert.NotEmpty(t, PlainText(doc), "source: %s", src)
	}
}

func TestFromHTML_EmptyInput(t *testing.T) {
	doc := FromHTML("")
	require.NotNil(t, doc)
	assert.Empty(t, doc.Children)
}

func TestFromHTML_FigureNormalizesToImagePlusCaption(t *testing.T) {
	doc := FromHTML(`<figure class="wp-block-image size-large">
		<img src="/img/roast.jpg" alt="Roast levels" srcset="a 1x, b 2x" loading="lazy">
		<figcaption>Light to dark.</figcaption>
	</figure>`)

	require.Len(t, doc.Children, 2)
	img := doc.Children[0]
	require.Equal(t, KindImage, img.Kind)
	assert.Equal(t, "/img/roast.jpg", img.Src)
	assert.Equal(t, "Roast levels", img.Alt)

	caption := doc.Children[1]
	require.Equal(t, KindParagraph, caption.Kind)
	require.Len(t, caption.Children, 1)
	assert.Equal(t, "Light to dark.", caption.Children[0].Text)
	assert.True(t, caption.Children[0].Italic)
}

func TestFromHTML_HeadingsListsQuotes(t *testing.T) {
	doc := FromHTML(`<h2>Brewing</h2>
		<ul><li>Pour over</li><li>French press</li></ul>
		<ol><li>Grind</li><li>Brew</li></ol>
		<blockquote><p>Fresh is best.</p></blockquote>
		<hr>
		<pre>water: 94C</pre>`)

	require.Len(t, doc.Children, 6)

	h := doc.Children[0]
	assert.Equal(t, KindHeading, h.Kind)
	assert.Equal(t, 2, h.Level)
	assert.Equal(t, "Brewing", PlainText(h))

	ul := doc.Children[1]
	require.Equal(t, KindBulletList, ul.Kind)
	require.Len(t, ul.Children, 2)
	assert.Equal(t, KindListItem, ul.Children[0].Kind)
	assert.Equal(t, "Pour over", PlainText(ul.Children[0]))

	assert.Equal(t, KindOrderedList, doc.Children[2].Kind)

	quote := doc.Children[3]
	assert.Equal(t, KindQuote, quote.Kind)
	assert.Equal(t, "Fresh is best.", PlainText(quote))

	assert.Equal(t, KindRule, doc.Children[4].Kind)
	assert.Equal(t, KindCodeBlock, doc.Children[5].Kind)
}

func TestFromHTML_InlineMarksAndLinks(t *testing.T) {
	doc := FromHTML(`<p>Grind <strong>matters</strong> a <em>lot</em>, see <a href="/guides/grind">the guide</a>.</p>`)

	require.Len(t, doc.Children, 1)
	runs := doc.Children[0].Children
	require.GreaterOrEqual(t, len(runs), 4)

	assert.Equal(t, "Grind matters a lot, see the guide.", PlainText(doc))

	var bold, italic, linked *Node
	for _, r := range runs {
		switch {
		case r.Bold:
			bold = r
		case r.Italic:
			italic = r
		case r.Href != "":
			linked = r
		}
	}
	require.NotNil(t, bold)
	assert.Equal(t, "matters", bold.Text)
	require.NotNil(t, italic)
	assert.Equal(t, "lot", italic.Text)
	require.NotNil(t, linked)
	assert.Equal(t, "/guides/grind", linked.Href)
}

func TestFromHTML_DropsScriptsUnwrapsWrappers(t *testing.T) {
	doc := FromHTML(`<div class="wp-block-group"><section><p>Kept.</p></section></div>
		<script>alert("dropped")</script>
		<style>.x{}</style>`)

	require.Len(t, doc.Children, 1)
	assert.Equal(t, "Kept.", PlainText(doc))
}

func TestFromHTML_InlineImageHoistedFromParagraph(t *testing.T) {
	doc := FromHTML(`<p>Before <img src="/a.png" alt="a"> after.</p>`)

	require.Len(t, doc.Children, 2)
	assert.Equal(t, KindParagraph, doc.Children[0].Kind)
	assert.Equal(t, KindImage, doc.Children[1].Kind)
	assert.Equal(t, "Before after.", PlainText(doc.Children[0]))
}

func TestStripTags(t *testing.T) {
	cases := []struct{ in, want string }{
		{`<p>Grind <b>matters</b>.</p>`, "Grind matters."},
		{`<p>Grind <strong>matters</strong> a <em>lot</em>, see the <a href="/g">guide</a>.</p>`, "Grind matters a lot, see the guide."},
		{`<p>First.</p><p>Second.</p>`, "First. Second."},
		{`<li>one</li><li>two</li>`, "one two"},
		{`Hello<br>world`, "Hello world"},
		{`plain`, "plain"},
		{`<script>bad()</script>ok`, "ok"},
		{``, ""},
	}
	for _, tc := range cases {
		if got := StripTags(tc.in); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
