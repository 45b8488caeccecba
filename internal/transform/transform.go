package transform

import (
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/spf13/cast"

	"github.com/MikeSquared-Agency/portage/internal/assets"
	"github.com/MikeSquared-Agency/portage/internal/richtext"
	"github.com/MikeSquared-Agency/portage/internal/story"
)

// AssetRef is the field value produced by the asset kind.
type AssetRef struct {
	Target  string `json:"target"`
	AltText string `json:"alt_text,omitempty"`
	Focus   string `json:"focus,omitempty"`
}

// Apply runs one compiled transform over one source value. It never returns
// an error and never panics out: every kind degrades to its documented safe
// default on bad input, because one malformed field must not drop an entire
// content item.
func Apply(v any, s *Spec, tc *Context) (out any) {
	defer func() {
		if r := recover(); r != nil {
			tc.Logger.Error("transform panicked, degrading to nil", "kind", s.Kind, "panic", r)
			out = nil
		}
	}()

	switch s.Kind {
	case KindRichtext:
		return applyRichtext(v, tc)
	case KindMarkdown:
		return applyMarkdown(v, tc)
	case KindAsset:
		return applyAsset(v, tc)
	case KindReference:
		return applyReference(v, tc)
	case KindReferences:
		return applyReferences(v, tc)
	case KindTags:
		return applyTags(v, s.Tags)
	case KindDatetime:
		return applyDatetime(v)
	case KindLink:
		raw := strings.TrimSpace(cast.ToString(v))
		if raw == "" {
			return nil
		}
		return tc.Links.Resolve(tc.Ctx, raw, tc.Locale)
	case KindAuthor:
		return applyAuthor(v, tc)
	case KindString:
		return applyString(v, s.String)
	case KindCustom:
		return s.Fn(v, tc)
	}
	return nil
}

// applyRichtext converts markup to a document tree, then resolves embedded
// image sources through the asset registry and anchor hrefs through the link
// resolver. Failed asset resolutions keep the original source URL.
func applyRichtext(v any, tc *Context) *richtext.Node {
	doc := richtext.FromHTML(cast.ToString(v))
	richtext.Walk(doc, func(n *richtext.Node) bool {
		switch n.Kind {
		case richtext.KindImage:
			if d := tc.Assets.Resolve(tc.Ctx, n.Src, assets.Meta{AltText: n.Alt}); d != nil {
				n.Src = d.Target()
				if n.Alt == "" {
					n.Alt = d.AltText
				}
			}
		case richtext.KindText:
			if n.Href != "" {
				n.Link = tc.Links.Resolve(tc.Ctx, n.Href, tc.Locale)
			}
		}
		return true
	})
	return doc
}

func applyMarkdown(v any, tc *Context) string {
	src := cast.ToString(v)
	if src == "" {
		return ""
	}
	md, err := htmltomarkdown.ConvertString(src)
	if err != nil {
		tc.Logger.Warn("markdown conversion failed, falling back to stripped text", "error", err)
		return richtext.StripTags(src)
	}
	return strings.TrimSpace(md)
}

// applyAsset accepts a URL string, a media ID, or a descriptor-like map.
// Empty input yields nil, not an error; so does a download that exhausted
// its retries.
func applyAsset(v any, tc *Context) *AssetRef {
	url, meta := assetInput(v, tc)
	if url == "" {
		return nil
	}
	d := tc.Assets.Resolve(tc.Ctx, url, meta)
	if d == nil {
		return nil
	}
	alt := d.AltText
	if alt == "" {
		alt = meta.AltText
	}
	return &AssetRef{Target: d.Target(), AltText: alt}
}

func assetInput(v any, tc *Context) (string, assets.Meta) {
	switch val := v.(type) {
	case nil:
		return "", assets.Meta{}
	case map[string]any:
		url := cast.ToString(firstOf(val, "url", "source_url", "origin_url", "src"))
		return url, assets.Meta{
			AltText: cast.ToString(firstOf(val, "alt", "alt_text")),
			Title:   cast.ToString(val["title"]),
			Width:   cast.ToInt(val["width"]),
			Height:  cast.ToInt(val["height"]),
		}
	default:
		s := cast.ToString(v)
		if s == "" {
			return "", assets.Meta{}
		}
		// a bare numeric value is a media ID from the source's media collection
		if isNumeric(s) {
			if m, ok := tc.Media[s]; ok {
				return m.OriginURL, assets.Meta{AltText: m.AltText, Title: m.Title, Width: m.Width, Height: m.Height}
			}
			return "", assets.Meta{}
		}
		return s, assets.Meta{}
	}
}

// applyReference maps one source item ID to a story ref. A bad or missing ID
// yields nil.
func applyReference(v any, tc *Context) *Ref {
	id := cast.ToString(v)
	if !isNumeric(id) {
		return nil
	}
	return makeRef(id, tc)
}

// applyReferences maps a list of source item IDs to story refs, dropping
// non-numeric and missing IDs silently.
func applyReferences(v any, tc *Context) []*Ref {
	var ids []string
	switch val := v.(type) {
	case []string:
		ids = val
	case []any:
		for _, x := range val {
			ids = append(ids, cast.ToString(x))
		}
	default:
		s := cast.ToString(v)
		if s == "" {
			return []*Ref{}
		}
		ids = strings.Split(s, ",")
	}

	out := make([]*Ref, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if !isNumeric(id) {
			continue
		}
		out = append(out, makeRef(id, tc))
	}
	return out
}

// applyAuthor resolves a source author ID to the author's display name and
// slug. An empty or unknown ID yields nil.
func applyAuthor(v any, tc *Context) map[string]any {
	id := strings.TrimSpace(cast.ToString(v))
	if id == "" {
		return nil
	}
	a, ok := tc.Authors[id]
	if !ok {
		return nil
	}
	slug := a.Slug
	if slug == "" {
		slug = story.Slugify(a.DisplayName)
	}
	return map[string]any{"name": a.DisplayName, "slug": slug}
}

func makeRef(id string, tc *Context) *Ref {
	ref := &Ref{ItemID: id}
	if s, ok := tc.Stories.LookupByItem(tc.Locale, id); ok {
		ref.UUID = s.UUID
		ref.FullSlug = s.FullSlug
		ref.resolved = true
		return ref
	}
	tc.Refs.track(ref, tc.Locale)
	return ref
}

// applyTags normalizes an array or delimiter-separated string into slug-safe
// tag entries. Unparseable input yields an empty list.
func applyTags(v any, opts TagsOptions) []string {
	delim := opts.Delimiter
	if delim == "" {
		delim = ","
	}

	var raw []string
	switch val := v.(type) {
	case []string:
		raw = val
	case []any:
		for _, x := range val {
			raw = append(raw, cast.ToString(x))
		}
	default:
		raw = strings.Split(cast.ToString(v), delim)
	}

	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if tag := story.Slugify(t); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// applyDatetime normalizes any date-like value to an ISO-8601 UTC string, or
// an empty string when unparseable.
func applyDatetime(v any) string {
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func applyString(v any, opts StringOptions) string {
	s := cast.ToString(v)
	if opts.StripMarkup {
		s = richtext.StripTags(s)
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	if opts.MaxLength > 0 {
		runes := []rune(s)
		if len(runes) > opts.MaxLength {
			s = strings.TrimSpace(string(runes[:opts.MaxLength])) + "…"
		}
	}
	return s
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
