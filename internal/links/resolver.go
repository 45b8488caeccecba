// Package links classifies URLs found in body content and rewrites them
// against the evolving slug and asset registries. Links that point forward to
// not-yet-organized stories are parked as pending and resolved in a patch
// pass once the slug registry for their locale is complete.
package links

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/MikeSquared-Agency/portage/internal/assets"
)

// Kind classifies a resolved link.
type Kind int

const (
	KindExternal Kind = iota
	KindStory
	KindAsset
	KindEmail
	KindAnchor
)

func (k Kind) String() string {
	switch k {
	case KindStory:
		return "story"
	case KindAsset:
		return "asset"
	case KindEmail:
		return "email"
	case KindAnchor:
		return "anchor"
	default:
		return "url"
	}
}

// Descriptor is a classified reference extracted from body content. Story
// descriptors may start out pending; the patch pass either resolves them to a
// final slug or downgrades them to plain URLs. A descriptor is shared by
// pointer between the pending list and the content tree that references it,
// so patching it patches the story.
type Descriptor struct {
	Kind        Kind
	Target      string // full slug, asset target, URL, or email address
	OriginalURL string
	Anchor      string // fragment carried over for story links

	pending       bool
	candidateSlug string
	locale        string
}

// Pending reports whether the descriptor still awaits the patch pass.
func (d *Descriptor) Pending() bool { return d.pending }

// MarshalJSON emits the wire shape consumed by the target importer.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind   string `json:"linktype"`
		Target string `json:"target"`
		URL    string `json:"url,omitempty"`
		Anchor string `json:"anchor,omitempty"`
	}
	return json.Marshal(wire{
		Kind:   d.Kind.String(),
		Target: d.Target,
		URL:    d.OriginalURL,
		Anchor: d.Anchor,
	})
}

// StoryIndex is the slice of the story registry the resolver needs.
type StoryIndex interface {
	FullSlug(locale, slug string) (string, bool)
}

// Options configures a Resolver.
type Options struct {
	SourceHost      string
	AssetExtensions []string
	StripParams     []string
}

// Resolver classifies and rewrites URLs. It owns the pending-link list for
// the run.
type Resolver struct {
	opts    Options
	stories StoryIndex
	assets  *assets.Registry
	logger  *slog.Logger

	pending []*Descriptor
}

func NewResolver(opts Options, stories StoryIndex, reg *assets.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{
		opts:    opts,
		stories: stories,
		assets:  reg,
		logger:  logger,
	}
}

// Resolve classifies a raw URL. First match wins: email, anchor, asset,
// story, external. It never returns nil and never fails; anything it cannot
// make sense of passes through as an external URL.
func (r *Resolver) Resolve(ctx context.Context, rawURL, locale string) *Descriptor {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return &Descriptor{Kind: KindExternal}
	}

	if strings.HasPrefix(rawURL, "mailto:") {
		return &Descriptor{Kind: KindEmail, Target: strings.TrimPrefix(rawURL, "mailto:"), OriginalURL: rawURL}
	}
	if strings.HasPrefix(rawURL, "#") {
		return &Descriptor{Kind: KindAnchor, Target: rawURL, OriginalURL: rawURL}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return &Descriptor{Kind: KindExternal, Target: rawURL, OriginalURL: rawURL}
	}

	if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && r.isAssetExt(ext) {
		target := rawURL
		if d := r.assets.Resolve(ctx, rawURL, assets.Meta{}); d != nil {
			target = d.Target()
		}
		return &Descriptor{Kind: KindAsset, Target: target, OriginalURL: rawURL}
	}

	if r.isOwnHost(u) {
		return r.resolveStory(u, rawURL, locale)
	}

	return &Descriptor{Kind: KindExternal, Target: r.stripParams(u), OriginalURL: rawURL}
}

func (r *Resolver) resolveStory(u *url.URL, rawURL, locale string) *Descriptor {
	candidate := lastSegment(u.Path)
	if candidate == "" {
		return &Descriptor{Kind: KindExternal, Target: rawURL, OriginalURL: rawURL}
	}

	d := &Descriptor{
		Kind:          KindStory,
		OriginalURL:   rawURL,
		Anchor:        u.Fragment,
		candidateSlug: candidate,
		locale:        locale,
	}
	if full, ok := r.stories.FullSlug(locale, candidate); ok {
		d.Target = full
		return d
	}

	d.pending = true
	r.pending = append(r.pending, d)
	return d
}

// PatchLocale resolves every pending descriptor for a locale against the now
// complete slug registry. Descriptors that still miss downgrade to external
// links on their original URL, never to broken references. Pure over
// (registry, pending list); returns (resolved, downgraded) counts.
func (r *Resolver) PatchLocale(locale string) (resolved, downgraded int) {
	remaining := r.pending[:0]
	for _, d := range r.pending {
		if d.locale != locale {
			remaining = append(remaining, d)
			continue
		}
		if full, ok := r.stories.FullSlug(locale, d.candidateSlug); ok {
			d.Target = full
			d.pending = false
			resolved++
			continue
		}
		d.Kind = KindExternal
		d.Target = d.OriginalURL
		d.pending = false
		downgraded++
		r.logger.Warn("internal link downgraded to external", "url", d.OriginalURL, "slug", d.candidateSlug, "locale", locale)
	}
	r.pending = remaining
	return resolved, downgraded
}

// PendingCount reports how many descriptors still await patching.
func (r *Resolver) PendingCount() int { return len(r.pending) }

func (r *Resolver) isAssetExt(ext string) bool {
	for _, e := range r.opts.AssetExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (r *Resolver) isOwnHost(u *url.URL) bool {
	if u.Host == "" && u.Scheme == "" {
		return true // relative URL
	}
	return strings.EqualFold(u.Hostname(), r.opts.SourceHost)
}

// stripParams removes source-platform-only query parameters (preview and
// pagination markers) from an external URL.
func (r *Resolver) stripParams(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, p := range r.opts.StripParams {
		if q.Has(p) {
			q.Del(p)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func lastSegment(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
