package transform

import (
	"encoding/json"
	"log/slog"

	"github.com/MikeSquared-Agency/portage/internal/story"
)

// Ref is a story reference produced by the reference/references kinds. It may
// resolve immediately or stay pending until the patch pass; an unresolvable
// ref marshals to null so it reads as an absent reference, never a broken
// one. Refs are shared by pointer between content trees and the registry, so
// patching the registry patches the stories.
type Ref struct {
	ItemID   string
	UUID     string
	FullSlug string

	resolved bool
}

func (r *Ref) MarshalJSON() ([]byte, error) {
	if !r.resolved {
		return []byte("null"), nil
	}
	type wire struct {
		UUID     string `json:"uuid"`
		FullSlug string `json:"full_slug"`
	}
	return json.Marshal(wire{UUID: r.UUID, FullSlug: r.FullSlug})
}

// Resolved reports whether the ref points at an organized story.
func (r *Ref) Resolved() bool { return r.resolved }

// RefRegistry collects refs that pointed forward to not-yet-organized items.
type RefRegistry struct {
	pending []*pendingRef
}

type pendingRef struct {
	ref    *Ref
	locale string
}

func NewRefRegistry() *RefRegistry {
	return &RefRegistry{}
}

func (rr *RefRegistry) track(ref *Ref, locale string) {
	rr.pending = append(rr.pending, &pendingRef{ref: ref, locale: locale})
}

// PendingCount reports how many refs still await patching.
func (rr *RefRegistry) PendingCount() int { return len(rr.pending) }

// PatchLocale resolves every pending ref for a locale against the complete
// story registry. Refs whose item never produced a story stay unresolved and
// marshal to null. Returns (resolved, dropped) counts.
func (rr *RefRegistry) PatchLocale(stories *story.Registry, locale string, logger *slog.Logger) (resolved, dropped int) {
	remaining := rr.pending[:0]
	for _, p := range rr.pending {
		if p.locale != locale {
			remaining = append(remaining, p)
			continue
		}
		if s, ok := stories.LookupByItem(locale, p.ref.ItemID); ok {
			p.ref.UUID = s.UUID
			p.ref.FullSlug = s.FullSlug
			p.ref.resolved = true
			resolved++
			continue
		}
		dropped++
		logger.Warn("reference never resolved, dropping", "item_id", p.ref.ItemID, "locale", locale)
	}
	rr.pending = remaining
	return resolved, dropped
}
