package story

// Registry tracks every organized story for the run, indexed per locale by
// slug and by originating source item ID. Slugs are unique within a locale
// and may repeat across locales.
type Registry struct {
	byLocale map[string]map[string]*Story // locale -> slug -> story
	byItem   map[string]map[string]*Story // locale -> source item id -> story
	ordered  []*Story
}

func NewRegistry() *Registry {
	return &Registry{
		byLocale: make(map[string]map[string]*Story),
		byItem:   make(map[string]map[string]*Story),
	}
}

func (r *Registry) add(s *Story) {
	slugs, ok := r.byLocale[s.Locale]
	if !ok {
		slugs = make(map[string]*Story)
		r.byLocale[s.Locale] = slugs
	}
	slugs[s.Slug] = s

	items, ok := r.byItem[s.Locale]
	if !ok {
		items = make(map[string]*Story)
		r.byItem[s.Locale] = items
	}
	if s.SourceID != "" {
		items[s.SourceID] = s
	}
	r.ordered = append(r.ordered, s)
}

// Lookup returns the story registered under a slug in a locale.
func (r *Registry) Lookup(locale, slug string) (*Story, bool) {
	s, ok := r.byLocale[locale][slug]
	return s, ok
}

// FullSlug satisfies the link resolver's StoryIndex contract.
func (r *Registry) FullSlug(locale, slug string) (string, bool) {
	if s, ok := r.byLocale[locale][slug]; ok {
		return s.FullSlug, true
	}
	return "", false
}

// LookupByItem returns the story organized from a given source item.
func (r *Registry) LookupByItem(locale, itemID string) (*Story, bool) {
	s, ok := r.byItem[locale][itemID]
	return s, ok
}

// taken reports whether a slug is already assigned in a locale.
func (r *Registry) taken(locale, slug string) bool {
	_, ok := r.byLocale[locale][slug]
	return ok
}

// All returns every story in assignment order.
func (r *Registry) All() []*Story {
	return r.ordered
}

// Locale returns the stories of one locale in assignment order.
func (r *Registry) Locale(locale string) []*Story {
	var out []*Story
	for _, s := range r.ordered {
		if s.Locale == locale {
			out = append(out, s)
		}
	}
	return out
}
