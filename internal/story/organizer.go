// Package story turns transformed content into target stories with unique,
// deterministic slugs and locale-aware paths.
package story

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/portage/internal/config"
	"github.com/MikeSquared-Agency/portage/internal/source"
)

// Story is the transformed output unit. Created once by the organizer and
// never mutated afterwards; unresolved forward references inside Content are
// patched through shared descriptor pointers, not by rewriting the story.
type Story struct {
	UUID      string         `json:"uuid"`
	SourceID  string         `json:"source_id"`
	Slug      string         `json:"slug"`
	Path      string         `json:"path"`
	FullSlug  string         `json:"full_slug"`
	Locale    string         `json:"locale"`
	Component string         `json:"component"`
	Content   map[string]any `json:"content"`
	Folder    string         `json:"folder,omitempty"`
}

// Organizer assigns slugs and paths per the configured organization strategy.
type Organizer struct {
	mapping *config.Mapping
	reg     *Registry
	logger  *slog.Logger
}

func NewOrganizer(mapping *config.Mapping, reg *Registry, logger *slog.Logger) *Organizer {
	return &Organizer{mapping: mapping, reg: reg, logger: logger}
}

// Organize builds the story for one source item and registers it. The caller
// processes items in sorted source-ID order, which makes collision suffixes
// deterministic: first come keeps the bare slug, later collisions get -2, -3
// and so on within the item's locale.
func (o *Organizer) Organize(item *source.Item, contentType string, content map[string]any) (*Story, error) {
	ct, ok := o.mapping.ContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("organize: content type %q is not configured", contentType)
	}

	slug := o.assignSlug(item)
	p := o.assignPath(item, contentType, ct)

	full := slug
	if p != "" {
		full = strings.Trim(p, "/") + "/" + slug
	}

	s := &Story{
		UUID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(item.Locale+"/"+full)).String(),
		SourceID:  item.ID,
		Slug:      slug,
		Path:      p,
		FullSlug:  full,
		Locale:    item.Locale,
		Component: ct.Component,
		Content:   content,
		Folder:    p,
	}
	o.reg.add(s)
	return s, nil
}

// assignSlug normalizes the item's own slug (title as fallback), prefixes
// tokens that would make an invalid slug, and resolves collisions within the
// locale.
func (o *Organizer) assignSlug(item *source.Item) string {
	base := Slugify(item.Slug)
	if base == "" {
		base = Slugify(item.Title)
	}
	switch {
	case base == "":
		base = "untitled-" + item.ID
	case unicode.IsDigit(rune(base[0])):
		base = "n-" + base
	}

	slug := base
	for n := 2; o.reg.taken(item.Locale, slug); n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	if slug != base {
		o.logger.Debug("slug collision", "locale", item.Locale, "base", base, "assigned", slug)
	}
	return slug
}

// assignPath picks the story's folder path: the source's own path structure,
// a folder-table match, or one folder per content type, then applies the
// locale placement on top.
func (o *Organizer) assignPath(item *source.Item, contentType string, ct config.ContentType) string {
	var p string
	switch o.mapping.Strategy {
	case config.StrategyPathPreserving:
		p = parentPath(item.Path)
	case config.StrategyFolderMapped:
		p = o.matchFolder(item.Path)
		if p == "" {
			p = typeFolder(contentType, ct)
		}
	default: // content-type-folder
		p = typeFolder(contentType, ct)
	}

	if o.mapping.Placement == config.PlacementFolderLevel {
		seg := o.mapping.LocalePrefix[item.Locale]
		if seg == "" {
			seg = item.Locale
		}
		p = strings.Trim(seg, "/") + "/" + strings.Trim(p, "/")
	}
	return strings.Trim(p, "/")
}

// matchFolder performs a longest-prefix match over the ordered folder table.
// Ties on prefix length keep the earlier rule.
func (o *Organizer) matchFolder(sourcePath string) string {
	sourcePath = "/" + strings.Trim(sourcePath, "/")
	best := ""
	bestLen := -1
	for _, rule := range o.mapping.Folders {
		prefix := "/" + strings.Trim(rule.SourcePrefix, "/")
		if prefix == "/" {
			prefix = ""
		}
		if strings.HasPrefix(sourcePath, prefix) && len(prefix) > bestLen {
			best = rule.TargetFolder
			bestLen = len(prefix)
		}
	}
	return strings.Trim(best, "/")
}

func typeFolder(contentType string, ct config.ContentType) string {
	if ct.Folder != "" {
		return ct.Folder
	}
	return contentType
}

// parentPath strips the final segment (the item's own slug) from a source
// path, keeping only the folder structure above it.
func parentPath(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}
