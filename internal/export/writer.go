// Package export flushes run artifacts to disk in the configured output
// partitioning. Re-running overwrites prior output in place; the pipeline's
// determinism makes that safe.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MikeSquared-Agency/portage/internal/assets"
	"github.com/MikeSquared-Agency/portage/internal/config"
	"github.com/MikeSquared-Agency/portage/internal/source"
	"github.com/MikeSquared-Agency/portage/internal/story"
)

// Writer persists stories, the asset manifest, and datasource collections.
type Writer struct {
	dir     string
	mapping *config.Mapping
	logger  *slog.Logger
}

func NewWriter(dir string, mapping *config.Mapping, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, mapping: mapping, logger: logger}
}

// WriteStories flushes the story registry per the configured granularity and
// locale placement:
//
//	single-collection x folder-level  ->  stories.json (paths carry locale)
//	single-collection x field-level   ->  stories.<locale>.json per locale
//	per-item x folder-level           ->  <full_slug>.json (locale in path)
//	per-item x field-level            ->  <full_slug>.<locale>.json
func (w *Writer) WriteStories(reg *story.Registry) error {
	w.logger.Debug("writing stories", "count", len(reg.All()), "granularity", w.mapping.Granularity, "placement", w.mapping.Placement)
	switch w.mapping.Granularity {
	case config.GranularityPerItem:
		return w.writePerItem(reg)
	default:
		return w.writeCollections(reg)
	}
}

func (w *Writer) writeCollections(reg *story.Registry) error {
	if w.mapping.Placement == config.PlacementFolderLevel {
		return WriteJSON(filepath.Join(w.dir, "stories.json"), reg.All())
	}
	for _, locale := range w.mapping.Locales {
		stories := reg.Locale(locale)
		if len(stories) == 0 {
			continue
		}
		name := fmt.Sprintf("stories.%s.json", w.localeSuffix(locale))
		if err := WriteJSON(filepath.Join(w.dir, name), stories); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writePerItem(reg *story.Registry) error {
	for _, s := range reg.All() {
		name := s.FullSlug + ".json"
		if w.mapping.Placement == config.PlacementFieldLevel {
			name = fmt.Sprintf("%s.%s.json", s.FullSlug, w.localeSuffix(s.Locale))
		}
		if err := WriteJSON(filepath.Join(w.dir, "stories", filepath.FromSlash(name)), s); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) localeSuffix(locale string) string {
	if s, ok := w.mapping.LocaleSuffix[locale]; ok && s != "" {
		return s
	}
	return locale
}

// WriteAssetManifest persists the origin URL -> staged path -> size map.
func (w *Writer) WriteAssetManifest(descriptors []*assets.Descriptor) error {
	return WriteJSON(filepath.Join(w.dir, "assets.json"), descriptors)
}

// DatasourceEntry is one name/value pair of a taxonomy datasource.
type DatasourceEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Locale string `json:"locale,omitempty"`
}

// WriteDatasource persists one taxonomy's terms as a datasource collection.
func (w *Writer) WriteDatasource(taxonomy string, terms []source.Term, locale string) error {
	entries := make([]DatasourceEntry, 0, len(terms))
	for _, t := range terms {
		value := t.Slug
		if value == "" {
			value = story.Slugify(t.Name)
		}
		entries = append(entries, DatasourceEntry{Name: t.Name, Value: value, Locale: locale})
	}
	name := fmt.Sprintf("datasource.%s.json", taxonomy)
	return WriteJSON(filepath.Join(w.dir, "datasources", name), entries)
}

// WriteAuthors persists the author collection as a datasource, so author
// fields on the target side stay mappable back to source authors.
func (w *Writer) WriteAuthors(authors []source.Author) error {
	entries := make([]DatasourceEntry, 0, len(authors))
	for _, a := range authors {
		value := a.Slug
		if value == "" {
			value = story.Slugify(a.DisplayName)
		}
		entries = append(entries, DatasourceEntry{Name: a.DisplayName, Value: value})
	}
	return WriteJSON(filepath.Join(w.dir, "datasources", "datasource.authors.json"), entries)
}

// WriteJSON writes a value as indented JSON, creating parent directories and
// overwriting any previous artifact.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
