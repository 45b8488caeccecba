package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Organization strategies for story paths.
const (
	StrategyPathPreserving    = "path-preserving"
	StrategyFolderMapped      = "folder-mapped"
	StrategyContentTypeFolder = "content-type-folder"
)

// Locale placement strategies.
const (
	PlacementFolderLevel = "folder-level"
	PlacementFieldLevel  = "field-level"
)

// Output granularities.
const (
	GranularitySingleCollection = "single-collection"
	GranularityPerItem          = "per-item"
)

// Mapping is the structural configuration for one migration: which locales to
// process, how stories are organized, and how each content type's fields map
// onto the target schema. Loaded from YAML, merged, and validated once before
// the run starts.
type Mapping struct {
	Locales       []string          `yaml:"locales"`
	DefaultLocale string            `yaml:"default_locale"`
	LocalePrefix  map[string]string `yaml:"locale_prefix"`
	LocaleSuffix  map[string]string `yaml:"locale_suffix"`

	SourceHost   string `yaml:"source_host"`
	ManagedMedia string `yaml:"managed_media_prefix"`
	Strategy     string `yaml:"strategy"`
	Placement    string `yaml:"locale_placement"`
	Granularity  string `yaml:"granularity"`

	Folders      []FolderRule           `yaml:"folders"`
	ContentTypes map[string]ContentType `yaml:"content_types"`
	Taxonomies   []string               `yaml:"taxonomies"`

	AssetExtensions []string `yaml:"asset_extensions"`
	StripParams     []string `yaml:"strip_params"`
}

// FolderRule maps a source path prefix to a target folder. Rules are ordered:
// on equal-length prefix matches the earlier rule wins.
type FolderRule struct {
	SourcePrefix string `yaml:"source_prefix"`
	TargetFolder string `yaml:"target_folder"`
}

// ContentType describes one configured source content type: the target schema
// component it maps to, its fallback folder, and its field-mapping table.
type ContentType struct {
	Component string               `yaml:"component"`
	Folder    string               `yaml:"folder"`
	Fields    map[string]FieldSpec `yaml:"fields"`
}

// FieldSpec is the raw, uncompiled transform spec for one target field. It is
// either a bare kind name ("richtext") or an object with a kind plus options.
// Compilation into a dispatchable form happens in the transform package, once,
// at configuration-load time.
type FieldSpec struct {
	Kind    string         `yaml:"kind"`
	Source  string         `yaml:"source"`
	Options map[string]any `yaml:",inline"`
}

// UnmarshalYAML accepts both the string shorthand and the object form.
func (fs *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		fs.Kind = node.Value
		return nil
	}

	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if k, ok := raw["kind"].(string); ok {
		fs.Kind = k
	}
	delete(raw, "kind")
	if s, ok := raw["source"].(string); ok {
		fs.Source = s
	}
	delete(raw, "source")
	fs.Options = raw
	return nil
}

// LoadMapping reads and validates a mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadOverlay reads a partial mapping meant for Merge. No defaults are
// applied and nothing is validated here: an overlay only carries the keys it
// overrides, and filling in defaults would clobber the base on merge.
func LoadOverlay(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping overlay: %w", err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping overlay: %w", err)
	}
	return &m, nil
}

func (m *Mapping) applyDefaults() {
	if m.Strategy == "" {
		m.Strategy = StrategyContentTypeFolder
	}
	if m.Placement == "" {
		m.Placement = PlacementFolderLevel
	}
	if m.Granularity == "" {
		m.Granularity = GranularitySingleCollection
	}
	if len(m.AssetExtensions) == 0 {
		m.AssetExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".pdf", ".mp4", ".mp3", ".zip"}
	}
	if len(m.StripParams) == 0 {
		m.StripParams = []string{"preview", "preview_id", "p", "page_id", "paged", "replytocom"}
	}
	for i, ext := range m.AssetExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m.AssetExtensions[i] = ext
	}
}

// Validate checks the mapping eagerly. Any error here is fatal: the run must
// not start with a configuration that would fail deep inside a transform.
func (m *Mapping) Validate() error {
	if len(m.Locales) == 0 {
		return fmt.Errorf("mapping: at least one locale is required")
	}
	if m.DefaultLocale == "" {
		m.DefaultLocale = m.Locales[0]
	}
	if !contains(m.Locales, m.DefaultLocale) {
		return fmt.Errorf("mapping: default_locale %q is not in locales", m.DefaultLocale)
	}
	switch m.Strategy {
	case StrategyPathPreserving, StrategyFolderMapped, StrategyContentTypeFolder:
	default:
		return fmt.Errorf("mapping: unknown strategy %q", m.Strategy)
	}
	switch m.Placement {
	case PlacementFolderLevel, PlacementFieldLevel:
	default:
		return fmt.Errorf("mapping: unknown locale_placement %q", m.Placement)
	}
	switch m.Granularity {
	case GranularitySingleCollection, GranularityPerItem:
	default:
		return fmt.Errorf("mapping: unknown granularity %q", m.Granularity)
	}
	if m.Strategy == StrategyFolderMapped && len(m.Folders) == 0 {
		return fmt.Errorf("mapping: strategy %q requires a folders table", StrategyFolderMapped)
	}
	if len(m.ContentTypes) == 0 {
		return fmt.Errorf("mapping: at least one content type is required")
	}
	for name, ct := range m.ContentTypes {
		if ct.Component == "" {
			return fmt.Errorf("mapping: content type %q has no component", name)
		}
		if len(ct.Fields) == 0 {
			return fmt.Errorf("mapping: content type %q has no field mappings", name)
		}
		for field, spec := range ct.Fields {
			if spec.Kind == "" {
				return fmt.Errorf("mapping: content type %q field %q has no kind", name, field)
			}
		}
	}
	return nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
