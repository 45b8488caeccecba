package export

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MikeSquared-Agency/portage/internal/config"
	"github.com/MikeSquared-Agency/portage/internal/source"
	"github.com/MikeSquared-Agency/portage/internal/story"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry(t *testing.T, mapping *config.Mapping) *story.Registry {
	t.Helper()
	reg := story.NewRegistry()
	org := story.NewOrganizer(mapping, reg, testLogger())
	for _, it := range []source.Item{
		{ID: "1", Locale: "en", Title: "Brew Guide"},
		{ID: "2", Locale: "de", Title: "Brauanleitung"},
	} {
		if _, err := org.Organize(&it, "post", map[string]any{"component": "article"}); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func baseMapping() *config.Mapping {
	return &config.Mapping{
		Locales:       []string{"en", "de"},
		DefaultLocale: "en",
		Strategy:      config.StrategyContentTypeFolder,
		ContentTypes: map[string]config.ContentType{
			"post": {Component: "article", Folder: "blog", Fields: map[string]config.FieldSpec{"title": {Kind: "string"}}},
		},
	}
}

func TestWriteStories_SingleCollectionFolderLevel(t *testing.T) {
	m := baseMapping()
	m.Granularity = config.GranularitySingleCollection
	m.Placement = config.PlacementFolderLevel

	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())
	if err := w.WriteStories(testRegistry(t, m)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stories.json"))
	if err != nil {
		t.Fatal(err)
	}
	var stories []map[string]any
	if err := json.Unmarshal(data, &stories); err != nil {
		t.Fatal(err)
	}
	if len(stories) != 2 {
		t.Fatalf("stories = %d", len(stories))
	}
	if stories[0]["full_slug"] != "en/blog/brew-guide" {
		t.Errorf("full_slug = %v", stories[0]["full_slug"])
	}
}

func TestWriteStories_SingleCollectionFieldLevel(t *testing.T) {
	m := baseMapping()
	m.Granularity = config.GranularitySingleCollection
	m.Placement = config.PlacementFieldLevel

	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())
	if err := w.WriteStories(testRegistry(t, m)); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"stories.en.json", "stories.de.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "stories.json")); err == nil {
		t.Error("unexpected combined stories.json in field-level placement")
	}
}

func TestWriteStories_PerItem(t *testing.T) {
	m := baseMapping()
	m.Granularity = config.GranularityPerItem
	m.Placement = config.PlacementFolderLevel

	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())
	if err := w.WriteStories(testRegistry(t, m)); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stories", "en", "blog", "brew-guide.json")); err != nil {
		t.Errorf("per-item file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stories", "de", "blog", "brauanleitung.json")); err != nil {
		t.Errorf("per-item de file missing: %v", err)
	}
}

func TestWriteStories_PerItemFieldLevelSuffix(t *testing.T) {
	m := baseMapping()
	m.Granularity = config.GranularityPerItem
	m.Placement = config.PlacementFieldLevel
	m.LocaleSuffix = map[string]string{"de": "de-DE"}

	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())
	if err := w.WriteStories(testRegistry(t, m)); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stories", "blog", "brew-guide.en.json")); err != nil {
		t.Errorf("en suffixed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stories", "blog", "brauanleitung.de-DE.json")); err != nil {
		t.Errorf("configured de suffix not used: %v", err)
	}
}

func TestWriteDatasource(t *testing.T) {
	m := baseMapping()
	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())

	terms := []source.Term{
		{ID: "1", Name: "Light Roast", Slug: "light-roast"},
		{ID: "2", Name: "No Slug"},
	}
	if err := w.WriteDatasource("category", terms, ""); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "datasources", "datasource.category.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []DatasourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Value != "light-roast" {
		t.Errorf("value = %q", entries[0].Value)
	}
	if entries[1].Value != "no-slug" {
		t.Errorf("missing slug should be derived: %q", entries[1].Value)
	}
}

func TestWriteAuthors(t *testing.T) {
	m := baseMapping()
	dir := t.TempDir()
	w := NewWriter(dir, m, testLogger())

	authors := []source.Author{
		{ID: "7", DisplayName: "Maya Barista", Slug: "maya"},
		{ID: "8", DisplayName: "Sam Roaster"},
	}
	if err := w.WriteAuthors(authors); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "datasources", "datasource.authors.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []DatasourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Name != "Maya Barista" || entries[0].Value != "maya" {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[1].Value != "sam-roaster" {
		t.Errorf("missing slug should be derived: %q", entries[1].Value)
	}
}

func TestWriteJSON_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := WriteJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(path, map[string]int{"b": 2}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["b"] != 2 || len(got) != 1 {
		t.Errorf("got = %v", got)
	}
}
