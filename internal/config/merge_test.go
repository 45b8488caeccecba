package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMerge_ZeroValuesDoNotClobber(t *testing.T) {
	base := Mapping{
		Locales:       []string{"en", "de"},
		DefaultLocale: "en",
		SourceHost:    "blog.example.com",
		Strategy:      StrategyPathPreserving,
	}
	out := Merge(base, Mapping{})

	if out.SourceHost != "blog.example.com" {
		t.Errorf("source host = %q", out.SourceHost)
	}
	if out.Strategy != StrategyPathPreserving {
		t.Errorf("strategy = %q", out.Strategy)
	}
	if len(out.Locales) != 2 {
		t.Errorf("locales = %v", out.Locales)
	}
}

func TestMerge_ListsReplaceWholesale(t *testing.T) {
	base := Mapping{Locales: []string{"en", "de"}, Taxonomies: []string{"category", "tag"}}
	out := Merge(base, Mapping{Locales: []string{"fr"}})

	if len(out.Locales) != 1 || out.Locales[0] != "fr" {
		t.Errorf("locales = %v", out.Locales)
	}
	if len(out.Taxonomies) != 2 {
		t.Errorf("taxonomies = %v", out.Taxonomies)
	}
}

func TestMerge_ContentTypesMergeKeywise(t *testing.T) {
	base := Mapping{ContentTypes: map[string]ContentType{
		"post": {
			Component: "article",
			Folder:    "blog",
			Fields: map[string]FieldSpec{
				"title":   {Kind: "string"},
				"content": {Kind: "richtext"},
			},
		},
	}}
	override := Mapping{ContentTypes: map[string]ContentType{
		"post": {
			Fields: map[string]FieldSpec{
				"title": {Kind: "string", Options: map[string]any{"trim": true}},
			},
		},
		"page": {Component: "page", Fields: map[string]FieldSpec{"title": {Kind: "string"}}},
	}}

	out := Merge(base, override)

	post := out.ContentTypes["post"]
	if post.Component != "article" || post.Folder != "blog" {
		t.Errorf("post = %+v", post)
	}
	if post.Fields["content"].Kind != "richtext" {
		t.Errorf("content field lost: %+v", post.Fields)
	}
	if post.Fields["title"].Options["trim"] != true {
		t.Errorf("title override not applied: %+v", post.Fields["title"])
	}
	if _, ok := out.ContentTypes["page"]; !ok {
		t.Error("page content type missing")
	}

	// inputs untouched
	if base.ContentTypes["post"].Fields["title"].Options != nil {
		t.Error("base mutated by merge")
	}
}

// A staging overlay file layered over a production base, the way the CLI
// wires -mapping and -mapping-override together.
func TestMerge_OverlayFile(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	overlayPath := filepath.Join(dir, "staging.yaml")

	baseYAML := `
locales: [en, de]
source_host: blog.example.com
asset_extensions: [.jpg, .png]
content_types:
  post:
    component: article
    fields:
      title: string
`
	overlayYAML := `
source_host: staging.blog.example.com
content_types:
  post:
    fields:
      teaser:
        kind: string
        trim: true
`
	if err := os.WriteFile(basePath, []byte(baseYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(overlayPath, []byte(overlayYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	base, err := LoadMapping(basePath)
	if err != nil {
		t.Fatal(err)
	}
	overlay, err := LoadOverlay(overlayPath)
	if err != nil {
		t.Fatal(err)
	}
	out := Merge(*base, *overlay)
	if err := out.Validate(); err != nil {
		t.Fatal(err)
	}

	if out.SourceHost != "staging.blog.example.com" {
		t.Errorf("source host = %q", out.SourceHost)
	}
	if len(out.Locales) != 2 {
		t.Errorf("locales = %v", out.Locales)
	}
	// the overlay names no asset extensions; loading it must not fill in
	// defaults that would replace the base's list
	if len(out.AssetExtensions) != 2 {
		t.Errorf("asset extensions = %v", out.AssetExtensions)
	}
	post := out.ContentTypes["post"]
	if post.Component != "article" || post.Fields["title"].Kind != "string" {
		t.Errorf("post = %+v", post)
	}
	if !post.Fields["teaser"].Options["trim"].(bool) {
		t.Errorf("teaser = %+v", post.Fields["teaser"])
	}
}
