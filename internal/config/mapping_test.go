package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleMapping = `
locales: [en, de]
default_locale: en
source_host: blog.example.com
strategy: folder-mapped
locale_placement: folder-level
granularity: single-collection
folders:
  - source_prefix: /coffee
    target_folder: drinks/coffee
  - source_prefix: /coffee/gear
    target_folder: gear
content_types:
  post:
    component: article
    fields:
      title: string
      content: richtext
      teaser:
        kind: string
        source: excerpt
        trim: true
        max_length: 160
taxonomies: [category]
`

func writeMapping(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMapping(t *testing.T) {
	m, err := LoadMapping(writeMapping(t, sampleMapping))
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}

	if m.DefaultLocale != "en" {
		t.Errorf("default locale = %q", m.DefaultLocale)
	}
	if len(m.Folders) != 2 || m.Folders[0].TargetFolder != "drinks/coffee" {
		t.Errorf("folders = %+v", m.Folders)
	}

	post := m.ContentTypes["post"]
	if post.Component != "article" {
		t.Errorf("component = %q", post.Component)
	}

	// string shorthand
	if got := post.Fields["title"]; got.Kind != "string" || len(got.Options) != 0 {
		t.Errorf("title spec = %+v", got)
	}

	// object form with source override and inline options
	teaser := post.Fields["teaser"]
	if teaser.Kind != "string" || teaser.Source != "excerpt" {
		t.Errorf("teaser spec = %+v", teaser)
	}
	if teaser.Options["max_length"] != 160 {
		t.Errorf("teaser options = %+v", teaser.Options)
	}
}

func TestLoadMapping_Defaults(t *testing.T) {
	m, err := LoadMapping(writeMapping(t, `
locales: [en]
content_types:
  post:
    component: article
    fields:
      title: string
`))
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if m.Strategy != StrategyContentTypeFolder {
		t.Errorf("strategy default = %q", m.Strategy)
	}
	if m.Placement != PlacementFolderLevel {
		t.Errorf("placement default = %q", m.Placement)
	}
	if m.DefaultLocale != "en" {
		t.Errorf("default locale = %q", m.DefaultLocale)
	}
	if len(m.AssetExtensions) == 0 || m.AssetExtensions[0][0] != '.' {
		t.Errorf("asset extensions = %v", m.AssetExtensions)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no locales", `
content_types:
  post: {component: article, fields: {title: string}}
`, "at least one locale"},
		{"bad default locale", `
locales: [en]
default_locale: fr
content_types:
  post: {component: article, fields: {title: string}}
`, "default_locale"},
		{"unknown strategy", `
locales: [en]
strategy: alphabetical
content_types:
  post: {component: article, fields: {title: string}}
`, "unknown strategy"},
		{"folder-mapped without table", `
locales: [en]
strategy: folder-mapped
content_types:
  post: {component: article, fields: {title: string}}
`, "requires a folders table"},
		{"no content types", `
locales: [en]
`, "content type"},
		{"missing component", `
locales: [en]
content_types:
  post: {fields: {title: string}}
`, "no component"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadMapping(writeMapping(t, tc.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}
