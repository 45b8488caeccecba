package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileFetcher reads previously exported source collections from a directory
// of JSON files. It backs dry runs and tests; the production fetcher talks to
// the origin platform's REST API instead and satisfies the same interface.
//
// Layout: <dir>/items.<locale>.<contentType>.json, <dir>/media.json,
// <dir>/authors.json, <dir>/terms.<taxonomy>.json.
type FileFetcher struct {
	dir string
}

func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{dir: dir}
}

func (f *FileFetcher) Items(_ context.Context, locale, contentType string) ([]Item, error) {
	var items []Item
	if err := f.read(fmt.Sprintf("items.%s.%s.json", locale, contentType), &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Locale == "" {
			items[i].Locale = locale
		}
	}
	return items, nil
}

func (f *FileFetcher) Media(_ context.Context) ([]Media, error) {
	var media []Media
	if err := f.read("media.json", &media); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return media, nil
}

func (f *FileFetcher) Authors(_ context.Context) ([]Author, error) {
	var authors []Author
	if err := f.read("authors.json", &authors); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return authors, nil
}

func (f *FileFetcher) Terms(_ context.Context, taxonomy string) ([]Term, error) {
	var terms []Term
	if err := f.read(fmt.Sprintf("terms.%s.json", taxonomy), &terms); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return terms, nil
}

func (f *FileFetcher) read(name string, out any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
