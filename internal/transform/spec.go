// Package transform converts individual source field values into target
// field values. Transform specs compile once at configuration-load time into
// a closed tagged form, so the per-item hot path is a single switch instead
// of repeated runtime type inspection.
package transform

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/MikeSquared-Agency/portage/internal/config"
)

// Transform kinds.
const (
	KindRichtext   = "richtext"
	KindMarkdown   = "markdown"
	KindAsset      = "asset"
	KindReference  = "reference"
	KindReferences = "references"
	KindTags       = "tags"
	KindDatetime   = "datetime"
	KindLink       = "link"
	KindAuthor     = "author"
	KindString     = "string"
	KindCustom     = "custom"
)

// Func is a caller-supplied pure transform.
type Func func(value any, tc *Context) any

// StringOptions configure the string kind.
type StringOptions struct {
	Trim        bool `mapstructure:"trim"`
	StripMarkup bool `mapstructure:"strip_markup"`
	MaxLength   int  `mapstructure:"max_length"`
}

// TagsOptions configure the tags kind.
type TagsOptions struct {
	Delimiter string `mapstructure:"delimiter"`
}

type customOptions struct {
	Name string `mapstructure:"name"`
}

// Spec is one compiled field transform: a named kind with decoded options,
// or a caller-supplied function.
type Spec struct {
	Kind   string
	Source string // source field name; empty means same as target field
	Fn     Func
	String StringOptions
	Tags   TagsOptions
}

// ContentTypeSpec is one content type's compiled field-mapping table.
type ContentTypeSpec struct {
	Component string
	Fields    map[string]*Spec
}

// Compile turns a raw field spec into its dispatchable form. Unknown kinds
// and unknown option keys are configuration errors; they surface here, at
// load time, never mid-run.
func Compile(fs config.FieldSpec, funcs map[string]Func) (*Spec, error) {
	s := &Spec{Kind: fs.Kind, Source: fs.Source}

	switch fs.Kind {
	case KindRichtext, KindMarkdown, KindAsset, KindReference, KindReferences, KindDatetime, KindLink, KindAuthor:
		if len(fs.Options) > 0 {
			return nil, fmt.Errorf("transform kind %q takes no options, got %v", fs.Kind, keys(fs.Options))
		}
	case KindString:
		if err := decodeOptions(fs.Options, &s.String); err != nil {
			return nil, fmt.Errorf("string options: %w", err)
		}
	case KindTags:
		if err := decodeOptions(fs.Options, &s.Tags); err != nil {
			return nil, fmt.Errorf("tags options: %w", err)
		}
	case KindCustom:
		var opts customOptions
		if err := decodeOptions(fs.Options, &opts); err != nil {
			return nil, fmt.Errorf("custom options: %w", err)
		}
		fn, ok := funcs[opts.Name]
		if !ok {
			return nil, fmt.Errorf("custom transform %q is not registered", opts.Name)
		}
		s.Fn = fn
	default:
		return nil, fmt.Errorf("unknown transform kind %q", fs.Kind)
	}
	return s, nil
}

// CompileMapping compiles every configured content type's field table.
func CompileMapping(m *config.Mapping, funcs map[string]Func) (map[string]*ContentTypeSpec, error) {
	out := make(map[string]*ContentTypeSpec, len(m.ContentTypes))
	for name, ct := range m.ContentTypes {
		cts := &ContentTypeSpec{Component: ct.Component, Fields: make(map[string]*Spec, len(ct.Fields))}
		for field, fs := range ct.Fields {
			spec, err := Compile(fs, funcs)
			if err != nil {
				return nil, fmt.Errorf("content type %q field %q: %w", name, field, err)
			}
			cts.Fields[field] = spec
		}
		out[name] = cts
	}
	return out, nil
}

func decodeOptions(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
