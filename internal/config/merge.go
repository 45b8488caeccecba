package config

// Merge combines a base mapping with an override, deep-override semantics:
// scalar zero values in the override do not clobber the base, lists replace
// wholesale when present, and maps merge key-wise (recursively for content
// types). The result is a new Mapping; neither input is mutated.
func Merge(base, override Mapping) Mapping {
	out := base

	if len(override.Locales) > 0 {
		out.Locales = append([]string(nil), override.Locales...)
	}
	if override.DefaultLocale != "" {
		out.DefaultLocale = override.DefaultLocale
	}
	out.LocalePrefix = mergeStringMap(base.LocalePrefix, override.LocalePrefix)
	out.LocaleSuffix = mergeStringMap(base.LocaleSuffix, override.LocaleSuffix)

	if override.SourceHost != "" {
		out.SourceHost = override.SourceHost
	}
	if override.ManagedMedia != "" {
		out.ManagedMedia = override.ManagedMedia
	}
	if override.Strategy != "" {
		out.Strategy = override.Strategy
	}
	if override.Placement != "" {
		out.Placement = override.Placement
	}
	if override.Granularity != "" {
		out.Granularity = override.Granularity
	}

	if len(override.Folders) > 0 {
		out.Folders = append([]FolderRule(nil), override.Folders...)
	}
	if len(override.Taxonomies) > 0 {
		out.Taxonomies = append([]string(nil), override.Taxonomies...)
	}
	if len(override.AssetExtensions) > 0 {
		out.AssetExtensions = append([]string(nil), override.AssetExtensions...)
	}
	if len(override.StripParams) > 0 {
		out.StripParams = append([]string(nil), override.StripParams...)
	}

	out.ContentTypes = mergeContentTypes(base.ContentTypes, override.ContentTypes)
	return out
}

func mergeContentTypes(base, override map[string]ContentType) map[string]ContentType {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]ContentType, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, ov := range override {
		bv, ok := out[k]
		if !ok {
			out[k] = ov
			continue
		}
		if ov.Component != "" {
			bv.Component = ov.Component
		}
		if ov.Folder != "" {
			bv.Folder = ov.Folder
		}
		bv.Fields = mergeFields(bv.Fields, ov.Fields)
		out[k] = bv
	}
	return out
}

func mergeFields(base, override map[string]FieldSpec) map[string]FieldSpec {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]FieldSpec, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeStringMap(base, override map[string]string) map[string]string {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
