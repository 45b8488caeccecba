// Package assets stages every distinct external binary exactly once and hands
// out stable descriptors for it. The registry is the dedup authority for a
// run: two resolutions of the same origin URL return the same *Descriptor.
package assets

import (
	"crypto/sha1"
	"encoding/hex"
	"path"
	"strings"
)

// Descriptor represents one distinct binary resource. TargetID is filled in
// by the external upload client after the run; the core never sets it.
type Descriptor struct {
	OriginURL   string `json:"origin_url"`
	StagedPath  string `json:"staged_path,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
	Title       string `json:"title,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Passthrough bool   `json:"passthrough,omitempty"`
}

// Target returns the value a transformed field should reference: the uploaded
// target ID when known, otherwise the origin URL.
func (d *Descriptor) Target() string {
	if d.TargetID != "" {
		return d.TargetID
	}
	return d.OriginURL
}

// Meta carries optional source metadata into a resolution.
type Meta struct {
	AltText string
	Title   string
	Width   int
	Height  int
}

// StagedName derives a deterministic local filename from a URL: a short hash
// of the full URL plus the sanitized original basename. The hash prefix keeps
// same-named files from different hosts apart and keeps the scheme safe on
// case-insensitive filesystems.
func StagedName(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	prefix := hex.EncodeToString(sum[:])[:12]

	base := path.Base(strings.SplitN(rawURL, "?", 2)[0])
	base = strings.ToLower(base)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	sanitized := strings.Trim(b.String(), "-.")
	if sanitized == "" {
		sanitized = "asset"
	}
	return prefix + "-" + sanitized
}
