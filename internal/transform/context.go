package transform

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/portage/internal/assets"
	"github.com/MikeSquared-Agency/portage/internal/links"
	"github.com/MikeSquared-Agency/portage/internal/source"
	"github.com/MikeSquared-Agency/portage/internal/story"
)

// Context is the ephemeral, read-only view handed to every transform call.
// It carries the current locale plus references to the run-scoped registries
// owned by the orchestrator. Transforms look things up and record pending
// work through it; they never own any of it.
type Context struct {
	Ctx     context.Context
	Locale  string
	Items   map[string]*source.Item
	Media   map[string]*source.Media
	Authors map[string]*source.Author
	Assets  *assets.Registry
	Links   *links.Resolver
	Stories *story.Registry
	Refs    *RefRegistry
	Logger  *slog.Logger
}
