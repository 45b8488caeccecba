// Package pipeline drives a migration run: loading source collections,
// transforming them locale by locale and type by type, patching forward
// references once slug registries are complete, and persisting artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/portage/internal/assets"
	"github.com/MikeSquared-Agency/portage/internal/config"
	"github.com/MikeSquared-Agency/portage/internal/export"
	"github.com/MikeSquared-Agency/portage/internal/links"
	"github.com/MikeSquared-Agency/portage/internal/source"
	"github.com/MikeSquared-Agency/portage/internal/story"
	"github.com/MikeSquared-Agency/portage/internal/transform"
)

// Runner orchestrates one migration run. It owns the three run-scoped
// registries (slugs, assets, pending links) and threads them through every
// transform call via the transform context.
type Runner struct {
	rt      config.Runtime
	mapping *config.Mapping
	fetcher source.Fetcher

	assets    *assets.Registry
	resolver  *links.Resolver
	stories   *story.Registry
	organizer *story.Organizer
	refs      *transform.RefRegistry
	types     map[string]*transform.ContentTypeSpec

	writer  *export.Writer
	logger  *slog.Logger
	authors []source.Author

	stage   Stage
	summary Summary
	dryRun  bool
}

// New configures a runner. Compilation and validation failures here are
// fatal: the run never starts with a configuration that could fail mid-item.
func New(rt config.Runtime, mapping *config.Mapping, fetcher source.Fetcher, reg *assets.Registry, funcs map[string]transform.Func, dryRun bool, logger *slog.Logger) (*Runner, error) {
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("configuring: %w", err)
	}
	types, err := transform.CompileMapping(mapping, funcs)
	if err != nil {
		return nil, fmt.Errorf("configuring: %w", err)
	}

	stories := story.NewRegistry()
	resolver := links.NewResolver(links.Options{
		SourceHost:      mapping.SourceHost,
		AssetExtensions: mapping.AssetExtensions,
		StripParams:     mapping.StripParams,
	}, stories, reg, logger)

	return &Runner{
		rt:        rt,
		mapping:   mapping,
		fetcher:   fetcher,
		assets:    reg,
		resolver:  resolver,
		stories:   stories,
		organizer: story.NewOrganizer(mapping, stories, logger),
		refs:      transform.NewRefRegistry(),
		types:     types,
		writer:    export.NewWriter(rt.OutputDir, mapping, logger),
		logger:    logger,
		stage:     StageConfiguring,
		dryRun:    dryRun,
	}, nil
}

// Stage reports the runner's current state machine position.
func (r *Runner) Stage() Stage { return r.stage }

// Stories exposes the story registry, mainly for tests and callers that
// hand results to the upload client directly.
func (r *Runner) Stories() *story.Registry { return r.stories }

// Run executes the full pipeline and returns the run summary. The returned
// error is non-nil only for fatal failures; recoverable problems are
// absorbed into the summary counts.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.summary = Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	r.logger.Info("run starting", "run_id", r.summary.RunID, "locales", r.mapping.Locales)

	loaded, media, authors, err := r.load(ctx)
	if err != nil {
		return r.fail(err)
	}

	r.transition(StageTransforming)
	for _, locale := range r.mapping.Locales {
		r.transformLocale(ctx, locale, loaded[locale], media, authors)
	}

	r.transition(StagePatchingReferences)
	for _, locale := range r.mapping.Locales {
		lr, ld := r.resolver.PatchLocale(locale)
		rr, rd := r.refs.PatchLocale(r.stories, locale, r.logger)
		r.summary.LinksResolved += lr
		r.summary.LinksDowngraded += ld
		r.summary.RefsResolved += rr
		r.summary.RefsDropped += rd
	}

	if !r.dryRun {
		r.transition(StagePersisting)
		if err := r.persist(ctx); err != nil {
			return r.fail(err)
		}
	}

	r.transition(StageDone)
	r.finishSummary()
	if !r.dryRun {
		if err := export.WriteJSON(filepath.Join(r.rt.OutputDir, "summary.json"), &r.summary); err != nil {
			return r.fail(fmt.Errorf("persisting summary: %w", err))
		}
	}
	r.logger.Info("run complete",
		"run_id", r.summary.RunID,
		"stories", r.summary.StoriesCreated,
		"skipped", r.summary.ItemsSkipped,
		"links_downgraded", r.summary.LinksDowngraded,
		"assets_failed", r.summary.AssetsFailed,
	)
	return &r.summary, nil
}

// load fetches every configured collection up front. Any fetch error is
// fatal: a partially loaded input set would produce confusing output.
func (r *Runner) load(ctx context.Context) (map[string]map[string][]source.Item, map[string]*source.Media, map[string]*source.Author, error) {
	r.transition(StageLoading)

	loaded := make(map[string]map[string][]source.Item, len(r.mapping.Locales))
	for _, locale := range r.mapping.Locales {
		loaded[locale] = make(map[string][]source.Item, len(r.types))
		for _, ct := range r.typeNames() {
			items, err := r.fetcher.Items(ctx, locale, ct)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("loading %s/%s: %w", locale, ct, err)
			}
			source.Sort(items)
			loaded[locale][ct] = items
			r.summary.ItemsLoaded += len(items)
		}
	}

	mediaList, err := r.fetcher.Media(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading media: %w", err)
	}
	media := make(map[string]*source.Media, len(mediaList))
	urls := make([]string, 0, len(mediaList))
	for i := range mediaList {
		media[mediaList[i].ID] = &mediaList[i]
		if u := mediaList[i].OriginURL; u != "" {
			urls = append(urls, u)
		}
	}

	authorList, err := r.fetcher.Authors(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading authors: %w", err)
	}
	r.authors = authorList
	authors := make(map[string]*source.Author, len(authorList))
	for i := range authorList {
		authors[authorList[i].ID] = &authorList[i]
	}

	// warm the staging cache so per-item transforms hit resolved descriptors
	r.assets.Prefetch(ctx, urls)

	r.logger.Info("source loaded", "items", r.summary.ItemsLoaded, "media", len(media), "authors", len(authors))
	return loaded, media, authors, nil
}

// transformLocale processes every configured content type of one locale.
// Order across types does not affect correctness; order within a type is the
// sorted source-ID order established at load.
func (r *Runner) transformLocale(ctx context.Context, locale string, byType map[string][]source.Item, media map[string]*source.Media, authors map[string]*source.Author) {
	index := make(map[string]*source.Item)
	for _, items := range byType {
		for i := range items {
			index[items[i].ID] = &items[i]
		}
	}

	tc := &transform.Context{
		Ctx:     ctx,
		Locale:  locale,
		Items:   index,
		Media:   media,
		Authors: authors,
		Assets:  r.assets,
		Links:   r.resolver,
		Stories: r.stories,
		Refs:    r.refs,
		Logger:  r.logger,
	}

	for _, ct := range r.typeNames() {
		cts := r.types[ct]
		for i := range byType[ct] {
			item := &byType[ct][i]
			if item.Title == "" {
				r.summary.ItemsSkipped++
				r.summary.Errors = append(r.summary.Errors, fmt.Sprintf("%s/%s item %s: missing title", locale, ct, item.ID))
				r.logger.Warn("item skipped", "locale", locale, "type", ct, "id", item.ID, "reason", "missing title")
				continue
			}

			content := make(map[string]any, len(cts.Fields)+1)
			content["component"] = cts.Component
			for field, spec := range cts.Fields {
				src := spec.Source
				if src == "" {
					src = field
				}
				content[field] = transform.Apply(item.Field(src), spec, tc)
			}

			if _, err := r.organizer.Organize(item, ct, content); err != nil {
				r.summary.ItemsSkipped++
				r.summary.Errors = append(r.summary.Errors, fmt.Sprintf("%s/%s item %s: %v", locale, ct, item.ID, err))
				r.logger.Warn("item skipped", "locale", locale, "type", ct, "id", item.ID, "error", err)
				continue
			}
			r.summary.StoriesCreated++
		}
	}
}

func (r *Runner) persist(ctx context.Context) error {
	if err := r.writer.WriteStories(r.stories); err != nil {
		return fmt.Errorf("persisting stories: %w", err)
	}
	if err := r.writer.WriteAssetManifest(r.assets.All()); err != nil {
		return fmt.Errorf("persisting asset manifest: %w", err)
	}
	for _, taxonomy := range r.mapping.Taxonomies {
		terms, err := r.fetcher.Terms(ctx, taxonomy)
		if err != nil {
			return fmt.Errorf("persisting datasource %s: %w", taxonomy, err)
		}
		if err := r.writer.WriteDatasource(taxonomy, terms, ""); err != nil {
			return fmt.Errorf("persisting datasource %s: %w", taxonomy, err)
		}
	}
	if len(r.authors) > 0 {
		if err := r.writer.WriteAuthors(r.authors); err != nil {
			return fmt.Errorf("persisting authors datasource: %w", err)
		}
	}
	return nil
}

func (r *Runner) typeNames() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) transition(next Stage) {
	r.logger.Debug("stage transition", "from", r.stage.String(), "to", next.String())
	r.stage = next
	r.summary.Stage = next.String()
}

func (r *Runner) finishSummary() {
	r.summary.FinishedAt = time.Now().UTC()
	r.summary.Stage = r.stage.String()
	r.summary.AssetsResolved = len(r.assets.All())
	r.summary.AssetsReused = r.assets.Reused()
	r.summary.AssetsFailed = r.assets.Failed()
}

func (r *Runner) fail(err error) (*Summary, error) {
	r.transition(StageFailed)
	r.finishSummary()
	r.logger.Error("run failed", "run_id", r.summary.RunID, "stage", r.summary.Stage, "error", err)
	return &r.summary, err
}
