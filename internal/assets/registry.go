package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Options configures a Registry.
type Options struct {
	StagingDir     string
	ManagedPrefix  string // source platform's own media namespace, passthrough
	RetryAttempts  int
	RetryBaseDelay time.Duration
	HTTPTimeout    time.Duration
	Workers        int // bounded concurrency for Prefetch
}

// Registry is the run-scoped asset deduplicator. Resolve is idempotent by
// origin URL and downloads at most once per URL; concurrent resolutions of
// the same URL share one in-flight download.
type Registry struct {
	opts     Options
	client   *http.Client
	manifest *Manifest // optional warm cache, may be nil
	logger   *slog.Logger

	mu    sync.Mutex
	byURL map[string]*Descriptor // nil value = resolution already failed this run
	group singleflight.Group

	failed int
	reused int
}

func NewRegistry(opts Options, manifest *Manifest, logger *slog.Logger) *Registry {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Registry{
		opts:     opts,
		client:   &http.Client{Timeout: opts.HTTPTimeout},
		manifest: manifest,
		logger:   logger,
		byURL:    make(map[string]*Descriptor),
	}
}

// Resolve returns the descriptor for a URL, staging the binary on first sight.
// A nil return means the asset could not be fetched after retries; callers
// treat that as "no asset", never as an item failure.
func (r *Registry) Resolve(ctx context.Context, rawURL string, meta Meta) *Descriptor {
	if rawURL == "" {
		return nil
	}

	// The source platform's own media namespace is handled by the external
	// media pipeline; such URLs pass through untouched.
	if r.opts.ManagedPrefix != "" && strings.HasPrefix(rawURL, r.opts.ManagedPrefix) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if d, ok := r.byURL[rawURL]; ok {
			return d
		}
		d := &Descriptor{OriginURL: rawURL, Passthrough: true}
		applyMeta(d, meta)
		r.byURL[rawURL] = d
		return d
	}

	r.mu.Lock()
	if d, ok := r.byURL[rawURL]; ok {
		r.mu.Unlock()
		return d
	}
	r.mu.Unlock()

	v, _, _ := r.group.Do(rawURL, func() (any, error) {
		// Re-check under the group: another caller may have finished while
		// this one was queued.
		r.mu.Lock()
		if d, ok := r.byURL[rawURL]; ok {
			r.mu.Unlock()
			return d, nil
		}
		r.mu.Unlock()

		d := r.stage(ctx, rawURL)
		if d != nil {
			applyMeta(d, meta)
		}

		r.mu.Lock()
		r.byURL[rawURL] = d
		if d == nil {
			r.failed++
		}
		r.mu.Unlock()
		return d, nil
	})
	if v == nil {
		return nil
	}
	return v.(*Descriptor)
}

// stage downloads the URL to the staging directory, consulting the persistent
// manifest first so warm re-runs skip the network entirely.
func (r *Registry) stage(ctx context.Context, rawURL string) *Descriptor {
	if r.manifest != nil {
		if d, ok := r.manifest.Lookup(rawURL); ok {
			if st, err := os.Stat(d.StagedPath); err == nil && st.Size() == d.Size {
				r.mu.Lock()
				r.reused++
				r.mu.Unlock()
				r.logger.Debug("asset cache hit", "url", rawURL, "staged", d.StagedPath)
				return d
			}
		}
	}

	staged := filepath.Join(r.opts.StagingDir, StagedName(rawURL))

	var size int64
	err := retry.Do(
		func() error {
			n, err := r.download(ctx, rawURL, staged)
			if err != nil {
				return err
			}
			size = n
			return nil
		},
		retry.Attempts(uint(r.opts.RetryAttempts)),
		retry.Delay(r.opts.RetryBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		r.logger.Warn("asset download failed, treating as absent", "url", rawURL, "error", err)
		return nil
	}

	d := &Descriptor{
		OriginURL:  rawURL,
		StagedPath: staged,
		Size:       size,
		Checksum:   checksumFile(staged),
	}
	if r.manifest != nil {
		if err := r.manifest.Record(d); err != nil {
			r.logger.Warn("failed to record asset in manifest", "url", rawURL, "error", err)
		}
	}
	r.logger.Debug("asset staged", "url", rawURL, "staged", staged, "size", size)
	return d
}

func (r *Registry) download(ctx context.Context, rawURL, staged string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(staged), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir staging: %w", err)
	}
	f, err := os.Create(staged)
	if err != nil {
		return 0, fmt.Errorf("create staged file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(staged)
		return 0, fmt.Errorf("write staged file: %w", err)
	}
	if n == 0 {
		os.Remove(staged)
		return 0, fmt.Errorf("zero-byte response")
	}
	return n, nil
}

// Prefetch warms the registry for a set of URLs with a bounded worker budget.
// Failures are absorbed the same way Resolve absorbs them.
func (r *Registry) Prefetch(ctx context.Context, urls []string) {
	g, gctx := errgroup.WithContext(ctx)
	limit := r.opts.Workers
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			r.Resolve(gctx, u, Meta{})
			return nil
		})
	}
	_ = g.Wait()
}

// All returns every successfully resolved descriptor, ordered by origin URL
// so the persisted manifest is stable across runs.
func (r *Registry) All() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Descriptor, 0, len(r.byURL))
	for _, d := range r.byURL {
		if d != nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginURL < out[j].OriginURL })
	return out
}

// Failed reports how many URLs exhausted their retries this run.
func (r *Registry) Failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// Reused reports how many resolutions were served from the warm manifest.
func (r *Registry) Reused() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reused
}

func applyMeta(d *Descriptor, meta Meta) {
	if d.AltText == "" {
		d.AltText = meta.AltText
	}
	if d.Title == "" {
		d.Title = meta.Title
	}
	if d.Width == 0 {
		d.Width = meta.Width
	}
	if d.Height == 0 {
		d.Height = meta.Height
	}
}
