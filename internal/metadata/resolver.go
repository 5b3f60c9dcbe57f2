/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package metadata fills in each round track's cover and duration from the
// streaming service, falling back to catalog values when a lookup fails.
package metadata

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/pixeltunes/internal/catalog"
	"github.com/Seednode/pixeltunes/internal/spotify"
)

const (
	DefaultCacheSize   = 256
	DefaultConcurrency = 4
)

// Fetcher looks up one track by its streaming service id.
type Fetcher interface {
	Track(ctx context.Context, id string) (*spotify.Track, error)
}

type Info struct {
	CoverURL   string
	DurationMs int
}

// Resolver caches lookups across rounds and sessions. Failures are not cached.
type Resolver struct {
	cache       *lru.Cache[string, Info]
	concurrency int
	logf        func(format string, args ...any)
}

func NewResolver(size int, logf func(format string, args ...any)) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}

	cache, err := lru.New[string, Info](size)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		cache:       cache,
		concurrency: DefaultConcurrency,
		logf:        logf,
	}, nil
}

// Resolve returns a copy of tracks with CoverURL and DurationMs filled in.
// A nil fetcher, or a failed lookup, keeps the catalog cover and uses
// catalog.DefaultDurationMs when the track has no duration of its own.
func (r *Resolver) Resolve(ctx context.Context, f Fetcher, tracks []catalog.Track) []catalog.Track {
	out := slices.Clone(tracks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range out {
		g.Go(func() error {
			out[i] = r.resolve(ctx, f, out[i])
			return nil
		})
	}

	_ = g.Wait()

	return out
}

// Cached returns what an earlier lookup learned about spotifyID.
func (r *Resolver) Cached(spotifyID string) (Info, bool) {
	if spotifyID == "" {
		return Info{}, false
	}
	return r.cache.Get(spotifyID)
}

func (r *Resolver) resolve(ctx context.Context, f Fetcher, t catalog.Track) catalog.Track {
	if info, ok := r.cache.Get(t.SpotifyID); ok && t.SpotifyID != "" {
		return apply(t, info)
	}

	if f == nil || t.SpotifyID == "" {
		return fallback(t)
	}

	st, err := f.Track(ctx, t.SpotifyID)
	if err != nil {
		r.logf("METADATA: Lookup of %s failed, using catalog values: %v", t.SpotifyID, err)
		return fallback(t)
	}

	info := Info{CoverURL: st.CoverURL(), DurationMs: st.DurationMs}
	r.cache.Add(t.SpotifyID, info)

	return apply(t, info)
}

func apply(t catalog.Track, info Info) catalog.Track {
	if info.CoverURL != "" {
		t.CoverURL = info.CoverURL
	}
	if info.DurationMs > 0 {
		t.DurationMs = info.DurationMs
	}
	return fallback(t)
}

func fallback(t catalog.Track) catalog.Track {
	if t.DurationMs <= 0 {
		t.DurationMs = catalog.DefaultDurationMs
	}
	return t
}
