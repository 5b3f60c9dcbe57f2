/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/julienschmidt/httprouter"
	_ "golang.org/x/image/webp"

	"github.com/Seednode/pixeltunes/internal/catalog"
	"github.com/Seednode/pixeltunes/internal/metadata"
	"github.com/Seednode/pixeltunes/internal/pixelate"
)

const maxCoverBytes = 8 << 20

var errNoCover = errors.New("track has no cover url")

// CoverSource fetches and decodes album art, keeping recent images in memory.
type CoverSource struct {
	client *http.Client
	cache  *lru.Cache[string, image.Image]
}

func newCoverSource(client *http.Client, size int) (*CoverSource, error) {
	cache, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &CoverSource{client: client, cache: cache}, nil
}

func (s *CoverSource) Image(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, errNoCover
	}

	if img, ok := s.cache.Get(url); ok {
		return img, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: http %d", url, res.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(res.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	s.cache.Add(url, img)

	return img, nil
}

// coverURL prefers art found through the metadata service over the
// catalog's own.
func coverURL(t catalog.Track, resolver *metadata.Resolver) string {
	if info, ok := resolver.Cached(t.SpotifyID); ok && info.CoverURL != "" {
		return info.CoverURL
	}
	return t.CoverURL
}

func serveCover(cfg *Config, store *catalog.Store, resolver *metadata.Resolver, covers *CoverSource, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		t, ok := store.Catalog().Track(p.ByName("id"))
		if !ok {
			http.NotFound(w, r)

			return
		}

		factor := cfg.pixelFactor
		if f, err := strconv.Atoi(r.URL.Query().Get("factor")); err == nil {
			factor = f
		}

		var out image.Image

		src, err := covers.Image(r.Context(), coverURL(t, resolver))
		if err != nil {
			logf(cfg, "COVER: Using placeholder for %s: %v", t.ID, err)
			out = pixelate.Placeholder(cfg.coverSize)
		} else {
			out = pixelate.Render(src, factor, cfg.coverSize, cfg.coverSize)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, out); err != nil {
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		cacheFor(w, time.Hour)
		securityHeaders(cfg, w)

		written, err := w.Write(buf.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "COVER: %s at factor %d (%s) to %s in %s",
			t.ID,
			factor,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
