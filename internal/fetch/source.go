// Package fetch retrieves catalog pages over HTTP with retries, robots.txt
// compliance, per-host rate limiting and a page cache.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ppiankov/songcorpus/internal/cache"
	"github.com/ppiankov/songcorpus/internal/model"
	"github.com/ppiankov/songcorpus/internal/worker"
)

// PageSource returns the rendered HTML of a page
type PageSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// settleSleepFunc is swapped out by tests to skip the settle delay
var settleSleepFunc = time.Sleep

// Source is the network-backed PageSource
type Source struct {
	fetcher  *Fetcher
	cache    cache.Cache
	cacheTTL time.Duration
	robots   *RobotsChecker
	limiter  *worker.Limiter
	settle   time.Duration
}

// NewPageCache returns the configured page cache, or a no-op cache when caching is disabled
func NewPageCache(cfg *model.Config, fs afero.Fs) cache.Cache {
	if !cfg.Cache.Enabled {
		return cache.Nop{}
	}
	return cache.NewLayeredCache(fs, cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
}

// NewSource wires a Source from configuration. The disk cache lives on fs.
func NewSource(cfg *model.Config, fs afero.Fs) *Source {
	f := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)

	s := &Source{
		fetcher:  f,
		cache:    NewPageCache(cfg, fs),
		cacheTTL: cfg.Cache.DiskTTL,
		limiter:  worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		settle:   cfg.HTTP.SettleDelay,
	}
	if cfg.Robots.Respect {
		s.robots = NewRobotsChecker(f.Client(), f.UserAgent())
	}
	return s
}

// Fetch returns the page HTML, from cache when possible. Network fetches are
// followed by the settle delay, which is not interrupted by ctx.
func (s *Source) Fetch(ctx context.Context, url string) (string, error) {
	key := cache.PageKey(url)
	if cached, ok := s.cache.Get(key); ok {
		log.Debug().Str("url", url).Msg("Page cache hit")
		return string(cached), nil
	}

	if s.robots != nil {
		allowed, delay, err := s.robots.CanFetch(ctx, url)
		if err != nil {
			return "", fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return "", fmt.Errorf("%s: %w", url, ErrDisallowed)
		}
		if err := s.limiter.ApplyCrawlDelay(url, delay); err != nil {
			return "", fmt.Errorf("apply crawl delay: %w", err)
		}
	}

	if err := s.limiter.Wait(ctx, url); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	result, err := s.fetcher.FetchWithRetry(ctx, url)
	if err != nil {
		return "", err
	}

	if s.settle > 0 {
		settleSleepFunc(s.settle)
	}

	if err := s.cache.Set(key, []byte(result.HTML), s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to cache page")
	}
	return result.HTML, nil
}
