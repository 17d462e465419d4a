// Package snapshot loads the bookings, team and services a calendar view
// renders. Concurrent loads of the same range share one fetch, a refresh
// cancels the fetch it supersedes, and the last good snapshot per range is
// kept so a failed fetch degrades to stale data instead of an empty grid.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/models"
)

const (
	DefaultTimeout       = 15 * time.Second
	DefaultCacheTTL      = 30 * time.Minute
	DefaultMaxConcurrent = 6
)

// errSuperseded ends a fetch that a Refresh replaced. Waiters rejoin the
// replacement instead of reporting it.
var errSuperseded = errors.New("snapshot fetch superseded by refresh")

// Source is the read side of the booking backend.
type Source interface {
	ListBookings(ctx context.Context, date time.Time) ([]models.Booking, error)
	ListTeamMembers(ctx context.Context) ([]models.Resource, error)
	ListServices(ctx context.Context) ([]models.Service, error)
}

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Range is a half-open interval of calendar dates [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// RangeFor returns the dates a view state needs bookings for.
func RangeFor(state calendar.State) Range {
	from, to := calendar.RangeOf(state)
	return Range{From: from, To: to}
}

func (r Range) Key() string {
	return calendar.DateKey(r.From) + "/" + calendar.DateKey(r.To)
}

func (r Range) Dates() []time.Time {
	var dates []time.Time
	for date := calendar.TruncateDate(r.From); date.Before(r.To); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date)
	}
	return dates
}

// Result separates "no data" from "fetch failed". When Err is set and
// Stale is true, Snapshot is the last good snapshot for the range.
type Result struct {
	Snapshot models.Snapshot
	Err      error
	Stale    bool
}

func (r Result) HasData() bool {
	return r.Err == nil || r.Stale
}

type Options struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	MaxConcurrent int
	Clock         Clock
}

type flight struct {
	id     uint64
	cancel context.CancelCauseFunc
}

type Fetcher struct {
	source        Source
	timeout       time.Duration
	maxConcurrent int
	clock         Clock
	logger        zerolog.Logger

	group singleflight.Group
	cache *cache.Cache

	mu       sync.Mutex
	inflight map[string]flight
	nextID   uint64
	latest   *Range
}

func New(source Source, opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Fetcher{
		source:        source,
		timeout:       timeout,
		maxConcurrent: maxConcurrent,
		clock:         clock,
		logger:        log.With().Str("component", "snapshot").Logger(),
		cache:         cache.New(ttl, ttl/2),
		inflight:      make(map[string]flight),
	}
}

// Load returns the snapshot for rng, joining a fetch already in flight for
// the same range. The fetch itself is detached from ctx so one caller going
// away does not fail the others; ctx only bounds how long this caller waits.
func (f *Fetcher) Load(ctx context.Context, rng Range) Result {
	key := rng.Key()
	f.remember(rng)

	for {
		ch := f.group.DoChan(key, func() (any, error) {
			return f.fetch(key, rng)
		})
		select {
		case res := <-ch:
			if errors.Is(res.Err, errSuperseded) {
				continue
			}
			if res.Err != nil {
				return f.fallback(ctx, key, res.Err)
			}
			return Result{Snapshot: res.Val.(models.Snapshot)}
		case <-ctx.Done():
			return f.fallback(ctx, key, ctx.Err())
		}
	}
}

// Refresh cancels any fetch in flight for rng and starts a new one. Callers
// still waiting on the cancelled fetch join the new one.
func (f *Fetcher) Refresh(ctx context.Context, rng Range) Result {
	key := rng.Key()
	f.mu.Lock()
	if current, ok := f.inflight[key]; ok {
		current.cancel(errSuperseded)
		delete(f.inflight, key)
	}
	f.group.Forget(key)
	f.mu.Unlock()

	return f.Load(ctx, rng)
}

// RefreshLatest refreshes the most recently loaded range. It reports false
// when nothing has been loaded yet.
func (f *Fetcher) RefreshLatest(ctx context.Context) (Result, bool) {
	rng, ok := f.Latest()
	if !ok {
		return Result{}, false
	}
	return f.Refresh(ctx, rng), true
}

func (f *Fetcher) Latest() (Range, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return Range{}, false
	}
	return *f.latest, true
}

// Cached returns the last good snapshot for rng without fetching.
func (f *Fetcher) Cached(rng Range) (models.Snapshot, bool) {
	value, ok := f.cache.Get(rng.Key())
	if !ok {
		return models.Snapshot{}, false
	}
	return value.(models.Snapshot), true
}

func (f *Fetcher) remember(rng Range) {
	f.mu.Lock()
	f.latest = &rng
	f.mu.Unlock()
}

func (f *Fetcher) fetch(key string, rng Range) (models.Snapshot, error) {
	base, supersede := context.WithCancelCause(context.Background())
	defer supersede(nil)
	ctx, cancel := context.WithTimeout(base, f.timeout)
	defer cancel()

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.inflight[key] = flight{id: id, cancel: supersede}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		if current, ok := f.inflight[key]; ok && current.id == id {
			delete(f.inflight, key)
		}
		f.mu.Unlock()
	}()

	started := f.clock.Now()
	dates := rng.Dates()
	perDate := make([][]models.Booking, len(dates))
	var resources []models.Resource
	var services []models.Service

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrent)
	g.Go(func() error {
		var err error
		resources, err = f.source.ListTeamMembers(gctx)
		if err != nil {
			return fmt.Errorf("list team members: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		services, err = f.source.ListServices(gctx)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		return nil
	})
	for i, date := range dates {
		g.Go(func() error {
			bookings, err := f.source.ListBookings(gctx, date)
			if err != nil {
				return fmt.Errorf("list bookings for %s: %w", calendar.DateKey(date), err)
			}
			perDate[i] = bookings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(context.Cause(ctx), errSuperseded) {
			return models.Snapshot{}, errSuperseded
		}
		return models.Snapshot{}, err
	}

	total := 0
	for _, bookings := range perDate {
		total += len(bookings)
	}
	snap := models.Snapshot{
		Bookings:  make([]models.Booking, 0, total),
		Resources: resources,
		Services:  services,
		FetchedAt: f.clock.Now(),
	}
	for _, bookings := range perDate {
		snap.Bookings = append(snap.Bookings, bookings...)
	}
	f.cache.Set(key, snap, cache.DefaultExpiration)

	f.logger.Debug().
		Str("range", key).
		Int("bookings", len(snap.Bookings)).
		Int("resources", len(resources)).
		Dur("duration", f.clock.Now().Sub(started)).
		Msg("Snapshot fetched")
	return snap, nil
}

func (f *Fetcher) fallback(ctx context.Context, key string, err error) Result {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &f.logger
	}
	if value, ok := f.cache.Get(key); ok {
		logger.Warn().Err(err).Str("range", key).Msg("Snapshot fetch failed, serving last good snapshot")
		return Result{Snapshot: value.(models.Snapshot), Err: err, Stale: true}
	}
	logger.Warn().Err(err).Str("range", key).Msg("Snapshot fetch failed with nothing cached")
	return Result{Err: err}
}
