package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/plantkeep/domain/cache"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/observability"
	"github.com/felixgeelhaar/plantkeep/infrastructure/resilience"
	"github.com/felixgeelhaar/plantkeep/infrastructure/statemachine"
)

// Load errors.
var (
	// ErrNoData is returned when neither the remote nor the cache could
	// supply a value.
	ErrNoData = errors.New("no data available")

	// ErrRejected is returned when a fetched value fails the accept check.
	ErrRejected = errors.New("remote result rejected")
)

// Source names where a loaded value came from.
type Source string

// Load sources.
const (
	SourceFresh  Source = "fresh"
	SourceRemote Source = "remote"
	SourceStale  Source = "stale"
	SourceNone   Source = "none"
)

// Result is the outcome of a load.
type Result[T any] struct {
	Data    T
	Source  Source
	Offline bool
	// Age is the age of cached data; zero for remote data.
	Age  time.Duration
	Path []statemachine.State
}

// FetchFunc retrieves the remote value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// LoaderOption configures a Loader.
type LoaderOption[T any] func(*Loader[T])

// WithExecutor sets the resilience executor wrapping the fetch.
func WithExecutor[T any](e *resilience.Executor[T]) LoaderOption[T] {
	return func(l *Loader[T]) {
		l.exec = e
	}
}

// WithTracer sets the tracer for load and fetch spans.
func WithTracer[T any](t trace.Tracer) LoaderOption[T] {
	return func(l *Loader[T]) {
		l.tracer = t
	}
}

// WithAccept treats fetched values failing fn as a fetch failure.
func WithAccept[T any](fn func(T) bool) LoaderOption[T] {
	return func(l *Loader[T]) {
		l.accept = fn
	}
}

// Loader serves a cached value, refreshing it from the remote when the
// cache is stale and falling back to stale data when the remote fails.
type Loader[T any] struct {
	cache   *CacheStore
	key     string
	expiry  time.Duration
	fetch   FetchFunc[T]
	exec    *resilience.Executor[T]
	accept  func(T) bool
	tracer  trace.Tracer
	machine *statekit.MachineConfig[*statemachine.Context]
}

// NewLoader creates a loader for key with the given freshness window.
func NewLoader[T any](c *CacheStore, key string, expiry time.Duration, fetch FetchFunc[T], opts ...LoaderOption[T]) (*Loader[T], error) {
	machine, err := statemachine.NewLoadMachine()
	if err != nil {
		return nil, fmt.Errorf("build load chart: %w", err)
	}

	l := &Loader[T]{
		cache:   c,
		key:     key,
		expiry:  expiry,
		fetch:   fetch,
		machine: machine,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.exec == nil {
		l.exec = resilience.NewDefaultExecutor[T]()
	}
	if l.tracer == nil {
		l.tracer = observability.GlobalTracer()
	}
	return l, nil
}

// NewPlantLoader loads the plant catalogue under cache.KeyPlants. An
// empty catalogue counts as a failed fetch.
func NewPlantLoader(c *CacheStore, src plant.Source, opts ...LoaderOption[[]plant.Plant]) (*Loader[[]plant.Plant], error) {
	opts = append([]LoaderOption[[]plant.Plant]{
		WithAccept(func(p []plant.Plant) bool { return len(p) > 0 }),
	}, opts...)
	return NewLoader[[]plant.Plant](c, cache.KeyPlants, cache.ExpiryPlants, src.Plants, opts...)
}

// NewLocationLoader loads the device location under cache.KeyUserLocation.
func NewLocationLoader(c *CacheStore, src plant.LocationSource, opts ...LoaderOption[plant.Location]) (*Loader[plant.Location], error) {
	return NewLoader[plant.Location](c, cache.KeyUserLocation, cache.ExpiryLocation, src.Location, opts...)
}

// Key returns the cache key.
func (l *Loader[T]) Key() string {
	return l.key
}

// Load serves fresh cache, then the remote, then stale cache.
func (l *Loader[T]) Load(ctx context.Context) (Result[T], error) {
	return l.run(ctx, false)
}

// Refresh skips the fresh cache check and goes to the remote first.
func (l *Loader[T]) Refresh(ctx context.Context) (Result[T], error) {
	return l.run(ctx, true)
}

func (l *Loader[T]) onTransition(ctx context.Context) func(from, to statemachine.State) {
	return func(from, to statemachine.State) {
		logging.Debug().
			Add(logging.Component("loader")).
			Add(logging.Key(l.key)).
			Add(logging.FromState(string(from))).
			Add(logging.ToState(string(to))).
			Msg("load transition")
		observability.Transition(ctx, string(to))
		l.cache.cfg.Metrics.RecordLoadTransition(ctx, string(from), string(to))
	}
}

func (l *Loader[T]) fire(interp *statemachine.Interpreter, ev statekit.EventType) {
	if _, err := interp.Send(ev); err != nil {
		logging.Error().
			Add(logging.Component("loader")).
			Add(logging.Key(l.key)).
			Add(logging.ErrorField(err)).
			Msg("load chart rejected event")
	}
}

func (l *Loader[T]) run(ctx context.Context, refresh bool) (res Result[T], err error) {
	ctx, span := observability.StartLoad(ctx, l.tracer, l.key, refresh)
	defer func() {
		observability.End(span, err,
			observability.AttrSource.String(string(res.Source)),
			observability.AttrOffline.Bool(res.Offline),
		)
	}()

	sc := statemachine.NewContext(l.key, l.onTransition(ctx))
	interp := statemachine.NewInterpreter(l.machine, sc)
	interp.Start()
	defer interp.Stop()

	if refresh {
		l.fire(interp, statemachine.EventRefresh)
	} else {
		if data, age, ok := l.fresh(ctx); ok {
			l.fire(interp, statemachine.EventHit)
			return Result[T]{Data: data, Source: SourceFresh, Age: age, Path: sc.Path}, nil
		}
		l.fire(interp, statemachine.EventMiss)
	}

	data, fetchErr := l.remote(ctx)
	if fetchErr == nil {
		l.fire(interp, statemachine.EventFetched)
		l.store(ctx, data)
		return Result[T]{Data: data, Source: SourceRemote, Path: sc.Path}, nil
	}

	logging.Warn().
		Add(logging.Component("loader")).
		Add(logging.Key(l.key)).
		Add(logging.ErrorField(fetchErr)).
		Msg("remote fetch failed, falling back to cache")
	l.fire(interp, statemachine.EventFetchFailed)

	if data, age, ok := l.stale(ctx); ok {
		l.fire(interp, statemachine.EventStaleHit)
		logging.Info().
			Add(logging.Key(l.key)).
			Add(logging.Source(string(SourceStale))).
			Add(logging.AgeHours(age)).
			Add(logging.Offline(true)).
			Msg("serving stale data")
		return Result[T]{Data: data, Source: SourceStale, Offline: true, Age: age, Path: sc.Path}, nil
	}

	l.fire(interp, statemachine.EventStaleMiss)
	var zero T
	return Result[T]{Data: zero, Source: SourceNone, Offline: true, Path: sc.Path},
		fmt.Errorf("%w for %s: %w", ErrNoData, l.key, fetchErr)
}

func (l *Loader[T]) fresh(ctx context.Context) (T, time.Duration, bool) {
	var data T
	e, ok := l.cache.loadFresh(ctx, l.key, l.expiry)
	if !ok || !l.cache.decode(ctx, "load", l.key, e, &data) {
		return data, 0, false
	}
	l.cache.cfg.Metrics.RecordCacheHit(ctx, l.key)
	return data, e.Age(l.cache.cfg.Now()), true
}

func (l *Loader[T]) stale(ctx context.Context) (T, time.Duration, bool) {
	var data T
	e, ok := l.cache.entry(ctx, "load_stale", l.key)
	if !ok || !l.cache.decode(ctx, "load_stale", l.key, e, &data) {
		return data, 0, false
	}
	l.cache.cfg.Metrics.RecordStaleServe(ctx, l.key)
	return data, e.Age(l.cache.cfg.Now()), true
}

func (l *Loader[T]) remote(ctx context.Context) (_ T, err error) {
	ctx, span := observability.StartFetch(ctx, l.tracer, l.key)
	defer func() { observability.End(span, err) }()

	start := time.Now()
	data, err := l.exec.Execute(ctx, func(ctx context.Context) (T, error) {
		v, err := l.fetch(ctx)
		if err != nil {
			return v, err
		}
		if l.accept != nil && !l.accept(v) {
			var zero T
			return zero, ErrRejected
		}
		return v, nil
	})
	l.cache.cfg.Metrics.RecordRemoteDuration(ctx, l.key, err == nil, time.Since(start))
	return data, err
}

// store saves fetched data and stamps the refresh time.
func (l *Loader[T]) store(ctx context.Context, data T) {
	l.cache.Save(ctx, l.key, data)
	if l.key != cache.KeyLastRefresh {
		l.cache.Save(ctx, cache.KeyLastRefresh, l.cache.cfg.Now().UnixMilli())
	}
}
