package schemathesis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Parametrizer binds a schema source and base engine settings to tests.
// The schema is resolved on first use and shared by every test decorated
// through the same Parametrizer. It is safe for concurrent use.
type Parametrizer struct {
	source   Source
	settings Settings
	logger   *slog.Logger

	mu       sync.Mutex
	resolved bool
	schema   *Schema
	err      error
}

// Option configures a Parametrizer.
type Option func(*Parametrizer)

// WithSettings sets the base settings. The map is copied.
func WithSettings(s Settings) Option {
	return func(p *Parametrizer) {
		p.settings = p.settings.Merge(s)
	}
}

// WithSetting sets a single base setting.
func WithSetting(key string, value any) Option {
	return func(p *Parametrizer) {
		p.settings = p.settings.Merge(Settings{key: value})
	}
}

// WithLogger sets the logger used to report schema resolution.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parametrizer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Parametrizer. It performs no I/O; the source is not
// consulted until the schema is first needed.
func New(src Source, opts ...Option) *Parametrizer {
	p := &Parametrizer{
		source:   src,
		settings: Settings{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromRaw creates a Parametrizer for an in-memory schema mapping.
func FromRaw(m map[string]any, opts ...Option) *Parametrizer {
	return New(Raw(m), opts...)
}

// FromFunc creates a Parametrizer whose schema is produced by fn.
func FromFunc(fn func() (map[string]any, error), opts ...Option) *Parametrizer {
	return New(Func(fn), opts...)
}

// FromPath creates a Parametrizer that reads its schema from a file.
func FromPath(path string, opts ...Option) *Parametrizer {
	return New(Path(path), opts...)
}

// FromURI creates a Parametrizer that retrieves its schema from uri.
// Use New with URI to pass fetch options.
func FromURI(uri string, opts ...Option) *Parametrizer {
	return New(URI(uri), opts...)
}

// Settings returns a copy of the base settings.
func (p *Parametrizer) Settings() Settings {
	return p.settings.Clone()
}

// Schema returns the resolved schema, loading it on first call. The source
// is consulted at most once; its result, including a failure, is kept for
// the life of the Parametrizer. A ctx that is already done returns its error
// without consulting the source, and a later call may still resolve.
func (p *Parametrizer) Schema(ctx context.Context) (*Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.resolved {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResolve, err)
		}
		p.schema, p.err = p.resolve(ctx)
		p.resolved = true
	}
	return p.schema, p.err
}

func (p *Parametrizer) resolve(ctx context.Context) (*Schema, error) {
	if p.source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrResolve)
	}

	start := time.Now()
	raw, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}

	p.logger.LogAttrs(ctx, slog.LevelDebug, "schema resolved",
		slog.String("source", sourceName(p.source)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return NewSchema(raw), nil
}

// Parametrize returns a Decorator that binds tests to this Parametrizer's
// schema. Keys in extra override the base settings for those tests only.
func (p *Parametrizer) Parametrize(extra Settings) Decorator {
	return Decorator{p: p, extra: extra.Clone()}
}

// Decorator stamps test functions with a Marker.
type Decorator struct {
	p     *Parametrizer
	extra Settings
}

// Apply resolves the schema if needed and returns fn wrapped with its
// marker. Calling the returned Test behaves exactly like calling fn.
func (d Decorator) Apply(ctx context.Context, fn TestFunc) (*Test, error) {
	schema, err := d.p.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return &Test{
		fn: fn,
		marker: &Marker{
			Schema:   schema,
			Settings: d.p.settings.Merge(d.extra),
		},
	}, nil
}

// Must is like Apply with a background context but panics if the schema
// cannot be resolved. It suits package-level test declarations, where a
// broken schema should fail collection.
func (d Decorator) Must(fn TestFunc) *Test {
	t, err := d.Apply(context.Background(), fn)
	if err != nil {
		panic(err)
	}
	return t
}
