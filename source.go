package schemathesis

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source produces the raw schema mapping. Load is called at most once per
// Parametrizer, on first access to its schema.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// SourceFunc adapts a context-aware function to Source.
type SourceFunc func(ctx context.Context) (map[string]any, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) (map[string]any, error) {
	return f(ctx)
}

func (f SourceFunc) String() string { return "func" }

type rawSource struct {
	m map[string]any
}

// Raw returns a Source that yields m as is.
func Raw(m map[string]any) Source {
	return rawSource{m: m}
}

func (s rawSource) Load(context.Context) (map[string]any, error) {
	if s.m == nil {
		return nil, ErrNotMapping
	}
	return s.m, nil
}

func (rawSource) String() string { return "raw" }

type funcSource struct {
	fn func() (map[string]any, error)
}

// Func returns a Source backed by a zero-argument loader.
func Func(fn func() (map[string]any, error)) Source {
	return funcSource{fn: fn}
}

func (s funcSource) Load(context.Context) (map[string]any, error) {
	if s.fn == nil {
		return nil, fmt.Errorf("%w: nil loader func", ErrLoad)
	}
	m, err := s.fn()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMapping
	}
	return m, nil
}

func (funcSource) String() string { return "func" }

type pathSource struct {
	path string
}

// Path returns a Source that reads a JSON or YAML document from the
// filesystem.
func Path(path string) Source {
	return pathSource{path: path}
}

func (s pathSource) Load(context.Context) (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	m, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return m, nil
}

func (s pathSource) String() string { return s.path }

type uriSource struct {
	uri string
	cfg fetchConfig
}

// URI returns a Source that retrieves a document from uri. file:// URIs are
// read from disk; http and https URIs are fetched.
func URI(uri string, opts ...FetchOption) Source {
	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return uriSource{uri: uri, cfg: cfg}
}

func (s uriSource) Load(ctx context.Context) (map[string]any, error) {
	u, err := url.Parse(s.uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Host != "" && u.Host != "localhost" {
			return nil, fmt.Errorf("%w: %s: file uri host %q is not local", ErrLoad, s.uri, u.Host)
		}
		path := u.Path
		if path == "" {
			// file:relative/path
			path = u.Opaque
		}
		return pathSource{path: path}.Load(ctx)
	case "http", "https":
		data, err := fetch(ctx, s.uri, s.cfg)
		if err != nil {
			return nil, err
		}
		m, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.uri, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (s uriSource) String() string { return s.uri }

// decodeDocument parses a schema document. JSON is a subset of YAML, so a
// single decoder handles both.
func decodeDocument(data []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	m, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

// normalize rewrites mappings with non-string keys, such as unquoted
// response codes, into map[string]any so the document can be re-encoded as
// JSON.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, elem := range v {
			v[k] = normalize(elem)
		}
		return v
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, elem := range v {
			m[fmt.Sprint(k)] = normalize(elem)
		}
		return m
	case []any:
		for i, elem := range v {
			v[i] = normalize(elem)
		}
		return v
	default:
		return v
	}
}

// sourceName describes src for logs.
func sourceName(src Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}
