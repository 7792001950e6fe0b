package schemathesis

import (
	"fmt"
	"io"
	"maps"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Well-known settings understood by the runner package. Any other key is
// carried through untouched for whatever engine consumes the marker.
const (
	MaxExamples     = "max_examples"
	Deadline        = "deadline"
	Seed            = "seed"
	MaxShrinks      = "max_shrinks"
	MinSize         = "min_size"
	MaxSize         = "max_size"
	Workers         = "workers"
	MaxDiscardRatio = "max_discard_ratio"
)

// Settings maps option names to values for the property-testing engine.
// Values are stored verbatim; nothing here coerces or validates them.
type Settings map[string]any

// Clone returns a shallow copy of s. The result is never nil.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	maps.Copy(out, s)
	return out
}

// Merge returns a fresh mapping holding every entry of s overridden by the
// entries of extra. Neither s nor extra is modified.
func (s Settings) Merge(extra Settings) Settings {
	out := make(Settings, len(s)+len(extra))
	maps.Copy(out, s)
	maps.Copy(out, extra)
	return out
}

// ReadSettings decodes a YAML (or JSON) mapping of settings from r.
//
// File formats have no duration type, so a string deadline such as "500ms"
// is parsed into a time.Duration. Every other value is kept as decoded.
func ReadSettings(r io.Reader) (Settings, error) {
	var s Settings
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if err == io.EOF {
			return Settings{}, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}
	if s == nil {
		s = Settings{}
	}

	if raw, ok := s[Deadline].(string); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSettings, Deadline, err)
		}
		s[Deadline] = d
	}

	return s, nil
}

// LoadSettings reads settings from the file at path.
func LoadSettings(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	s, err := ReadSettings(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
