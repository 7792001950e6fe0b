// Command sample loads an API schema the way a schema-bound test would and
// prints what the test engine would see: the schema's operations and the
// merged engine settings.
//
// Run:
//
//	go run ./cmd/sample -schema testdata/petstore.yaml
//	go run ./cmd/sample -schema https://example.com/openapi.json -validate
//	go run ./cmd/sample -schema file:///tmp/api.json -settings ci.yaml -set max_examples=500
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/schemathesis"
)

// setFlags collects repeated -set key=value flags.
type setFlags schemathesis.Settings

func (s setFlags) String() string { return fmt.Sprint(map[string]any(s)) }

func (s setFlags) Set(arg string) error {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", arg)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if key == schemathesis.Deadline {
		if str, isStr := v.(string); isStr {
			d, err := time.ParseDuration(str)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			v = d
		}
	}
	s[key] = v
	return nil
}

type report struct {
	Version    string                `yaml:"version"`
	Operations []string              `yaml:"operations"`
	Settings   schemathesis.Settings `yaml:"settings"`
}

func main() {
	schemaFlag := flag.String("schema", "", "Schema path or URI (file://, http://, https://)")
	settingsFlag := flag.String("settings", "", "YAML file with base engine settings")
	validateFlag := flag.Bool("validate", false, "Validate the schema against the OpenAPI specification")
	timeoutFlag := flag.Duration("timeout", 30*time.Second, "Timeout for loading the schema")
	verboseFlag := flag.Bool("v", false, "Enable debug logging")
	extra := setFlags{}
	flag.Var(extra, "set", "Per-test setting override as key=value (repeatable)")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *schemaFlag == "" {
		slog.Error("missing -schema")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	if err := run(ctx, logger, *schemaFlag, *settingsFlag, *validateFlag, schemathesis.Settings(extra)); err != nil {
		slog.Error("sample failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, schema, settingsPath string, validate bool, extra schemathesis.Settings) error {
	opts := []schemathesis.Option{schemathesis.WithLogger(logger)}
	if settingsPath != "" {
		base, err := schemathesis.LoadSettings(settingsPath)
		if err != nil {
			return err
		}
		opts = append(opts, schemathesis.WithSettings(base))
	}

	p := schemathesis.New(newSource(schema), opts...)

	resolved, err := p.Schema(ctx)
	if err != nil {
		return err
	}

	if validate {
		if err := resolved.Validate(ctx); err != nil {
			return err
		}
		logger.Info("schema is valid", "version", resolved.Version())
	}

	var ops []string
	for _, op := range resolved.Operations() {
		ops = append(ops, op.String())
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close() //nolint:errcheck // flushed by Encode
	return enc.Encode(report{
		Version:    resolved.Version(),
		Operations: ops,
		Settings:   p.Settings().Merge(extra),
	})
}

// newSource picks a URI source for anything with a scheme and a path source
// otherwise. Remote fetches are limited to one per second.
func newSource(schema string) schemathesis.Source {
	if strings.Contains(schema, "://") {
		return schemathesis.URI(schema, schemathesis.WithFetchLimiter(rate.NewLimiter(rate.Limit(1), 1)))
	}
	return schemathesis.Path(schema)
}
