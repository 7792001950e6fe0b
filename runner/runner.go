// Package runner executes schema-bound tests with gopter. It translates a
// test's merged settings into gopter parameters and feeds the test one
// schema operation per generated case.
package runner

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bjaus/schemathesis"
)

// Sentinel errors for running schema-bound tests.
var (
	ErrSetting  = errors.New("invalid setting")
	ErrDeadline = errors.New("case exceeded deadline")
)

// Test is a schema-bound test. *schemathesis.Test implements it.
type Test interface {
	schemathesis.Marked
	Call(t schemathesis.T, c schemathesis.Case)
}

// Parameters builds gopter test parameters from s. Unknown keys are
// ignored; known keys with values of the wrong type are an error.
func Parameters(s schemathesis.Settings) (*gopter.TestParameters, error) {
	params := gopter.DefaultTestParameters()

	ints := []struct {
		key string
		dst *int
	}{
		{schemathesis.MaxExamples, &params.MinSuccessfulTests},
		{schemathesis.MaxShrinks, &params.MaxShrinkCount},
		{schemathesis.MinSize, &params.MinSize},
		{schemathesis.MaxSize, &params.MaxSize},
		{schemathesis.Workers, &params.Workers},
	}
	for _, f := range ints {
		v, ok := s[f.key]
		if !ok {
			continue
		}
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSetting, f.key, err)
		}
		*f.dst = int(n)
	}

	if v, ok := s[schemathesis.Seed]; ok {
		n, err := toInt(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSetting, schemathesis.Seed, err)
		}
		params.SetSeed(n)
	}

	if v, ok := s[schemathesis.MaxDiscardRatio]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSetting, schemathesis.MaxDiscardRatio, err)
		}
		params.MaxDiscardRatio = f
	}

	return params, nil
}

// DeadlineOf returns the per-case deadline in s, or zero if none is set.
func DeadlineOf(s schemathesis.Settings) (time.Duration, error) {
	v, ok := s[schemathesis.Deadline]
	if !ok || v == nil {
		return 0, nil
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrSetting, schemathesis.Deadline, err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: %s: unsupported type %T", ErrSetting, schemathesis.Deadline, v)
	}
}

// Run executes test once per generated case. Each case runs as a subtest
// named after its operation. Cases slower than the deadline setting fail.
// Schemas without operations skip the test.
func Run(t *testing.T, test Test) {
	t.Helper()

	marker, ok := schemathesis.MarkerOf(test)
	if !ok {
		t.Fatal("runner: test is not bound to a schema")
		return
	}

	params, err := Parameters(marker.Settings)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	deadline, err := DeadlineOf(marker.Settings)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	ops := marker.Schema.Operations()
	if len(ops) == 0 {
		t.Skip("runner: schema has no operations")
	}

	consts := make([]any, len(ops))
	for i, op := range ops {
		consts[i] = op
	}

	properties := gopter.NewProperties(params)
	properties.Property("schema operations", prop.ForAll(
		func(op schemathesis.Operation) bool {
			return runCase(t, test, schemathesis.Case{Operation: op}, deadline)
		},
		gen.OneConstOf(consts...),
	))
	properties.TestingRun(t)
}

func runCase(t *testing.T, test Test, c schemathesis.Case, deadline time.Duration) bool {
	return t.Run(c.Operation.String(), func(t *testing.T) {
		if err := within(deadline, func() { test.Call(t, c) }); err != nil {
			t.Errorf("runner: %s: %v", c.Operation, err)
		}
	})
}

// within runs fn and reports ErrDeadline if it took longer than deadline.
// A non-positive deadline disables the check.
func within(deadline time.Duration, fn func()) error {
	start := time.Now()
	fn()
	if deadline <= 0 {
		return nil
	}
	if elapsed := time.Since(start); elapsed > deadline {
		return fmt.Errorf("%w: took %s, limit %s", ErrDeadline, elapsed, deadline)
	}
	return nil
}

func toInt(v any) (int64, error) {
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := rv.Uint()
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
