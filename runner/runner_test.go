package runner_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/schemathesis"
	"github.com/bjaus/schemathesis/runner"
)

func usersSchema() map[string]any {
	return map[string]any{
		"swagger": "2.0",
		"paths": map[string]any{
			"/users": map[string]any{
				"get":  map[string]any{"operationId": "listUsers"},
				"post": map[string]any{"operationId": "createUser"},
			},
		},
	}
}

func TestParameters(t *testing.T) {
	t.Parallel()

	params, err := runner.Parameters(schemathesis.Settings{
		schemathesis.MaxExamples:     25,
		schemathesis.MaxShrinks:      int64(7),
		schemathesis.MinSize:         1,
		schemathesis.MaxSize:         float64(50),
		schemathesis.Workers:         2,
		schemathesis.Seed:            42,
		schemathesis.MaxDiscardRatio: 0.5,
		schemathesis.Deadline:        time.Second,
		"unknown":                    "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, 25, params.MinSuccessfulTests)
	assert.Equal(t, 7, params.MaxShrinkCount)
	assert.Equal(t, 1, params.MinSize)
	assert.Equal(t, 50, params.MaxSize)
	assert.Equal(t, 2, params.Workers)
	assert.Equal(t, int64(42), params.Seed())
	assert.InDelta(t, 0.5, params.MaxDiscardRatio, 1e-9)
}

func TestParameters_defaults(t *testing.T) {
	t.Parallel()

	params, err := runner.Parameters(nil)
	require.NoError(t, err)
	assert.Equal(t, 100, params.MinSuccessfulTests)
}

func TestParameters_numeric_kinds(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value any
		want  int
	}{
		"int8":    {value: int8(8), want: 8},
		"int16":   {value: int16(16), want: 16},
		"int32":   {value: int32(32), want: 32},
		"uint8":   {value: uint8(80), want: 80},
		"uint64":  {value: uint64(640), want: 640},
		"float32": {value: float32(12), want: 12},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			params, err := runner.Parameters(schemathesis.Settings{
				schemathesis.MaxExamples:     tt.value,
				schemathesis.MaxDiscardRatio: tt.value,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, params.MinSuccessfulTests)
			assert.InDelta(t, float64(tt.want), params.MaxDiscardRatio, 1e-9)
		})
	}
}

func TestParameters_invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]schemathesis.Settings{
		"string max_examples":    {schemathesis.MaxExamples: "ten"},
		"fractional max_size":    {schemathesis.MaxSize: 1.5},
		"string seed":            {schemathesis.Seed: "abc"},
		"bool max_discard_ratio": {schemathesis.MaxDiscardRatio: true},
		"overflowing uint64":     {schemathesis.MaxExamples: uint64(math.MaxUint64)},
	}

	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := runner.Parameters(s)
			require.ErrorIs(t, err, runner.ErrSetting)
		})
	}
}

func TestDeadlineOf(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		settings schemathesis.Settings
		expect   time.Duration
		wantErr  bool
	}{
		"unset":    {settings: schemathesis.Settings{}, expect: 0},
		"duration": {settings: schemathesis.Settings{schemathesis.Deadline: time.Second}, expect: time.Second},
		"string":   {settings: schemathesis.Settings{schemathesis.Deadline: "200ms"}, expect: 200 * time.Millisecond},
		"nil":      {settings: schemathesis.Settings{schemathesis.Deadline: nil}, expect: 0},
		"bad string": {
			settings: schemathesis.Settings{schemathesis.Deadline: "later"},
			wantErr:  true,
		},
		"bad type": {
			settings: schemathesis.Settings{schemathesis.Deadline: 5},
			wantErr:  true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := runner.DeadlineOf(tc.settings)
			if tc.wantErr {
				require.ErrorIs(t, err, runner.ErrSetting)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expect, got)
		})
	}
}

func TestWithin(t *testing.T) {
	t.Parallel()

	slow := func() { time.Sleep(20 * time.Millisecond) }

	tests := map[string]struct {
		deadline time.Duration
		fn       func()
		wantErr  bool
	}{
		"slow case over deadline": {deadline: time.Millisecond, fn: slow, wantErr: true},
		"fast case":               {deadline: time.Minute, fn: func() {}},
		"no deadline":             {deadline: 0, fn: slow},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := runner.Within(tt.deadline, tt.fn)
			if tt.wantErr {
				require.ErrorIs(t, err, runner.ErrDeadline)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	p := schemathesis.FromRaw(usersSchema(), schemathesis.WithSettings(schemathesis.Settings{
		schemathesis.MaxExamples: 10,
		schemathesis.Seed:        1,
	}))

	var (
		mu    sync.Mutex
		calls int
		seen  = map[string]bool{}
	)
	test := p.Parametrize(schemathesis.Settings{schemathesis.Deadline: time.Minute}).
		Must(func(_ schemathesis.T, c schemathesis.Case) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			seen[c.Operation.String()] = true
		})

	runner.Run(t, test)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 10)
	for op := range seen {
		assert.Contains(t, []string{"GET /users", "POST /users"}, op)
	}
}

func TestRun_skips_schema_without_operations(t *testing.T) {
	t.Parallel()

	var called bool
	test := schemathesis.FromRaw(map[string]any{"swagger": "2.0"}).
		Parametrize(nil).
		Must(func(schemathesis.T, schemathesis.Case) { called = true })

	t.Run("empty", func(t *testing.T) {
		runner.Run(t, test)
	})

	assert.False(t, called)
}
