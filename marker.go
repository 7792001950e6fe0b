package schemathesis

import (
	"context"
	"reflect"
)

// Case is a single input handed to a schema-bound test by the engine.
type Case struct {
	Operation Operation
}

// T is the part of *testing.T a schema-bound test receives. It satisfies
// the assert and require TestingT interfaces of testify.
type T interface {
	Name() string
	Helper()
	Cleanup(f func())
	Context() context.Context
	Log(args ...any)
	Logf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fail()
	FailNow()
	Failed() bool
}

// TestFunc is the signature of a schema-bound test.
type TestFunc func(t T, c Case)

// Marker identifies a test as bound to a schema and carries the settings
// effective for it.
type Marker struct {
	// Schema is shared with every other test bound through the same
	// Parametrizer.
	Schema *Schema

	// Settings is this test's own merged copy of the engine settings.
	Settings Settings
}

// Marked is implemented by anything that carries a Marker. Wrappers that
// embed *Test or forward Marker keep the mark.
type Marked interface {
	Marker() *Marker
}

// Test is a test function stamped with a Marker.
type Test struct {
	fn     TestFunc
	marker *Marker
}

// Marker returns the test's marker.
func (t *Test) Marker() *Marker {
	if t == nil {
		return nil
	}
	return t.marker
}

// Func returns the wrapped test function.
func (t *Test) Func() TestFunc { return t.fn }

// Call invokes the wrapped function unchanged.
func (t *Test) Call(tt T, c Case) {
	t.fn(tt, c)
}

// IsTest reports whether candidate carries a Marker. It never panics;
// anything without a marker, including nil, is reported as false.
func IsTest(candidate any) bool {
	_, ok := MarkerOf(candidate)
	return ok
}

// MarkerOf returns the Marker carried by candidate, if any.
func MarkerOf(candidate any) (*Marker, bool) {
	m, ok := candidate.(Marked)
	if !ok || isNilPointer(m) {
		return nil, false
	}
	marker := m.Marker()
	return marker, marker != nil
}

// isNilPointer guards against calling Marker on a typed nil whose method
// does not handle a nil receiver.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
