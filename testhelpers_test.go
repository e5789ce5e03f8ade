package gojabridge

import (
	"bytes"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ctx  *Context
	logs *bytes.Buffer
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	logs := new(bytes.Buffer)
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(logs),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelDebug),
	).Logger()
	ctx, err := New(append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return &testEnv{ctx: ctx, logs: logs}
}

func (e *testEnv) run(t *testing.T, code string) Value {
	t.Helper()
	v, err := e.ctx.Evaluate(code, t.Name()+".js", 1)
	require.NoError(t, err)
	return v
}

func (e *testEnv) mustFail(t *testing.T, code string) error {
	t.Helper()
	_, err := e.ctx.Evaluate(code, t.Name()+".js", 1)
	require.Error(t, err)
	return err
}

func (e *testEnv) object(t *testing.T, code string) Object {
	t.Helper()
	o, err := e.run(t, code).AsObject()
	require.NoError(t, err)
	return o
}

func (e *testEnv) setGlobal(t *testing.T, name string, v Value) {
	t.Helper()
	_, err := e.ctx.Global().Set(name, v)
	require.NoError(t, err)
}

func mustInt(t *testing.T, v Value) int32 {
	t.Helper()
	i, err := v.AsInt()
	require.NoError(t, err)
	return i
}

func mustString(t *testing.T, v Value) string {
	t.Helper()
	s, err := v.AsString()
	require.NoError(t, err)
	return s
}

func mustBool(t *testing.T, v Value) bool {
	t.Helper()
	b, err := v.AsBool()
	require.NoError(t, err)
	return b
}
