package gojabridge

import (
	"testing"

	"github.com/dop251/goja"
	noderequire "github.com/dop251/goja_nodejs/require"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.PanicsWithValue(t, "gojabridge: runtime must not be nil", func() {
		_, _ = Wrap(nil)
	})

	rt := goja.New()
	ctx, err := Wrap(rt, nil, WithStrict(true))
	require.NoError(t, err)
	defer ctx.Close()
	assert.Same(t, rt, ctx.Runtime())
	assert.True(t, ctx.Strict())
	assert.True(t, ctx.Global().Equal(Object{obj: rt.GlobalObject()}))

	// two contexts over one runtime keep separate registries
	other, err := Wrap(rt)
	require.NoError(t, err)
	defer other.Close()
	g := ctx.Roots().RootObject(ctx.NewObject())
	defer g.Release()
	assert.Equal(t, 1, ctx.Roots().Len())
	assert.Equal(t, 0, other.Roots().Len())
}

func TestContext_Close(t *testing.T) {
	env := newTestEnv(t)
	o := env.ctx.NewObject()
	outer := env.ctx.Enter()
	outer.RootObject(o)
	env.ctx.Enter().RootValue(Int(1))

	require.NoError(t, env.ctx.Close())
	require.NoError(t, env.ctx.Close())
	assert.False(t, env.ctx.Active())
	assert.Equal(t, 0, env.ctx.Roots().Len())
	assert.Contains(t, env.logs.String(), "gojabridge: context closed")

	_, err := o.Get("x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = env.ctx.NewFunction("f", 0, func(*CallContext) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)

	env.ctx.GC()
}

func TestContext_ToValue(t *testing.T) {
	env := newTestEnv(t)
	o := env.ctx.NewObject()

	assert.True(t, env.ctx.ToValue(o).StrictEquals(o.Value()))
	v := Int(7)
	assert.Equal(t, int32(7), mustInt(t, env.ctx.ToValue(v)))
	got := env.ctx.ToValue(&v)
	assert.False(t, got.IsAlias())
	assert.Equal(t, int32(7), mustInt(t, got))

	assert.Equal(t, int32(3), mustInt(t, env.ctx.ToValue(3)))
	assert.Equal(t, "s", mustString(t, env.ctx.ToValue("s")))
	assert.True(t, env.ctx.ToValue(nil).IsNull())

	m, err := env.ctx.ToValue(map[string]any{"a": 1}).AsObject()
	require.NoError(t, err)
	a, err := m.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), mustInt(t, a))
}

func TestWithFieldNameMapper(t *testing.T) {
	type record struct {
		Name string `json:"name"`
	}
	env := newTestEnv(t, WithFieldNameMapper(goja.TagFieldNameMapper("json", true)))
	env.setGlobal(t, "record", env.ctx.ToValue(&record{Name: "x"}))
	assert.Equal(t, "x", mustString(t, env.run(t, `record.name`)))
}

func TestContext_GCLogs(t *testing.T) {
	env := newTestEnv(t)
	env.ctx.GC()
	assert.Contains(t, env.logs.String(), "gojabridge: gc")
}

func TestContext_ModuleLoader(t *testing.T) {
	registry := noderequire.NewRegistry()
	env := newTestEnv(t, WithRequireRegistry(registry))
	registry.RegisterNativeModule("bridge", env.ctx.ModuleLoader())

	env.run(t, `var bridge = require("bridge")`)
	assert.Equal(t, int32(3), mustInt(t, env.run(t, `bridge.evaluate("1 + 2")`)))
	assert.False(t, mustBool(t, env.run(t, `bridge.strict()`)))
	assert.False(t, mustBool(t, env.run(t, `bridge.strict(true)`)))
	assert.True(t, env.ctx.Strict())
	assert.True(t, mustBool(t, env.run(t, `bridge.strict()`)))
	assert.False(t, mustBool(t, env.run(t, `bridge.isCompilable("{")`)))
	assert.True(t, mustBool(t, env.run(t, `bridge.isCompilable("1")`)))
	env.run(t, `bridge.gc()`)

	g := env.ctx.Roots().RootValue(Int(1))
	defer g.Release()
	assert.Equal(t, int32(1), mustInt(t, env.run(t, `bridge.roots()`)))

	assert.Equal(t, "[]", mustString(t, env.run(t, `JSON.stringify(Object.keys(bridge))`)))
	assert.True(t, mustBool(t, env.run(t, `try { bridge.evaluate(1); false } catch (e) { e instanceof TypeError }`)))

	rt := goja.New()
	foreign := noderequire.NewRegistry()
	foreign.RegisterNativeModule("bridge", env.ctx.ModuleLoader())
	foreign.Enable(rt)
	v, err := rt.RunString(`try { require("bridge"); false } catch (e) { e instanceof TypeError }`)
	require.NoError(t, err)
	assert.Equal(t, true, v.Export())
}

func TestRequire(t *testing.T) {
	rt := goja.New()
	registry := noderequire.NewRegistry()
	registry.RegisterNativeModule("bridge", Require(WithStrict(true)))
	registry.Enable(rt)

	v, err := rt.RunString(`
		var bridge = require("bridge");
		[bridge.evaluate("40 + 2", "inner.js", 1), bridge.strict()]`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(42), true}, v.Export())
}
