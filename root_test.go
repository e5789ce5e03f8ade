package gojabridge

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistry_RefCounting(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	v := FromObject(env.ctx.NewObject())
	g1 := reg.Root(&v)
	g2 := reg.Root(&v)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 2, reg.Guards())

	g2.Release()
	assert.True(t, g2.Released())
	assert.Equal(t, 1, reg.Len())

	g2.Release()
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, reg.Guards())

	g1.Release()
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, reg.Guards())

	var nilGuard *Root
	nilGuard.Release()
}

func TestRootRegistry_AliasResolvesStorage(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	a := Int(1)
	var alias Value
	alias.Bind(&a)

	g1 := reg.Root(&a)
	g2 := reg.Root(&alias)
	defer g1.Release()
	defer g2.Release()
	assert.Equal(t, 1, reg.Len(), "an alias pins the storage it aliases")

	pinned := g1.Value()
	pinned.Set(Int(2))
	assert.Equal(t, int32(2), mustInt(t, a))
	assert.True(t, g1.Object().IsNull())
}

func TestRootRegistry_SurvivesCollection(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	g := func() *Root {
		o := env.ctx.NewObject()
		_, err := o.Set("answer", Int(42))
		require.NoError(t, err)
		_, err = o.Set("nested", FromObject(env.ctx.NewObject()))
		require.NoError(t, err)
		return reg.RootObject(o)
	}()
	defer g.Release()

	for range 3 {
		env.ctx.GC()
		runtime.GC()
	}

	o := g.Object()
	require.False(t, o.IsNull())
	v, err := o.Get("answer")
	require.NoError(t, err)
	assert.Equal(t, int32(42), mustInt(t, v))
	nested, err := o.Get("nested")
	require.NoError(t, err)
	assert.True(t, nested.IsObject())
}

func TestRootRegistry_OutOfOrderRelease(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	g1 := reg.RootValue(Int(1))
	g2 := reg.RootValue(Int(2))
	g3 := reg.RootValue(Int(3))

	g3.Release()
	assert.NotContains(t, env.logs.String(), "out of order")

	g1.Release()
	assert.Contains(t, env.logs.String(), "gojabridge: root released out of order")
	assert.Equal(t, 1, reg.Guards())
	assert.Equal(t, int32(2), mustInt(t, g2.Value()))

	g2.Release()
	assert.Equal(t, 0, reg.Len())
}

func TestRootRegistry_Visit(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()
	o := env.ctx.NewObject()
	g := reg.RootObject(o)
	defer g.Release()
	defer reg.RootValue(String("x")).Release()

	var found, total int
	env.ctx.VisitRoots(func(v Value) bool {
		total++
		if got, err := v.AsObject(); err == nil && got.Equal(o) {
			found++
		}
		return true
	})
	assert.Equal(t, 1, found)
	assert.Equal(t, 2, total)

	total = 0
	reg.Visit(func(Value) bool {
		total++
		return false
	})
	assert.Equal(t, 1, total)
}

func TestScope_ReleasesOnClose(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	outer := env.ctx.Enter()
	assert.True(t, env.ctx.Active())
	outer.RootObject(env.ctx.NewObject())

	v := Int(5)
	inner := env.ctx.Enter()
	inner.Root(&v)
	inner.RootValue(String("tmp"))
	assert.Equal(t, 3, reg.Len())

	inner.Close()
	assert.Equal(t, 1, reg.Len())
	assert.True(t, env.ctx.Active())

	inner = env.ctx.Enter()
	inner.RootValue(Null())
	outer.Close()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, env.ctx.Active())

	// closing again, or an inner scope already closed by its parent, is harmless
	outer.Close()
	inner.Close()
	assert.Equal(t, 0, reg.Guards())
	assert.NotContains(t, env.logs.String(), "out of order")
}

func TestScope_DeferredRelease(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	func() {
		defer func() { _ = recover() }()
		scope := env.ctx.Enter()
		defer scope.Close()
		scope.RootObject(env.ctx.NewObject())
		panic("unwind")
	}()

	assert.Equal(t, 0, reg.Len())
	assert.False(t, env.ctx.Active())
}

func TestContext_PrototypeRegistry(t *testing.T) {
	env := newTestEnv(t)
	reg := env.ctx.Roots()

	p1 := env.ctx.NewObject()
	env.ctx.AddPrototype("thing", p1)
	assert.True(t, env.ctx.Prototype("thing").Equal(p1))
	assert.Equal(t, 1, reg.Len())

	p2 := env.ctx.NewObject()
	env.ctx.AddPrototype("thing", p2)
	assert.True(t, env.ctx.Prototype("thing").Equal(p2))
	assert.Equal(t, 1, reg.Len())

	assert.True(t, env.ctx.Prototype("missing").IsNull())

	ctor := env.object(t, `(function Thing() {})`)
	env.ctx.AddConstructor("thing", ctor)
	assert.True(t, env.ctx.Constructor("thing").Equal(ctor))
	assert.True(t, env.ctx.Constructor("missing").IsNull())
	assert.Equal(t, 2, reg.Len())

	require.NoError(t, env.ctx.Close())
	assert.Equal(t, 0, reg.Len())
	assert.True(t, env.ctx.Prototype("thing").IsNull())
}
