package gojabridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunction_NameAndArity(t *testing.T) {
	env := newTestEnv(t)
	fn, err := env.ctx.NewFunction("twice", 1, func(call *CallContext) error {
		n, err := call.Arg(0).AsNumber()
		if err != nil {
			return err
		}
		call.Return(Double(n * 2))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, fn.IsFunction())
	env.setGlobal(t, "twice", fn.Value())

	assert.Equal(t, "twice", mustString(t, env.run(t, `twice.name`)))
	assert.Equal(t, int32(1), mustInt(t, env.run(t, `twice.length`)))
	assert.Equal(t, int32(8), mustInt(t, env.run(t, `twice(4)`)))
	assert.Equal(t, 3.0, func() float64 {
		n, err := env.run(t, `twice(1.5)`).AsNumber()
		require.NoError(t, err)
		return n
	}())

	// name and length are not writable
	assert.Equal(t, "twice", mustString(t, env.run(t, `twice.name = "other"; twice.name`)))

	_, err = env.ctx.NewFunction("nil", 0, nil)
	assert.ErrorIs(t, err, ErrMisuse)
	_, err = env.ctx.NewFunction("negative", -1, func(*CallContext) error { return nil })
	assert.ErrorIs(t, err, ErrMisuse)
}

func TestNewFunction_ResultDefaultsToUndefined(t *testing.T) {
	env := newTestEnv(t)
	fn, err := env.ctx.NewFunction("noop", 0, func(call *CallContext) error {
		assert.True(t, call.Result.IsAlias())
		assert.True(t, call.Result.IsUndefined())
		return nil
	})
	require.NoError(t, err)
	v, err := fn.CallGlobal(nil)
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())
}

func TestNewFunction_ResultAssigned(t *testing.T) {
	env := newTestEnv(t)
	fn, err := env.ctx.NewFunction("three", 0, func(call *CallContext) error {
		call.Result = Int(3)
		return nil
	})
	require.NoError(t, err)
	v, err := fn.CallGlobal(nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), mustInt(t, v))
	env.setGlobal(t, "three", fn.Value())
	assert.Equal(t, int32(4), mustInt(t, env.run(t, `three() + 1`)))
}

func TestNewFunction_Receiver(t *testing.T) {
	env := newTestEnv(t)
	var call *CallContext
	fn, err := env.ctx.NewFunction("inspect", 0, func(c *CallContext) error {
		call = c
		c.Return(c.This)
		return nil
	})
	require.NoError(t, err)
	env.setGlobal(t, "inspect", fn.Value())

	o := env.object(t, `var holder = {inspect: inspect}; holder`)
	v := env.run(t, `holder.inspect()`)
	require.NotNil(t, call)
	assert.True(t, call.Self.Equal(o))
	assert.True(t, call.Function.Equal(fn))
	assert.Same(t, env.ctx, call.Context)
	assert.True(t, v.StrictEquals(o.Value()))

	env.run(t, `inspect.call(5)`)
	assert.True(t, call.Self.IsNull())
	assert.Equal(t, int32(5), mustInt(t, call.This))
}

func TestNewFunction_ErrorsThrown(t *testing.T) {
	env := newTestEnv(t)
	sentinel := errors.New("plain failure")

	fail, err := env.ctx.NewFunction("fail", 1, func(call *CallContext) error {
		switch mustString(t, call.Arg(0)) {
		case "mismatch":
			_, err := call.Arg(1).AsInt()
			return err
		case "null":
			_, err := Object{}.Get("x")
			return err
		case "plain":
			return sentinel
		}
		return nil
	})
	require.NoError(t, err)
	env.setGlobal(t, "fail", fail.Value())

	assert.True(t, mustBool(t, env.run(t, `try { fail("mismatch", "x") } catch (e) { e instanceof TypeError }`)))
	assert.True(t, mustBool(t, env.run(t, `try { fail("null") } catch (e) { e instanceof TypeError }`)))
	assert.Equal(t, "plain failure", mustString(t, env.run(t, `try { fail("plain") } catch (e) { e.message }`)))

	_, err = fail.CallGlobal(env.ctx.NewArguments(String("plain")))
	var script *ScriptError
	require.ErrorAs(t, err, &script)
	assert.Contains(t, script.Error(), "plain failure")
}

func TestNewFunction_RethrowsScriptErrors(t *testing.T) {
	env := newTestEnv(t)
	thrower := env.object(t, `(function () { throw {code: 42} })`)

	relay, err := env.ctx.NewFunction("relay", 0, func(call *CallContext) error {
		_, err := thrower.CallGlobal(nil)
		return err
	})
	require.NoError(t, err)
	env.setGlobal(t, "relay", relay.Value())

	assert.Equal(t, int32(42), mustInt(t, env.run(t, `try { relay() } catch (e) { e.code }`)))

	env.run(t, `var thrown = {tag: "same"}; var rethrow = function () { throw thrown }`)
	rethrow, err := env.ctx.Global().Get("rethrow")
	require.NoError(t, err)
	rethrowFn, err := rethrow.AsObject()
	require.NoError(t, err)
	relay2, err := env.ctx.NewFunction("relay2", 0, func(call *CallContext) error {
		_, err := rethrowFn.CallGlobal(nil)
		return err
	})
	require.NoError(t, err)
	env.setGlobal(t, "relay2", relay2.Value())
	assert.True(t, mustBool(t, env.run(t, `try { relay2(); false } catch (e) { e === thrown }`)))
}

func TestDefineFunction(t *testing.T) {
	env := newTestEnv(t)
	o := env.ctx.NewObject()

	fn, err := env.ctx.DefineFunction(o, "hello", 0, func(call *CallContext) error {
		call.Return(String("world"))
		return nil
	})
	require.NoError(t, err)

	got, err := o.Get("hello")
	require.NoError(t, err)
	assert.True(t, got.StrictEquals(fn.Value()))

	attrs, ok, err := o.GetPropertyAttributes("hello")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, attrs.Has(DontEnumerate))

	v, err := o.Call("hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "world", mustString(t, v))

	_, err = env.ctx.DefineFunction(Object{}, "x", 0, func(*CallContext) error { return nil })
	assert.ErrorIs(t, err, ErrNullTarget)
}
