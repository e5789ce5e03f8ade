package gojabridge

import (
	"fmt"

	"github.com/dop251/goja"
)

// NativeFunc implements a function created by [Context.NewFunction]. The
// result is whatever the call left in [CallContext.Result]. A returned error
// is thrown in script: a [*ScriptError] rethrows its exception, other errors
// are thrown as Go errors (or TypeErrors, for type mismatches).
type NativeFunc func(call *CallContext) error

// CallContext is passed to native calls.
type CallContext struct {
	Context *Context
	// Function is the callee.
	Function Object
	// Self is the receiver, a null handle if the receiver is not an object.
	Self Object
	// This is the receiver as passed.
	This Value
	// Args is an engine-provided vector of every argument passed, however
	// many the function declares.
	Args *Arguments
	// Result aliases the call's result slot, initially undefined. Assigning
	// it outright also sets the result.
	Result Value
	// Native is the instance being called, for [NativeObject.SelfCall].
	Native NativeObject

	result slot
}

// Return stores v in the result slot.
func (call *CallContext) Return(v Value) { call.Result.Set(v) }

// Arg is call.Args.At(i).
func (call *CallContext) Arg(i int) Value { return call.Args.At(i) }

func (c *Context) newCallContext(fn Object, this goja.Value, args []goja.Value) *CallContext {
	call := &CallContext{
		Context:  c,
		Function: fn,
		Self:     c.objectOf(this),
		This:     c.wrap(this),
		Args:     c.engineArguments(args),
	}
	call.Result.ref = &call.result
	return call
}

// NewFunction creates a function object named name, with the given declared
// arity (its length property). Arity is informational: calls always see all
// passed arguments.
func (c *Context) NewFunction(name string, arity int, fn NativeFunc) (Object, error) {
	if c.closed {
		return Object{}, fmt.Errorf("gojabridge: new_function: %w", ErrClosed)
	}
	if fn == nil {
		return Object{}, fmt.Errorf("gojabridge: new_function %q: nil function: %w", name, ErrMisuse)
	}
	if arity < 0 {
		return Object{}, fmt.Errorf("gojabridge: new_function %q: negative arity: %w", name, ErrMisuse)
	}
	var self *goja.Object
	self = c.runtime.ToValue(func(fc goja.FunctionCall) goja.Value {
		call := c.newCallContext(Object{ctx: c, obj: self}, fc.This, fc.Arguments)
		if err := fn(call); err != nil {
			panic(c.throw(err))
		}
		return c.toGoja(call.Result.storage())
	}).(*goja.Object)
	if err := self.DefineDataProperty("name", c.runtime.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return Object{}, c.engineError("new_function", err)
	}
	if err := self.DefineDataProperty("length", c.runtime.ToValue(arity), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return Object{}, c.engineError("new_function", err)
	}
	return Object{ctx: c, obj: self}, nil
}

// DefineFunction creates a function with [Context.NewFunction] and stores it
// as a non-enumerable property of o.
func (c *Context) DefineFunction(o Object, name string, arity int, fn NativeFunc) (Object, error) {
	f, err := c.NewFunction(name, arity, fn)
	if err != nil {
		return Object{}, err
	}
	if err := o.DefineProperty(name, f.Value(), PropertyAttributes{Flags: DontEnumerate}); err != nil {
		return Object{}, err
	}
	return f, nil
}
