package gojabridge

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// Require returns a [require.ModuleLoader] exposing the bridge to script.
// Each runtime that loads the module gets its own [Context], built with
// opts:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("bridge", gojabridge.Require())
//	registry.Enable(runtime)
//
// After registration, JavaScript code loads the module by name:
//
//	const bridge = require('bridge');
//	bridge.gc();
//
// See [Context.ModuleLoader] to expose an existing context instead.
func Require(opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		c, err := Wrap(runtime, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		c.setupExports(module)
	}
}

// ModuleLoader returns a [require.ModuleLoader] exposing c. It panics with a
// TypeError if loaded by a runtime other than c's.
//
// The module exports:
//   - gc() runs [Context.GC]
//   - roots() returns the number of pinned slots
//   - isCompilable(source) reports [IsCompilable]
//   - evaluate(source[, file[, line]]) runs [Context.Evaluate]
//   - strict([enabled]) gets, or sets and returns the previous, strict mode
func (c *Context) ModuleLoader() require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		if runtime != c.runtime {
			panic(runtime.NewTypeError("gojabridge: module loaded by a foreign runtime"))
		}
		c.setupExports(module)
	}
}

func (c *Context) setupExports(module *goja.Object) {
	exports := Object{ctx: c, obj: module.Get("exports").(*goja.Object)}
	define := func(name string, arity int, fn NativeFunc) {
		if _, err := c.DefineFunction(exports, name, arity, fn); err != nil {
			panic(c.throw(err))
		}
	}
	define("gc", 0, func(call *CallContext) error {
		c.GC()
		return nil
	})
	define("roots", 0, func(call *CallContext) error {
		call.Return(Double(float64(c.roots.Len())))
		return nil
	})
	define("isCompilable", 1, func(call *CallContext) error {
		source, err := call.Arg(0).AsString()
		if err != nil {
			return err
		}
		call.Return(Bool(IsCompilable(source)))
		return nil
	})
	define("evaluate", 3, func(call *CallContext) error {
		source, err := call.Arg(0).AsString()
		if err != nil {
			return err
		}
		file := "<evaluate>"
		if arg := call.Arg(1); !arg.IsUndefined() {
			if file, err = arg.ToString(); err != nil {
				return err
			}
		}
		line := int32(1)
		if arg := call.Arg(2); !arg.IsUndefined() {
			if line, err = arg.ToInt32(); err != nil {
				return err
			}
		}
		v, err := c.Evaluate(source, file, int(line))
		if err != nil {
			return err
		}
		call.Return(v)
		return nil
	})
	define("strict", 1, func(call *CallContext) error {
		if arg := call.Arg(0); !arg.IsUndefined() {
			enabled, err := arg.ToBoolean()
			if err != nil {
				return err
			}
			call.Return(Bool(c.SetStrict(enabled)))
			return nil
		}
		call.Return(Bool(c.Strict()))
		return nil
	})
}
