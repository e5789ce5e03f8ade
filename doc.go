// Package gojabridge is a handle-based embedding layer over the [goja]
// JavaScript runtime. It maps the engine's values and objects onto Go
// ownership and reference semantics, and keeps host-held references valid
// across calls that may trigger garbage collection.
//
// # Overview
//
// A [Context] wraps one [goja.Runtime]:
//
//	ctx, err := gojabridge.New(gojabridge.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer ctx.Close()
//
//	v, err := ctx.Evaluate(`1 + 1`, "example.js", 1)
//
// # Values
//
// [Value] is a tagged value with exactly one [Kind]. Values are either
// owning (they hold their own storage) or aliasing (a view onto storage
// owned elsewhere, such as the argument slots and result slot of a native
// call). [Value.Bind] and [Value.Unbind] switch between the two. Typed
// accessors ([Value.AsInt], [Value.AsString], ...) fail with
// [ErrTypeMismatch] unless the tag matches; conversions ([Value.ToString],
// [Value.ToNumber], ...) fail with [ErrConversion] when the coercion is
// undefined.
//
// # Objects
//
// [Object] is a non-owning handle. The zero Object is the null handle, and
// operations on it fail with [ErrNullTarget]. Engine failures are reported
// as either a [*ScriptError], carrying the thrown value, or an
// [*AbortError] (matching [ErrAbort]) when the engine stopped without an
// exception, as after [Context.Interrupt].
//
// Property assignment from Go uses strict semantics: writing a read-only
// property fails, and the value is unchanged. Script assignments follow the
// mode the script was compiled in, see [Context.SetStrict].
//
// # Rooting
//
// Values that must outlive the current call are pinned in the context's
// [RootRegistry]. Guards are reference counted per storage slot, and are
// expected to be released in reverse order of acquisition. [Scope] releases
// a group of guards together:
//
//	scope := ctx.Enter()
//	defer scope.Close()
//	scope.RootObject(obj)
//
// # Native objects
//
// A Go type embedding [NativeBase] implements [NativeObject] and can be
// exposed as an engine object with [Context.NewNativeObject]. Property
// access, calls, and tracing are delegated to the instance. Finalization
// follows collection of the engine object, and is never prompt: it happens
// on the context goroutine the next time the context drains its queue
// ([Context.GC], the evaluation entry points, [Context.Close]).
//
// Native functions are created with [Context.NewFunction]; every passed
// argument is visible through [CallContext.Args] regardless of the
// declared arity.
//
// # Thread Safety
//
// A Context is not safe for concurrent use, matching the runtime it wraps.
// [Context.Interrupt] may be called from any goroutine.
package gojabridge
