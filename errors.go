package gojabridge

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// Standard errors. Use [errors.Is] to test for them, most are returned
// wrapped with the failing operation.
var (
	// ErrNullTarget is returned when an operation is attempted on a null
	// [Object] handle.
	ErrNullTarget = errors.New("gojabridge: null target")

	// ErrTypeMismatch is returned by the typed accessors of [Value] when the
	// value has a different tag. See also [TypeMismatchError].
	ErrTypeMismatch = errors.New("gojabridge: type mismatch")

	// ErrConversion is returned when a coercion is undefined for a value.
	// See also [ConversionError].
	ErrConversion = errors.New("gojabridge: conversion failed")

	// ErrAbort is matched by [AbortError], raised when the engine failed
	// without a pending exception, e.g. after [Context.Interrupt].
	ErrAbort = errors.New("gojabridge: quit")

	// ErrMisuse is returned for structurally invalid use of the API, such
	// as appending to an engine-provided [Arguments].
	ErrMisuse = errors.New("gojabridge: misuse")

	// ErrAlreadyBound is returned when a [NativeObject] is attached to a
	// second engine object.
	ErrAlreadyBound = errors.New("gojabridge: native object already bound")

	// ErrNotCallable is the default result of [NativeObject.SelfCall], and is
	// returned when invoking a non-function object.
	ErrNotCallable = errors.New("gojabridge: object is not callable")

	// ErrIterationExhausted is returned when advancing a [PropertyIterator]
	// past the end of its key snapshot.
	ErrIterationExhausted = errors.New("gojabridge: iteration exhausted")

	// ErrNotNative is returned by [Context.Native] for objects without a
	// native binding.
	ErrNotNative = errors.New("gojabridge: object has no native binding")

	// ErrCompile is matched by [CompileError].
	ErrCompile = errors.New("gojabridge: compilation failed")

	// ErrClosed is returned by operations on a closed [Context].
	ErrClosed = errors.New("gojabridge: context closed")
)

// TypeMismatchError is returned by the typed accessors of [Value].
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("gojabridge: type mismatch: want %s, got %s", e.Want, e.Got)
}

// Is matches [ErrTypeMismatch].
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// ConversionError is returned when a value cannot be coerced to the
// requested type.
type ConversionError struct {
	From Kind
	To   string
	// Cause is the engine error raised by the coercion, if any.
	Cause error
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gojabridge: could not convert %s to %s: %v", e.From, e.To, e.Cause)
	}
	return fmt.Sprintf("gojabridge: could not convert %s to %s", e.From, e.To)
}

// Is matches [ErrConversion].
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// Unwrap returns the cause.
func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// ScriptError is an engine failure that left a pending exception. The
// exception value is available for inspection, and is rethrown as-is when a
// ScriptError is returned from a [NativeFunc].
type ScriptError struct {
	// Op names the bridge operation that failed.
	Op string
	// Exception is the thrown value.
	Exception Value

	exception *goja.Exception
}

func (e *ScriptError) Error() string {
	msg := "exception"
	if e.exception != nil {
		msg = e.exception.Error()
	} else if s, err := e.Exception.ToString(); err == nil {
		msg = s
	}
	if e.Op == "" {
		return "gojabridge: " + msg
	}
	return "gojabridge: " + e.Op + ": " + msg
}

// Unwrap returns the underlying [*goja.Exception], if any.
func (e *ScriptError) Unwrap() error {
	if e.exception == nil {
		return nil
	}
	return e.exception
}

// AbortError is an engine failure with no pending exception. It is fatal to
// the current evaluation but leaves the [Context] usable.
type AbortError struct {
	Op string
	// Reason is the value passed to [Context.Interrupt], if any.
	Reason any
}

func (e *AbortError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("gojabridge: %s: quit: %v", e.Op, e.Reason)
	}
	return "gojabridge: " + e.Op + ": quit"
}

// Is matches [ErrAbort].
func (e *AbortError) Is(target error) bool {
	return target == ErrAbort
}

// CompileError is returned by the evaluation entry points when the source
// could not be compiled.
type CompileError struct {
	File string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("gojabridge: compile %s: %v", e.File, e.Err)
}

// Is matches [ErrCompile].
func (e *CompileError) Is(target error) bool {
	return target == ErrCompile
}

// Unwrap returns the compiler error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// engineError classifies an error returned by a goja call. A thrown
// exception becomes a ScriptError, an interrupt becomes an AbortError (the
// runtime interrupt flag is cleared, so later calls run normally), and
// anything else is wrapped with op.
func (c *Context) engineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		c.runtime.ClearInterrupt()
		c.logger.Info().
			Str("op", op).
			Log("gojabridge: evaluation aborted")
		return &AbortError{Op: op, Reason: interrupted.Value()}
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return &ScriptError{
			Op:        op,
			Exception: c.wrap(exception.Value()),
			exception: exception,
		}
	}
	return fmt.Errorf("gojabridge: %s: %w", op, err)
}

// throw converts err into a value suitable for panicking out of a goja
// callback.
func (c *Context) throw(err error) goja.Value {
	var script *ScriptError
	if errors.As(err, &script) {
		return c.toGoja(script.Exception.storage())
	}
	var mismatch *TypeMismatchError
	if errors.As(err, &mismatch) || errors.Is(err, ErrNotCallable) || errors.Is(err, ErrNullTarget) {
		return c.runtime.NewTypeError(err.Error())
	}
	return c.runtime.NewGoError(err)
}
