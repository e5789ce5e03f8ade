package gojabridge

import (
	"fmt"
	"strconv"
)

// Array is an [Object] known to be an array.
type Array struct {
	Object
}

// AsArray checks that o is an array.
func AsArray(o Object) (Array, error) {
	if err := o.check("array"); err != nil {
		return Array{}, err
	}
	if !o.IsArray() {
		return Array{}, fmt.Errorf("gojabridge: array: %s: %w", o.ClassName(), ErrTypeMismatch)
	}
	return Array{Object: o}, nil
}

// NewArray creates an array holding vals.
func (c *Context) NewArray(vals ...Value) Array {
	items := make([]any, len(vals))
	for i, v := range vals {
		items[i] = c.toGoja(v.storage())
	}
	return Array{Object: Object{ctx: c, obj: c.runtime.NewArray(items...)}}
}

// Len returns the length property.
func (a Array) Len() (int, error) {
	v, err := a.Object.Get("length")
	if err != nil {
		return 0, err
	}
	n, err := v.ToUint32()
	return int(n), err
}

// SetLen sets the length property, truncating or extending the array.
func (a Array) SetLen(n int) error {
	if n < 0 {
		return fmt.Errorf("gojabridge: array: negative length: %w", ErrMisuse)
	}
	_, err := a.Object.Set("length", Double(float64(n)))
	return err
}

// Get returns element i, undefined if it does not exist.
func (a Array) Get(i int) (Value, error) {
	return a.Object.Get(strconv.Itoa(i))
}

// Set stores v at index i.
func (a Array) Set(i int, v Value) error {
	_, err := a.Object.Set(strconv.Itoa(i), v)
	return err
}

// Push appends v.
func (a Array) Push(v Value) error {
	_, err := a.Call("push", a.ctx.NewArguments(v))
	return err
}
