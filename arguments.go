package gojabridge

import (
	"fmt"
	"iter"

	"github.com/dop251/goja"
)

// Arguments is an argument vector, in one of two explicit variants.
//
// An engine-provided vector (see [CallContext.Args]) is a fixed-length view
// of the argument slots of a native call. [Arguments.At] aliases those slots,
// and the vector cannot grow.
//
// A host-constructed vector (see [Context.NewArguments]) owns its storage,
// one slot per element, so aliases returned by At stay valid as the vector
// grows. Elements appended with [Arguments.AppendRoot] are pinned until
// [Arguments.Release].
type Arguments struct {
	ctx *Context

	provided bool

	// engine holds the argument slots of an engine-provided vector
	engine []slot

	// host and roots are parallel, roots[i] is nil unless the element is pinned
	host  []*slot
	roots []*Root
}

// NewArguments returns a host-constructed vector holding copies of vals.
func (c *Context) NewArguments(vals ...Value) *Arguments {
	a := &Arguments{
		ctx:   c,
		host:  make([]*slot, 0, len(vals)),
		roots: make([]*Root, 0, len(vals)),
	}
	for _, v := range vals {
		s := v.storage()
		a.host = append(a.host, &s)
		a.roots = append(a.roots, nil)
	}
	return a
}

// engineArguments wraps the arguments of a goja call as an engine-provided vector.
func (c *Context) engineArguments(args []goja.Value) *Arguments {
	a := &Arguments{
		ctx:      c,
		provided: true,
		engine:   make([]slot, len(args)),
	}
	for i, v := range args {
		a.engine[i] = slot{v: v, ctx: c}
	}
	return a
}

// IsEngineProvided reports whether a is an engine-provided vector.
func (a *Arguments) IsEngineProvided() bool { return a != nil && a.provided }

// Len returns the number of elements. A nil vector is empty.
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	if a.provided {
		return len(a.engine)
	}
	return len(a.host)
}

// Empty reports whether Len is zero.
func (a *Arguments) Empty() bool { return a.Len() == 0 }

// At returns an alias of element i. Out of range indexes return undefined,
// they never fail.
func (a *Arguments) At(i int) Value {
	if i < 0 || i >= a.Len() {
		return Undefined()
	}
	if a.provided {
		return Value{ref: &a.engine[i]}
	}
	return Value{ref: a.host[i]}
}

// Front returns At(0).
func (a *Arguments) Front() Value { return a.At(0) }

// Back returns the last element, undefined if a is empty.
func (a *Arguments) Back() Value { return a.At(a.Len() - 1) }

// Append adds a copy of v to a host-constructed vector. Engine-provided
// vectors fail with [ErrMisuse].
func (a *Arguments) Append(v Value) error {
	_, err := a.append(v)
	return err
}

// AppendRoot is Append, additionally pinning the new element in the
// context's [RootRegistry] until [Arguments.Release]. The zero value has no
// context to root in, so it accepts Append but not AppendRoot.
func (a *Arguments) AppendRoot(v Value) error {
	if a != nil && a.ctx == nil {
		return fmt.Errorf("gojabridge: arguments: root append to a vector without a context: %w", ErrMisuse)
	}
	i, err := a.append(v)
	if err != nil {
		return err
	}
	a.roots[i] = a.ctx.roots.add(a.host[i])
	return nil
}

func (a *Arguments) append(v Value) (int, error) {
	if a == nil || a.provided {
		return 0, fmt.Errorf("gojabridge: arguments: append to engine-provided vector: %w", ErrMisuse)
	}
	s := v.storage()
	a.host = append(a.host, &s)
	a.roots = append(a.roots, nil)
	return len(a.host) - 1, nil
}

// Release unpins every element pinned with AppendRoot. The elements stay.
func (a *Arguments) Release() {
	if a == nil {
		return
	}
	for i := len(a.roots) - 1; i >= 0; i-- {
		if a.roots[i] != nil {
			a.roots[i].Release()
			a.roots[i] = nil
		}
	}
}

// Clone copies the vector. A host-constructed vector is deep copied: the
// clone has its own slots, and its own pins for the pinned elements. An
// engine-provided vector is cloned as another view of the same slots.
func (a *Arguments) Clone() *Arguments {
	if a == nil {
		return nil
	}
	if a.provided {
		return &Arguments{ctx: a.ctx, provided: true, engine: a.engine}
	}
	b := &Arguments{
		ctx:   a.ctx,
		host:  make([]*slot, len(a.host)),
		roots: make([]*Root, len(a.host)),
	}
	for i, s := range a.host {
		cp := *s
		b.host[i] = &cp
		if a.roots[i] != nil {
			b.roots[i] = a.ctx.roots.add(&cp)
		}
	}
	return b
}

// All iterates the elements in order, as aliases.
func (a *Arguments) All() iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		for i := 0; i < a.Len(); i++ {
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}

// Values returns owning copies of the elements.
func (a *Arguments) Values() []Value {
	vals := make([]Value, a.Len())
	for i := range vals {
		vals[i] = a.At(i).Owned()
	}
	return vals
}

func (a *Arguments) engineValues(c *Context) []goja.Value {
	n := a.Len()
	if n == 0 {
		return nil
	}
	vals := make([]goja.Value, n)
	for i := range vals {
		vals[i] = c.toGoja(a.At(i).storage())
	}
	return vals
}
