package gojabridge

import (
	"fmt"
)

// PropertyIterator walks a point-in-time snapshot of an object's own
// enumerable string keys. Keys added to or removed from the target after
// the iterator was created are not reflected.
//
//	for it, _ := obj.Iterate(); !it.Done(); _ = it.Next() {
//		key := it.Key()
//	}
type PropertyIterator struct {
	target Object
	keys   []string
	pos    int
}

func newPropertyIterator(o Object) (*PropertyIterator, error) {
	if err := o.check("property_iterator"); err != nil {
		return nil, err
	}
	keys, err := o.ctx.stringList("property_iterator", o.ctx.intrinsics.ObjectKeys, o.obj)
	if err != nil {
		return nil, err
	}
	return &PropertyIterator{target: o, keys: keys}, nil
}

// Target returns the object being iterated.
func (it *PropertyIterator) Target() Object { return it.target }

// Done reports whether the iterator is exhausted.
func (it *PropertyIterator) Done() bool { return it == nil || it.pos >= len(it.keys) }

// Next advances to the next key. Advancing an exhausted iterator fails with
// [ErrIterationExhausted].
func (it *PropertyIterator) Next() error {
	if it.Done() {
		return fmt.Errorf("gojabridge: property_iterator: %w", ErrIterationExhausted)
	}
	it.pos++
	return nil
}

// Key returns the current key as a string value, or undefined once the
// iterator is exhausted.
func (it *PropertyIterator) Key() Value {
	if it.Done() {
		return Undefined()
	}
	return String(it.keys[it.pos])
}

// Value reads the property at the current key from the target.
func (it *PropertyIterator) Value() (Value, error) {
	if it.Done() {
		return Value{}, fmt.Errorf("gojabridge: property_iterator: %w", ErrIterationExhausted)
	}
	return it.target.Get(it.keys[it.pos])
}

// Equal reports whether both iterators are exhausted, or both are at the
// same key of the same target. A nil iterator is an exhausted one.
func (it *PropertyIterator) Equal(other *PropertyIterator) bool {
	if it.Done() || other.Done() {
		return it.Done() && other.Done()
	}
	return it.target.Equal(other.target) && it.keys[it.pos] == other.keys[other.pos]
}
