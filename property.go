package gojabridge

import (
	"fmt"

	"github.com/dop251/goja"
)

// PropertyFlag is one attribute of a property definition.
type PropertyFlag uint8

const (
	// DontEnumerate hides the property from enumeration.
	DontEnumerate PropertyFlag = 1 << iota
	// ReadOnly makes a data property non-writable.
	ReadOnly
	// Permanent makes the property non-configurable (it cannot be deleted).
	Permanent
	// Shared marks a property without a value slot. Every accessor
	// property is shared, so the flag is implied by a getter or setter and
	// ignored on data properties.
	Shared
)

// PropertyAttributes describes a property for [Object.DefineProperty]. A
// non-null Getter or Setter defines an accessor property, in which case the
// initial value and ReadOnly are ignored.
type PropertyAttributes struct {
	Flags  PropertyFlag
	Getter Object
	Setter Object
}

// Has reports whether all of the given flags are set.
func (a PropertyAttributes) Has(flags PropertyFlag) bool { return a.Flags&flags == flags }

func (a PropertyAttributes) accessor() bool { return a.Getter.obj != nil || a.Setter.obj != nil }

// DefineProperty defines (or redefines) an own property of o.
func (o Object) DefineProperty(name string, init Value, attrs PropertyAttributes) error {
	if err := o.check("define_property"); err != nil {
		return err
	}
	c := o.ctx
	desc := c.runtime.NewObject()
	_ = desc.Set("enumerable", !attrs.Has(DontEnumerate))
	_ = desc.Set("configurable", !attrs.Has(Permanent))
	if attrs.accessor() {
		if attrs.Getter.obj != nil {
			_ = desc.Set("get", attrs.Getter.obj)
		}
		if attrs.Setter.obj != nil {
			_ = desc.Set("set", attrs.Setter.obj)
		}
	} else {
		_ = desc.Set("value", c.toGoja(init.storage()))
		_ = desc.Set("writable", !attrs.Has(ReadOnly))
	}
	if _, err := c.intrinsics.ObjectDefineProperty(goja.Undefined(), o.obj, c.runtime.ToValue(name), desc); err != nil {
		return c.engineError("define_property", err)
	}
	return nil
}

// GetPropertyAttributes returns the attributes of an own property. The
// boolean result is false if o has no such own property.
func (o Object) GetPropertyAttributes(name string) (PropertyAttributes, bool, error) {
	if err := o.check("get_property_attributes"); err != nil {
		return PropertyAttributes{}, false, err
	}
	desc, err := o.descriptor(name)
	if err != nil || desc == nil {
		return PropertyAttributes{}, false, err
	}
	var attrs PropertyAttributes
	if v := desc.Get("enumerable"); v == nil || !v.ToBoolean() {
		attrs.Flags |= DontEnumerate
	}
	if v := desc.Get("configurable"); v == nil || !v.ToBoolean() {
		attrs.Flags |= Permanent
	}
	getter, _ := desc.Get("get").(*goja.Object)
	setter, _ := desc.Get("set").(*goja.Object)
	if getter != nil || setter != nil {
		attrs.Flags |= Shared
		attrs.Getter = Object{ctx: o.ctx, obj: getter}
		attrs.Setter = Object{ctx: o.ctx, obj: setter}
	} else if v := desc.Get("writable"); v == nil || !v.ToBoolean() {
		attrs.Flags |= ReadOnly
	}
	return attrs, true, nil
}

// descriptor returns the own property descriptor object, nil if there is
// no such property.
func (o Object) descriptor(name string) (*goja.Object, error) {
	c := o.ctx
	r, err := c.intrinsics.ObjectGetOwnPropertyDescriptor(goja.Undefined(), o.obj, c.runtime.ToValue(name))
	if err != nil {
		return nil, c.engineError("get_property_attributes", err)
	}
	desc, _ := r.(*goja.Object)
	return desc, nil
}

// stringList calls fn(obj), expecting an array of strings, such as the
// result of Object.keys.
func (c *Context) stringList(op string, fn goja.Callable, obj *goja.Object) ([]string, error) {
	r, err := fn(goja.Undefined(), obj)
	if err != nil {
		return nil, c.engineError(op, err)
	}
	arr, ok := r.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("gojabridge: %s: unexpected key list %v", op, r)
	}
	n := arr.Get("length").ToInteger()
	names := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		names = append(names, arr.Get(fmt.Sprint(i)).String())
	}
	return names, nil
}
