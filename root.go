package gojabridge

// RootRegistry is the table of pinned values of a [Context]. A rooted value
// stays reachable (and so valid) regardless of what else refers to it, until
// every [Root] guard for its storage is released.
//
// goja has no root API of its own: objects live exactly as long as Go can
// reach them. The registry therefore pins storage by keeping it reachable
// from the registry itself, which the Go collector scans, and reports it as
// part of the root set (see [Context.VisitRoots]).
//
// Registration and release are O(1) for guards released in reverse order of
// acquisition. Releasing out of order is permitted, costs a scan of the
// guards acquired since, and is logged as a warning.
//
// Like the rest of the context, the registry must only be used from the
// goroutine driving the context.
type RootRegistry struct {
	ctx     *Context
	entries map[*slot]*rootEntry
	// guards in acquisition order, the last element was acquired last
	guards []*Root
	seq    uint64
}

type rootEntry struct {
	slot *slot
	refs int
}

// Root is a guard produced by registering storage with a [RootRegistry].
// The storage is pinned until Release is called.
type Root struct {
	reg      *RootRegistry
	entry    *rootEntry
	seq      uint64
	released bool
}

func newRootRegistry(c *Context) *RootRegistry {
	return &RootRegistry{
		ctx:     c,
		entries: make(map[*slot]*rootEntry),
	}
}

// Root pins the storage of v. If v is an alias, the aliased storage is
// pinned. The storage may be pinned by several guards at once.
func (r *RootRegistry) Root(v *Value) *Root {
	return r.add(v.target())
}

// RootValue pins a new slot holding a copy of v. Read it with [Root.Value].
func (r *RootRegistry) RootValue(v Value) *Root {
	s := v.storage()
	return r.add(&s)
}

// RootObject pins a new slot holding o.
func (r *RootRegistry) RootObject(o Object) *Root {
	return r.RootValue(FromObject(o))
}

func (r *RootRegistry) add(s *slot) *Root {
	entry, ok := r.entries[s]
	if !ok {
		entry = &rootEntry{slot: s}
		r.entries[s] = entry
	}
	entry.refs++
	r.seq++
	g := &Root{reg: r, entry: entry, seq: r.seq}
	r.guards = append(r.guards, g)
	return g
}

// Len returns the number of distinct pinned slots.
func (r *RootRegistry) Len() int { return len(r.entries) }

// Guards returns the number of live guards.
func (r *RootRegistry) Guards() int { return len(r.guards) }

// Visit calls fn with an alias of every pinned slot, until fn returns false.
func (r *RootRegistry) Visit(fn func(Value) bool) {
	for s := range r.entries {
		if !fn(Value{ref: s}) {
			return
		}
	}
}

func (r *RootRegistry) remove(g *Root) {
	n := len(r.guards)
	if n != 0 && r.guards[n-1] == g {
		r.guards[n-1] = nil
		r.guards = r.guards[:n-1]
	} else {
		for i := n - 1; i >= 0; i-- {
			if r.guards[i] == g {
				r.ctx.logger.Warning().
					Uint64("seq", g.seq).
					Int("newer", n-1-i).
					Log("gojabridge: root released out of order")
				copy(r.guards[i:], r.guards[i+1:])
				r.guards[n-1] = nil
				r.guards = r.guards[:n-1]
				break
			}
		}
	}
	g.entry.refs--
	if g.entry.refs <= 0 {
		delete(r.entries, g.entry.slot)
	}
}

// releaseAll releases every guard, newest first.
func (r *RootRegistry) releaseAll() {
	for len(r.guards) != 0 {
		r.guards[len(r.guards)-1].Release()
	}
}

// Value returns an alias of the pinned storage.
func (g *Root) Value() Value { return Value{ref: g.entry.slot} }

// Object returns the pinned object, or a null handle if the pinned value is
// not an object.
func (g *Root) Object() Object {
	o, _ := g.Value().AsObject()
	return o
}

// Released reports whether Release has been called.
func (g *Root) Released() bool { return g.released }

// Release unpins the storage, unless other guards still pin it. Calling
// Release more than once has no further effect.
func (g *Root) Release() {
	if g == nil || g.released {
		return
	}
	g.released = true
	g.reg.remove(g)
}

// Scope is a local root scope: guards acquired through it are released, in
// reverse order, when the scope is closed. Scopes nest; closing a scope
// first closes any scope entered after it.
//
//	scope := ctx.Enter()
//	defer scope.Close()
type Scope struct {
	ctx    *Context
	roots  []*Root
	closed bool
}

// Enter opens a new local root scope. The caller must Close it, typically
// with defer, so that the scope is released on every exit path.
func (c *Context) Enter() *Scope {
	s := &Scope{ctx: c}
	c.scopes = append(c.scopes, s)
	return s
}

// Active reports whether any local root scope is open.
func (c *Context) Active() bool { return len(c.scopes) != 0 }

// Root pins the storage of v until the scope closes.
func (s *Scope) Root(v *Value) *Root {
	g := s.ctx.roots.Root(v)
	s.roots = append(s.roots, g)
	return g
}

// RootValue pins a copy of v until the scope closes.
func (s *Scope) RootValue(v Value) *Root {
	g := s.ctx.roots.RootValue(v)
	s.roots = append(s.roots, g)
	return g
}

// RootObject pins o until the scope closes.
func (s *Scope) RootObject(o Object) *Root {
	g := s.ctx.roots.RootObject(o)
	s.roots = append(s.roots, g)
	return g
}

// Close releases the scope's guards. It is safe to call more than once.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	c := s.ctx
	idx := -1
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i] == s {
			idx = i
			break
		}
	}
	if idx >= 0 {
		for i := len(c.scopes) - 1; i > idx; i-- {
			c.scopes[i].release()
		}
		clear(c.scopes[idx:])
		c.scopes = c.scopes[:idx]
	}
	s.release()
}

func (s *Scope) release() {
	s.closed = true
	for i := len(s.roots) - 1; i >= 0; i-- {
		s.roots[i].Release()
	}
	s.roots = nil
}
