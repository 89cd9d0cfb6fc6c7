package docforge

// Context is the name to Value mapping supplied to one render or evaluation
// call. A Context is never modified once built; With returns a copy.
type Context struct {
	vars *Map
}

// NewContext returns an empty Context.
func NewContext() Context {
	return Context{vars: NewMap()}
}

// ContextOf maps native data into a Context. Top-level names are added in
// sorted order since Go maps carry no order of their own.
func ContextOf(data map[string]any) Context {
	ctx := NewContext()
	for _, k := range sortedKeys(data) {
		ctx.vars.Set(k, ValueOf(data[k]))
	}
	return ctx
}

// ContextFromMap wraps an ordered Map as a Context.
func ContextFromMap(m *Map) Context {
	if m == nil {
		return NewContext()
	}
	return Context{vars: m.clone()}
}

// With returns a copy of the Context with name bound to value.
func (c Context) With(name string, value Value) Context {
	var vars *Map
	if c.vars == nil {
		vars = NewMap()
	} else {
		vars = c.vars.clone()
	}
	vars.Set(name, value)
	return Context{vars: vars}
}

func (c Context) Get(name string) (Value, bool) {
	return c.vars.Get(name)
}

// Names lists the bound names in insertion order.
func (c Context) Names() []string {
	return c.vars.Keys()
}

func (c Context) Len() int {
	return c.vars.Len()
}

// Root exposes the Context as a map Value so the resolver can descend into it.
func (c Context) Root() Value {
	if c.vars == nil {
		return MapValue(NewMap())
	}
	return MapValue(c.vars)
}
