package eval

// Context is the evaluation session state threaded through every domain
// operation: the current and global environments, the store, and a
// freshness counter for type variables. It collapses what would otherwise
// be several implicit effects into one explicit object.
//
// A Context belongs to exactly one evaluation session and must not be
// shared across concurrent sessions; independent analyses each build their
// own (see RunConcurrently at the package root).
type Context struct {
	store  *Store
	env    *Environment
	global *Environment
	fresh  int64
}

// NewContext returns a session context with an empty environment and a
// fresh store.
func NewContext() *Context {
	return &Context{store: NewStore()}
}

// Env returns the current environment.
func (c *Context) Env() *Environment {
	return c.env
}

// Global returns the session's top-level environment, the one interface
// values capture.
func (c *Context) Global() *Environment {
	return c.global
}

// SetGlobal marks env as the session's top-level environment and makes it
// current. The engine calls this when the session starts; the evaluator
// calls it again for each top-level definition.
func (c *Context) SetGlobal(env *Environment) {
	c.global = env
	c.env = env
}

// WithEnv runs f with env as the current environment and restores the
// previous one afterwards, whether or not f failed.
func (c *Context) WithEnv(env *Environment, f func() (Value, error)) (Value, error) {
	saved := c.env
	c.env = env
	v, err := f()
	c.env = saved
	return v, err
}

// Bind evaluates nothing: it allocates a slot, writes v into it, and
// returns the current environment extended with name. The caller decides
// whether the extension becomes current.
func (c *Context) Bind(name Name, v Value) *Environment {
	addr := c.store.Alloc()
	c.store.Assign(addr, v)
	return c.env.Extend(name, addr)
}

// Alloc reserves a fresh store slot.
func (c *Context) Alloc() Addr {
	return c.store.Alloc()
}

// Assign writes v at addr.
func (c *Context) Assign(addr Addr, v Value) {
	c.store.Assign(addr, v)
}

// Read loads the value at addr, failing with UnboundAddress for a slot the
// store has never seen.
func (c *Context) Read(addr Addr) (Value, error) {
	return c.store.Read(addr)
}

// Store exposes the session store. Tests use it to observe allocation
// counts.
func (c *Context) Store() *Store {
	return c.store
}

// FreshID returns an identifier that is unique within this session. The
// type domain uses it for type-variable ids.
func (c *Context) FreshID() int64 {
	c.fresh++
	return c.fresh
}
