package kinesis

import "sync"

// Connection is a shared handle to one physical controller unit.  All
// channels of a multi-channel controller share a single Connection; the
// transport-level close is deferred until the last holder releases it.
type Connection struct {
	registry  *Registry
	transport Transport
	serialNo  string
	valid     bool
	lastErr   int
}

// SerialNo returns the controller serial number
func (c *Connection) SerialNo() string {
	return c.serialNo
}

// IsValid reports whether the transport-level open succeeded.  Callers must
// check this before issuing commands.
func (c *Connection) IsValid() bool {
	return c.valid
}

// LastError returns the vendor code from the failed open, or CodeOK
func (c *Connection) LastError() int {
	return c.lastErr
}

// Release drops this holder's reference.  The transport connection closes
// when the last reference is released.
func (c *Connection) Release() {
	c.registry.release(c)
}

// Registry resolves controller serial numbers to shared Connections over a
// single injected Transport.  It is safe for concurrent use.
type Registry struct {
	transport Transport

	mu   sync.Mutex
	open map[string]*refConn
}

type refConn struct {
	conn *Connection
	refs int
}

// NewRegistry returns a Registry issuing connections over t
func NewRegistry(t Transport) *Registry {
	return &Registry{
		transport: t,
		open:      map[string]*refConn{},
	}
}

// Connect acquires a shared connection for the given serial number, opening
// the transport on first acquisition.  It always returns a Connection; a
// failed open yields an invalid one carrying the vendor code, which must
// still be Released.
func (r *Registry) Connect(serialNo string) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rc, ok := r.open[serialNo]; ok {
		rc.refs++
		return rc.conn
	}
	conn := &Connection{
		registry:  r,
		transport: r.transport,
		serialNo:  serialNo,
	}
	err := r.transport.Open(serialNo)
	if err != nil {
		conn.lastErr = CodeOf(err)
		return conn
	}
	conn.valid = true
	r.open[serialNo] = &refConn{conn: conn, refs: 1}
	return conn
}

func (r *Registry) release(c *Connection) {
	if !c.valid {
		// failed opens are not shared and hold no transport resource
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.open[c.serialNo]
	if !ok {
		return
	}
	rc.refs--
	if rc.refs > 0 {
		return
	}
	delete(r.open, c.serialNo)
	r.transport.Close(c.serialNo)
	c.valid = false
}
