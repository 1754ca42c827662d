package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/encodeous/strand/state"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sys/unix"
)

var ErrNoPeer = errors.New("no peer connected for address")

type Packet struct {
	From *Conn
	Data []byte
}

// Handlers are invoked from reader goroutines, they must not touch main loop state directly.
type Handlers struct {
	OnPacket func(p Packet)
	// OnClosed is called once per connection that ends for a reason other than Endpoint.Close. Any read error
	// ends the connection.
	OnClosed func(c *Conn, err error)
}

// Endpoint is one end of a daemon channel. In dial mode it holds a single connection, in listen mode it
// accepts any number of peers.
type Endpoint struct {
	Name string
	Path string
	Role state.Role

	log      *slog.Logger
	listener net.Listener

	mu     sync.Mutex
	conns  map[uuid.UUID]*Conn
	closed bool
	wg     sync.WaitGroup

	// peers maps a neighbour address to the connection it was last heard on
	peers *ttlcache.Cache[state.Address, *Conn]
}

// Open dials or listens on cfg.Path depending on cfg.Role.
func Open(ctx context.Context, name string, cfg state.ChannelCfg, peerTTL time.Duration, log *slog.Logger) (*Endpoint, error) {
	e := &Endpoint{
		Name:  name,
		Path:  cfg.Path,
		Role:  cfg.Role,
		log:   log.With("channel", name),
		conns: make(map[uuid.UUID]*Conn),
		peers: ttlcache.New[state.Address, *Conn](
			ttlcache.WithTTL[state.Address, *Conn](peerTTL),
			ttlcache.WithDisableTouchOnHit[state.Address, *Conn](),
		),
	}
	switch cfg.Role {
	case state.RoleDial:
		d := net.Dialer{}
		c, err := d.DialContext(ctx, Network, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: dial %s: %w", name, cfg.Path, err)
		}
		conn := newConn(c, false)
		e.conns[conn.id] = conn
		e.log.Info("connected", "path", cfg.Path)
	case state.RoleListen:
		// a previous run may have left the socket file behind
		err := unix.Unlink(cfg.Path)
		if err != nil && !errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%s: remove stale socket %s: %w", name, cfg.Path, err)
		}
		lc := net.ListenConfig{}
		l, err := lc.Listen(ctx, Network, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: listen %s: %w", name, cfg.Path, err)
		}
		e.listener = l
		e.log.Info("listening on", "path", cfg.Path)
	default:
		return nil, fmt.Errorf("%s: unknown role %q", name, cfg.Role)
	}
	return e, nil
}

// Serve starts the reader goroutines. It returns immediately.
func (e *Endpoint) Serve(h Handlers) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.conns {
		e.startReader(c, h)
	}
	if e.listener != nil {
		e.wg.Add(1)
		go e.acceptLoop(h)
	}
}

func (e *Endpoint) acceptLoop(h Handlers) {
	defer e.wg.Done()
	for {
		c, err := e.listener.Accept()
		if err != nil {
			if e.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			e.log.Warn("failed to accept connection", "err", err)
			continue
		}
		conn := newConn(c, true)
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			_ = c.Close()
			return
		}
		e.conns[conn.id] = conn
		e.startReader(conn, h)
		e.mu.Unlock()
		e.log.Debug("accepted peer", "conn", conn)
	}
}

// startReader must be called with e.mu held.
func (e *Endpoint) startReader(c *Conn, h Handlers) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			data, err := c.ReadMsg()
			if err != nil {
				if e.isClosed() {
					return
				}
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					e.log.Warn("read failed, dropping connection", "conn", c, "err", err)
				}
				e.drop(c)
				if h.OnClosed != nil {
					h.OnClosed(c, err)
				}
				return
			}
			if h.OnPacket != nil {
				h.OnPacket(Packet{From: c, Data: data})
			}
		}
	}()
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Endpoint) drop(c *Conn) {
	e.mu.Lock()
	delete(e.conns, c.id)
	e.mu.Unlock()
	_ = c.Close()
	for addr, item := range e.peers.Items() {
		if item.Value() == c {
			e.peers.Delete(addr)
		}
	}
	e.log.Debug("connection closed", "conn", c)
}

// Associate records that addr is reachable over c. It is a no-op for dial endpoints.
func (e *Endpoint) Associate(addr state.Address, c *Conn) {
	if e.Role != state.RoleListen || c == nil || !addr.Valid() {
		return
	}
	e.peers.Set(addr, c, ttlcache.DefaultTTL)
}

// Peer returns the connection addr was last heard on.
func (e *Endpoint) Peer(addr state.Address) *Conn {
	item := e.peers.Get(addr)
	if item == nil {
		return nil
	}
	return item.Value()
}

// ExpirePeers forgets associations that were not refreshed within the peer TTL.
func (e *Endpoint) ExpirePeers() {
	e.peers.DeleteExpired()
}

// Conns returns the number of open connections.
func (e *Endpoint) Conns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

// Send delivers b towards addr. A dial endpoint always writes to its only connection. A listening endpoint
// writes to the peer associated with addr, and to every peer when addr is state.Unknown.
func (e *Endpoint) Send(addr state.Address, b []byte) error {
	if e.Role == state.RoleListen && addr.Valid() {
		c := e.Peer(addr)
		if c == nil {
			return fmt.Errorf("%w %s", ErrNoPeer, addr)
		}
		return c.WriteMsg(b)
	}
	return e.Broadcast(b)
}

func (e *Endpoint) Broadcast(b []byte) error {
	e.mu.Lock()
	conns := make([]*Conn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.mu.Unlock()
	if len(conns) == 0 {
		return ErrNoPeer
	}
	var errs []error
	for _, c := range conns {
		if err := c.WriteMsg(b); err != nil {
			errs = append(errs, fmt.Errorf("conn %s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops all goroutines started by Serve and waits for them to exit.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var errs []error
	if e.listener != nil {
		errs = append(errs, e.listener.Close())
	}
	for _, c := range e.conns {
		errs = append(errs, c.Close())
	}
	e.mu.Unlock()
	e.wg.Wait()
	e.peers.DeleteAll()
	return errors.Join(errs...)
}
