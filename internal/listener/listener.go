// Package listener accepts TCP connections and feeds them into the I/O
// dispatcher (spec.md C8), playing the role the teacher's
// internal/server.RedisServer accept-loop + handleConnection played,
// generalized to hand connections to internal/dispatch instead of
// running each one straight through to command execution.
package listener

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"redcore/internal/config"
	"redcore/internal/dispatch"
	"redcore/internal/engine"
	"redcore/internal/keyspace"
	"redcore/internal/protocol"

	"go.uber.org/zap"
)

// Listener owns the TCP socket and the per-connection accept loop.
type Listener struct {
	cfg *config.Config
	eng *engine.Engine
	d   *dispatch.Dispatcher
	log *zap.SugaredLogger

	ln net.Listener

	mu        sync.Mutex
	wg        sync.WaitGroup
	active    atomic.Int64
	isClosing bool
}

// New builds a Listener bound to cfg.Host:cfg.Port, driving eng through d.
func New(cfg *config.Config, eng *engine.Engine, d *dispatch.Dispatcher, log *zap.SugaredLogger) *Listener {
	return &Listener{cfg: cfg, eng: eng, d: d, log: log}
}

// Serve binds the listening socket and accepts connections until ctx is
// cancelled. It blocks until the accept loop exits.
func (l *Listener) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	l.ln = ln
	l.log.Infow("listening", "addr", addr)

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		l.isClosing = true
		l.mu.Unlock()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			l.mu.Lock()
			closing := l.isClosing
			l.mu.Unlock()
			if closing {
				break
			}
			l.log.Warnw("accept failed", "err", err)
			continue
		}
		if int(l.active.Load()) >= l.cfg.MaxConnections {
			conn.Close()
			continue
		}
		l.active.Add(1)
		l.wg.Add(1)
		go l.handle(ctx, conn)
	}
	l.wg.Wait()
	return nil
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer l.active.Add(-1)
	defer conn.Close()

	sess := l.eng.NewSession()
	defer l.eng.CloseSession(sess.ID())

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	c := &clientConn{conn: conn, r: bufio.NewReader(conn)}
	worker := l.d.AssignWorker()

	// Pub/Sub pushes and ordinary replies share the same socket; a
	// second goroutine drains the session's outbox so a publish from
	// another connection's PUBLISH doesn't wait on this client's next read.
	go l.drainOutbox(connCtx, sess, c)

	worker.Serve(connCtx, l.d, sess.ID(), shardOf, c)
}

// drainOutbox writes pub/sub push frames as they arrive, independent of
// this connection's request/response cadence (spec.md §4.6).
func (l *Listener) drainOutbox(ctx context.Context, sess *engine.Session, c *clientConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-sess.Outbox():
			if !ok {
				return
			}
			if err := c.WriteReply(b); err != nil {
				return
			}
		}
	}
}

// shardOf maps a command's target key to its owning keyspace slot, so
// the dispatcher's command-loop partitions give single-threaded command
// semantics per shard (spec.md §4.8). Commands with no key argument
// (PING, SUBSCRIBE, ...) all route to slot 0; it owns no more or less
// correctness burden than any other slot, since those commands don't
// touch keyspace state the per-shard ordering protects.
func shardOf(argv [][]byte) int {
	if len(argv) < 2 {
		return 0
	}
	return keyspace.SlotOf(string(argv[1]))
}

// clientConn adapts a net.Conn + buffered reader to dispatch.ClientConn.
type clientConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func (c *clientConn) ReadCommand(ctx context.Context) ([][]byte, error) {
	return protocol.ParseCommand(c.r)
}

func (c *clientConn) WriteReply(reply []byte) error {
	_, err := c.conn.Write(reply)
	return err
}
