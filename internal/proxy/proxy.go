// Package proxy exposes an instance-internal port on the host loopback.
// Each accepted connection is relayed through one freshly spawned
// in-instance bridge subprocess: a protocol-unaware, full-duplex byte
// relay over the subprocess's stdio.
package proxy

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/boxlab/boxctl/internal/execx"
)

// NewBridgeFunc spawns one bridge subprocess with live stdio pipes.
type NewBridgeFunc func() (*execx.Pipe, error)

// Bridge is one running local proxy: a loopback listener plus the set of
// live bridge subprocesses.
type Bridge struct {
	listener  net.Listener
	newBridge NewBridgeFunc
	log       zerolog.Logger

	mu     sync.Mutex
	active map[*execx.Pipe]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Start binds 127.0.0.1:localPort and begins accepting. The listener is
// loopback-only: this exists solely to reach an instance-internal service
// from the host, never to expose it externally.
func Start(localPort int, newBridge NewBridgeFunc, log zerolog.Logger) (*Bridge, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", localPort))
	if err != nil {
		return nil, fmt.Errorf("binding 127.0.0.1:%d: %w", localPort, err)
	}
	b := &Bridge{
		listener:  ln,
		newBridge: newBridge,
		log:       log,
		active:    make(map[*execx.Pipe]struct{}),
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// Addr returns the bound listener address.
func (b *Bridge) Addr() net.Addr {
	return b.listener.Addr()
}

func (b *Bridge) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return // listener closed
		}
		b.wg.Add(1)
		go b.serve(conn)
	}
}

// serve relays one connection. One subprocess per connection, unbounded
// concurrently, acceptable for a single-operator local tool.
func (b *Bridge) serve(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()

	pipe, err := b.newBridge()
	if err != nil {
		b.log.Error().Err(err).Msg("spawning bridge subprocess failed")
		return
	}
	if !b.track(pipe) {
		pipe.Cmd.Process.Kill()
		return
	}
	defer b.untrack(pipe)

	// Either side closing or erroring tears down the other.
	done := make(chan struct{}, 2)
	go func() {
		io.Copy(pipe.Stdin, conn)
		pipe.Stdin.Close()
		done <- struct{}{}
	}()
	go func() {
		io.Copy(conn, pipe.Stdout)
		done <- struct{}{}
	}()
	<-done

	pipe.Cmd.Process.Kill()
	conn.Close()
	// Both copies must finish before Wait: Wait closes the stdout pipe, and
	// closing it under a concurrent read loses any buffered tail bytes.
	<-done
	pipe.Cmd.Wait()
}

func (b *Bridge) track(p *execx.Pipe) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.active[p] = struct{}{}
	return true
}

func (b *Bridge) untrack(p *execx.Pipe) {
	b.mu.Lock()
	delete(b.active, p)
	b.mu.Unlock()
}

// Stop shuts down the listener and terminates every outstanding bridge,
// then waits for the relay goroutines to drain.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	pipes := make([]*execx.Pipe, 0, len(b.active))
	for p := range b.active {
		pipes = append(pipes, p)
	}
	b.mu.Unlock()

	b.listener.Close()
	for _, p := range pipes {
		p.Cmd.Process.Kill()
	}
	b.wg.Wait()
}
