// Package broadcast publishes hand observations as OSC messages over UDP.
package broadcast

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/hand"
)

// Default OSC destination.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8000
)

// ErrClosed is returned when sending on a closed Broadcaster.
var ErrClosed = errors.New("broadcaster closed")

// Messages encodes one observation as its four OSC messages:
//
//	/hand/{id}/position      x y
//	/hand/{id}/pinch_length  length
//	/hand/{id}/pinch_angle   degrees
//	/hand/{id}/is_pinching   1.0 or 0.0
//
// All arguments are float32.
func Messages(obs hand.Observation) []*osc.Message {
	prefix := "/hand/" + strconv.Itoa(obs.HandID)

	pinching := float32(0)
	if obs.IsPinching {
		pinching = 1
	}

	return []*osc.Message{
		osc.NewMessage(prefix+"/position", float32(obs.Center.X), float32(obs.Center.Y)),
		osc.NewMessage(prefix+"/pinch_length", float32(obs.PinchLength)),
		osc.NewMessage(prefix+"/pinch_angle", float32(obs.PinchAngle)),
		osc.NewMessage(prefix+"/is_pinching", pinching),
	}
}

// Stats counts datagrams since Dial.
type Stats struct {
	Sent   uint64
	Failed uint64
}

// Broadcaster sends OSC datagrams to one destination over a single UDP
// socket. Delivery is best effort.
type Broadcaster struct {
	conn   net.PacketConn
	target *net.UDPAddr
	log    *zap.Logger

	sent   atomic.Uint64
	failed atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// Dial resolves host:port and opens the session socket.
func Dial(host string, port int, log *zap.Logger) (*Broadcaster, error) {
	if log == nil {
		log = zap.NewNop()
	}

	target, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("resolve osc target: %w", err)
	}

	network := "udp4"
	if target.IP.To4() == nil {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("open osc socket: %w", err)
	}

	log.Info("osc broadcaster ready", zap.String("target", target.String()))
	return &Broadcaster{conn: conn, target: target, log: log}, nil
}

// Target returns the destination address.
func (b *Broadcaster) Target() string {
	return b.target.String()
}

// Send encodes and sends one message.
func (b *Broadcaster) Send(msg *osc.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	data, err := msg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Address, err)
	}
	if _, err := b.conn.WriteTo(data, b.target); err != nil {
		return fmt.Errorf("send %s: %w", msg.Address, err)
	}
	return nil
}

// Broadcast sends every message for every observation. Failures are
// logged and counted; each message is attempted independently.
func (b *Broadcaster) Broadcast(observations []hand.Observation) {
	for _, obs := range observations {
		for _, msg := range Messages(obs) {
			if err := b.Send(msg); err != nil {
				b.failed.Add(1)
				b.log.Debug("osc send failed", zap.Error(err))
				continue
			}
			b.sent.Add(1)
		}
	}
}

// Stats returns the datagram counters.
func (b *Broadcaster) Stats() Stats {
	return Stats{Sent: b.sent.Load(), Failed: b.failed.Load()}
}

// Close releases the socket. Further sends fail with ErrClosed.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.conn.Close()
}
