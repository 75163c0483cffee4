package udp

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// Broadcaster sends datagrams to one destination, typically a broadcast
// address such as 192.168.10.255:4100.
type Broadcaster struct {
	dest string
	conn udpConn
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve %s: %w", dest, err)
	}
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %s: %w", dest, err)
	}
	return &Broadcaster{dest: dest, conn: conn}, nil
}

func (b *Broadcaster) String() string { return b.dest }

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// Run sends payload() every interval until ctx is done. A nil or empty
// payload skips that tick. Send errors are logged once per streak so an
// unplugged network does not flood the log.
func (b *Broadcaster) Run(ctx context.Context, interval time.Duration, payload func() ([]byte, error)) error {
	if interval <= 0 {
		return fmt.Errorf("udp: interval must be > 0")
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		p, err := payload()
		if err == nil {
			err = b.Send(p)
		}
		if err != nil {
			if !failing {
				log.Printf("udp send to %s failed: %v", b.dest, err)
			}
			failing = true
			continue
		}
		if failing {
			log.Printf("udp send to %s recovered", b.dest)
		}
		failing = false
	}
}
