package transport

import (
	"context"
	"fmt"
	"net"
)

// UDPOverlay is a plain-UDP Overlay implementation: destinations are
// "host:port" strings and datagrams travel unencrypted, in the clear,
// over the local network. It exists to let Adapter and everything above
// it (dht.Engine, the Email Worker) run and be tested end to end without
// a real I2P router.
//
// The overlay-network session is an out-of-scope external collaborator:
// production deployments provide their own Overlay backed by a SAM
// client and swap it in through the same interface. Grounded on the
// teacher's netx.Network boundary (internal/netx/network.go) — a small
// interface a concrete transport sits behind, dial/listen/accept in
// spirit, send/receive here.
type UDPOverlay struct {
	conn *net.UDPConn
}

// ListenUDPOverlay opens a UDP socket at bindAddr (e.g. "127.0.0.1:0")
// and returns an overlay reading from it. deliver is called for every
// received datagram; callers typically pass adapter.Deliver.
func ListenUDPOverlay(bindAddr string, deliver func(from string, data []byte) bool) (*UDPOverlay, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", bindAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", bindAddr, err)
	}
	o := &UDPOverlay{conn: conn}
	go o.readLoop(deliver)
	return o, nil
}

func (o *UDPOverlay) readLoop(deliver func(from string, data []byte) bool) {
	buf := make([]byte, 64*1024)
	for {
		n, from, err := o.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		deliver(from.String(), data)
	}
}

// LocalAddr returns the bound address, useful when bindAddr requested
// an ephemeral port.
func (o *UDPOverlay) LocalAddr() string {
	return o.conn.LocalAddr().String()
}

// Send implements Overlay.
func (o *UDPOverlay) Send(destination string, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp", destination)
	if err != nil {
		return fmt.Errorf("transport: resolve destination %s: %w", destination, err)
	}
	if _, err := o.conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("transport: write to %s: %w", destination, err)
	}
	return nil
}

// Close stops the read loop and releases the socket.
func (o *UDPOverlay) Close() error {
	return o.conn.Close()
}

// Shutdown closes the overlay when ctx is done, for callers that manage
// overlay lifetime through a context rather than an explicit Close call.
func Shutdown(ctx context.Context, o *UDPOverlay) {
	go func() {
		<-ctx.Done()
		o.Close()
	}()
}
