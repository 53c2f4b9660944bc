//go:build !rp2040 && !rp2350

package transport

import (
	"sync"
	"time"

	"hdc-go/x/shmring"
)

// IdleGap is how long the host-simulated transport waits for a quiet gap in
// incoming bytes before declaring the current receive burst finished,
// grounded on uartio.ReaderCfg's IdleFlush (clamped 0..2s there; this
// transport runs at the lower end of that range since no host-sim test
// wants to wait seconds for a burst boundary).
const IdleGap = 2 * time.Millisecond

// HostTransport simulates a UART link for tests and cmd/hdc-hostsim: writes
// made via Inject (standing in for "bytes arrived over the wire") land in an
// SPSC ring, and a burst-detector goroutine reports OnRXBurst after IdleGap
// of silence, mirroring uartio.Worker's idle-flush timer. Transmit results
// are captured for the test/demo harness to inspect via Sent().
type HostTransport struct {
	mu     sync.Mutex
	ring   *shmring.Ring
	notify Notifiee

	recvBuf      []byte
	recvN        int
	receiving    bool
	abortVersion int

	txDone chan struct{}
	sent   [][]byte
}

// NewHostTransport returns a HostTransport ready to have its Attach called
// by the engine during Init.
func NewHostTransport() *HostTransport {
	return &HostTransport{
		ring:   shmring.New(4096),
		txDone: make(chan struct{}, 1),
	}
}

// Attach wires the notification sink (normally the engine). Must be called
// before Inject or Transmit.
func (h *HostTransport) Attach(n Notifiee) { h.notify = n }

// Inject simulates bytes arriving over the wire (host-side test/demo driver
// standing in for a real UART peripheral).
func (h *HostTransport) Inject(p []byte) {
	h.ring.TryWriteFrom(p)
	h.mu.Lock()
	receiving := h.receiving
	h.mu.Unlock()
	if receiving {
		go h.runIdleDetector()
	}
}

func (h *HostTransport) StartReceive(buf []byte) {
	h.mu.Lock()
	h.recvBuf = buf
	h.recvN = 0
	h.receiving = true
	h.abortVersion++
	version := h.abortVersion
	h.mu.Unlock()
	go h.drain(version)
}

// drain copies whatever is already queued in the ring into recvBuf, then
// starts the idle detector to decide when the burst is over.
func (h *HostTransport) drain(version int) {
	h.mu.Lock()
	if h.abortVersion != version || !h.receiving {
		h.mu.Unlock()
		return
	}
	n := h.ring.TryReadInto(h.recvBuf[h.recvN:])
	h.recvN += n
	h.mu.Unlock()
	h.runIdleDetector()
}

func (h *HostTransport) runIdleDetector() {
	time.Sleep(IdleGap)
	h.mu.Lock()
	if !h.receiving {
		h.mu.Unlock()
		return
	}
	version := h.abortVersion
	n := h.ring.TryReadInto(h.recvBuf[h.recvN:])
	h.recvN += n
	if h.ring.Available() > 0 {
		// more bytes queued since we last drained; keep waiting for a gap
		h.mu.Unlock()
		go h.drain(version)
		return
	}
	if h.recvN == 0 {
		h.mu.Unlock()
		return
	}
	n = h.recvN
	notify := h.notify
	h.receiving = false
	h.mu.Unlock()
	if notify != nil {
		notify.OnRXBurst(n)
	}
}

func (h *HostTransport) AbortReceive() {
	h.mu.Lock()
	h.receiving = false
	h.abortVersion++
	h.mu.Unlock()
}

// Transmit records the outgoing bytes and asynchronously reports completion,
// simulating a non-blocking DMA transmission.
func (h *HostTransport) Transmit(buf []byte, n int) {
	cp := make([]byte, n)
	copy(cp, buf[:n])
	h.mu.Lock()
	h.sent = append(h.sent, cp)
	notify := h.notify
	h.mu.Unlock()
	go func() {
		select {
		case h.txDone <- struct{}{}:
		default:
		}
		if notify != nil {
			notify.OnTXComplete()
		}
	}()
}

// Sent returns every buffer handed to Transmit so far, in order.
func (h *HostTransport) Sent() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.sent))
	copy(out, h.sent)
	return out
}
