//go:build rp2040 || rp2350

package transport

import (
	"context"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// RP2Transport binds the engine's Transport boundary to a real RP2040/RP2350
// UART peripheral via tinygo-uartx, wrapping a *uartx.UART.
type RP2Transport struct {
	u      *uartx.UART
	notify Notifiee
}

// NewRP2Transport wraps an already-configured uartx.UART (UART0 or UART1).
func NewRP2Transport(u *uartx.UART) *RP2Transport {
	return &RP2Transport{u: u}
}

// Attach wires the notification sink (normally the engine).
func (r *RP2Transport) Attach(n Notifiee) { r.notify = n }

// StartReceive begins receiving into buf; the background pump below
// (pumpRX) waits for the UART to become readable and reports what it
// received via OnRXBurst.
func (r *RP2Transport) StartReceive(buf []byte) {
	go r.pumpRX(buf)
}

func (r *RP2Transport) pumpRX(buf []byte) {
	<-r.u.Readable()
	n, err := r.u.RecvSomeContext(context.Background(), buf)
	if err != nil || n <= 0 {
		return
	}
	if r.notify != nil {
		r.notify.OnRXBurst(n)
	}
}

// AbortReceive is a no-op on this binding: uartx.UART has no mid-receive
// cancel, and StartReceive is always re-armed by the engine, with the same
// buffer from offset zero, after each receive burst is processed.
func (r *RP2Transport) AbortReceive() {}

// Transmit writes buf[:n] and reports completion once the UART's hardware
// FIFO has drained.
func (r *RP2Transport) Transmit(buf []byte, n int) {
	go func() {
		_, _ = r.u.Write(buf[:n])
		if r.notify != nil {
			r.notify.OnTXComplete()
		}
	}()
}
