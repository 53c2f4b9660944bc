// Package transport defines the byte-transport boundary the engine
// consumes and provides a host-simulated implementation for tests and
// cmd/hdc-hostsim. The real RP2040/RP2350 binding lives in
// transport_rp2.go behind a build tag.
//
// The interface generalizes an existing byte-transport abstraction used
// elsewhere in this codebase for UART links, with an explicit
// start_receive/abort_receive/transmit + on_rx_burst/on_tx_complete shape
// rather than a Read/Write/Readable shape, since the engine is
// cooperative-single-threaded and needs the ISR-sets-a-flag discipline,
// not a blocking Read.
package transport

// Transport is the engine's view of the underlying UART (or equivalent)
// link. Callers other than hdc/engine should not implement this directly;
// it models exactly the three operations and two notifications the
// engine needs.
type Transport interface {
	// StartReceive begins receiving into buf until an idle burst boundary
	// is detected. It must not block.
	StartReceive(buf []byte)
	// AbortReceive is called once a full packet has been parsed out of the
	// current RX buffer, or a frame error occurred, so the transport can
	// restart receiving from a clean buffer.
	AbortReceive()
	// Transmit starts a non-blocking transmission of buf[:n].
	Transmit(buf []byte, n int)
}

// Notifiee is implemented by the engine and driven by the transport's ISR
// (or, on host, its simulated idle-burst timer).
type Notifiee interface {
	// OnRXBurst reports that n bytes have been placed in the buffer passed
	// to StartReceive and no further bytes arrived within the idle window.
	OnRXBurst(n int)
	// OnTXComplete reports that the transmission started by Transmit has
	// finished.
	OnTXComplete()
}
