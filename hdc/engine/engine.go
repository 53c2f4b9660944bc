// Package engine implements the HDC engine state machine: message
// routing, command dispatch, the property engine, event emission, and the
// IDL-JSON generator, driven by a single cooperative Work() entry point
// called from the application's super-loop.
//
// There is no package-level engine state: Engine is an explicit value the
// application constructs, Inits once, and calls Work() on repeatedly. The
// two asynchronous notification sources (RX-idle, TX-complete) are
// modeled as atomic flags set by OnRXBurst/OnTXComplete — callbacks the
// transport invokes from whatever context it likes (a real ISR on MCU
// builds, a goroutine in the host simulation) — and consumed
// synchronously, once per Work() call: ISRs do nothing but set volatile
// boolean flags.
package engine

import (
	"sync/atomic"

	"hdc-go/hdc/corefeature"
	"hdc-go/hdc/frame"
	"hdc-go/hdc/model"
	"hdc-go/hdc/transport"
	"hdc-go/hdc/txbuf"
	"hdc-go/hdcerr"
	"hdc-go/x/fmtx"
)

// VersionString is the literal HDC protocol version.
const VersionString = "HDC 1.0.0-alpha.12"

// CustomRouter handles application-defined MessageTypeIDs below 0xF0. It
// returns true if it handled msgType.
type CustomRouter func(e *Engine, msgType uint8, payload []byte) bool

// Config bounds the engine's build-time configuration.
type Config struct {
	VersionString     string
	MaxReqMessageSize uint32 // 5..254
	TXBufferSize      int    // >= 258 recommended
	CustomRouter      CustomRouter
}

// Engine is the explicit handle the application owns. All fields other
// than the atomic RX/TX notification flags are only ever touched from
// Work() and the synchronous call chain it drives, per the single-producer
// discipline: only one call chain ever touches the engine at a time.
type Engine struct {
	device   *model.Device
	composer *txbuf.Composer
	tp       transport.Transport
	custom   CustomRouter

	rxBuf []byte

	rxReady atomic.Bool
	rxN     atomic.Int32
	txDone  atomic.Bool

	frameErrors int
}

// New constructs an Engine for device over tp, using cfg for build-time
// bounds. Call Init before the first Work().
func New(device *model.Device, tp transport.Transport, cfg Config) *Engine {
	if cfg.VersionString == "" {
		cfg.VersionString = VersionString
	}
	device.VersionString = cfg.VersionString
	device.MaxReqMessageSize = cfg.MaxReqMessageSize

	e := &Engine{
		device: device,
		tp:     tp,
		custom: cfg.CustomRouter,
		rxBuf:  make([]byte, int(cfg.MaxReqMessageSize)+frame.Overhead),
	}
	e.composer = txbuf.New(cfg.TXBufferSize, e)
	e.txDone.Store(true)
	return e
}

// Init validates the descriptor tree so integrity errors surface at init
// time rather than at runtime, initializes every feature's mutable slots,
// attaches the engine to the transport as its Notifiee, and arms the
// first receive.
func (e *Engine) Init() error {
	if err := model.Validate(e.device); err != nil {
		return err
	}
	for _, f := range e.device.Features {
		if f.LogEventThreshold == 0 {
			f.LogEventThreshold = corefeature.LogEventThresholdDefault
		}
	}
	if attacher, ok := e.tp.(interface{ Attach(transport.Notifiee) }); ok {
		attacher.Attach(e)
	}
	e.tp.StartReceive(e.rxBuf)
	return nil
}

// Device exposes the descriptor tree (read-only use: demo features read
// their own Feature via the pointer they were constructed with).
func (e *Engine) Device() *model.Device { return e.device }

// OnRXBurst is invoked by the transport when a receive burst has ended
// (the "idle" boundary). It only records state for Work() to consume —
// the ISR-side half of the RX-idle notification.
func (e *Engine) OnRXBurst(n int) {
	e.rxN.Store(int32(n))
	e.rxReady.Store(true)
}

// OnTXComplete is invoked by the transport when the transmission started by
// Transmit has finished — the ISR-side half of the TX-complete
// notification.
func (e *Engine) OnTXComplete() { e.txDone.Store(true) }

// Transmit implements txbuf.Transmitter: hands a composed buffer to the
// transport and marks the TX-complete flag pending until OnTXComplete
// fires.
func (e *Engine) Transmit(idx int, p []byte) {
	e.txDone.Store(false)
	e.tp.Transmit(p, len(p))
}

// TXDone implements txbuf.Transmitter.
func (e *Engine) TXDone() bool { return e.txDone.Load() }

// Work is the engine's single cooperative entry point, called repeatedly
// from the application's super-loop: if a receive burst has completed,
// parse and dispatch it, flush any composed reply/events, then re-arm
// reception.
func (e *Engine) Work() {
	if !e.rxReady.Load() {
		return
	}
	n := int(e.rxN.Load())
	e.rxReady.Store(false)

	if n > 0 {
		e.handleRX(e.rxBuf[:n])
	}
	_ = e.composer.Flush()

	e.tp.AbortReceive()
	e.tp.StartReceive(e.rxBuf)
}

// handleRX implements the resynchronizing decode loop: scan for exactly
// one packet, dispatch its payload as one message, and count
// everything else (frame errors, trailing bytes) toward a best-effort
// WARNING log emitted once processing is done.
func (e *Engine) handleRX(buf []byte) {
	off := 0
	for off < len(buf) {
		d, n, err := frame.Decode(buf[off:], int(e.device.MaxReqMessageSize))
		if err == hdcerr.Incomplete {
			e.frameErrors += len(buf) - off
			break
		}
		if err != nil {
			e.frameErrors++
			off++
			continue
		}
		off += n
		e.dispatchMessage(d.Payload)
		if off < len(buf) {
			// Hosts must not send a second request before a reply; any
			// trailing bytes are themselves reading-frame errors.
			e.frameErrors += len(buf) - off
		}
		break
	}
	if e.frameErrors > 0 {
		n := e.frameErrors
		e.frameErrors = 0
		e.EmitLog(nil, LevelWarning, fmtx.Sprintf("frame errors: %d", n))
	}
}
