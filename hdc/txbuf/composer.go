// Package txbuf implements the double-buffered TX composer: two
// equal-sized static buffers, one "active" (being transmitted by DMA/the
// transport) and one "composing" (being written into by the dispatch loop).
// The PacketWriter type makes packetization state an explicit value rather
// than hidden package-level statics, turning begin/end misuse into a
// returned hdcerr.Code instead of a dead assert.
//
// The buffer-swap discipline is grounded on the single-producer/single-
// consumer handoff in x/shmring, adapted: instead of one wrapping ring, two
// fixed halves are used so that a packet is never split across a DMA
// transfer boundary — no partially written packet is ever transmitted.
package txbuf

import (
	"time"

	"hdc-go/hdc/frame"
	"hdc-go/hdcerr"
)

// Transmitter is the minimal contract the composer needs from the transport
// adapter: start transmitting p (the composed bytes of buffer idx), and report
// whether the previously started transmission has completed.
type Transmitter interface {
	Transmit(idx int, p []byte)
	TXDone() bool
}

// maxPacketWire is the largest a single packet can be on the wire: a 255-byte
// "more follows" payload plus the 3-byte PS/checksum/terminator overhead.
const maxPacketWire = frame.MaxPacketPayload + frame.Overhead

// Composer owns the pair of TX buffers and the active/composing split.
type Composer struct {
	bufs      [2][]byte
	len       [2]int // bytes composed (not yet necessarily transmitted) per buffer
	active    int    // index currently being transmitted (or idle)
	tx        Transmitter
	flushWait time.Duration
	sleep     func(time.Duration)
}

// New allocates a Composer with two buffers of size bufSize (>= 258
// recommended to carry one full 255-byte packet plus overhead; smaller
// buffers disable multi-packet replies).
func New(bufSize int, tx Transmitter) *Composer {
	return &Composer{
		bufs:      [2][]byte{make([]byte, bufSize), make([]byte, bufSize)},
		tx:        tx,
		flushWait: 100 * time.Millisecond,
		sleep:     time.Sleep,
	}
}

func (c *Composer) composing() int { return 1 - c.active }

// Cap returns the size of each TX buffer.
func (c *Composer) Cap() int { return len(c.bufs[0]) }

// ensureRoom guarantees the composing buffer has at least n free bytes,
// swapping buffers (kicking off transmission of whatever was already
// composed) at most once if it doesn't.
func (c *Composer) ensureRoom(n int) error {
	comp := c.composing()
	if len(c.bufs[comp])-c.len[comp] >= n {
		return nil
	}
	if err := c.swap(); err != nil {
		return err
	}
	comp = c.composing()
	if len(c.bufs[comp])-c.len[comp] < n {
		return hdcerr.Oversized
	}
	return nil
}

// swap waits for the current DMA transfer to finish, clears the
// just-transmitted buffer, flips active/composing, and starts transmitting
// whatever had been composed (nothing is transmitted if that is empty).
func (c *Composer) swap() error {
	deadline := time.Now().Add(c.flushWait)
	for !c.tx.TXDone() {
		if time.Now().After(deadline) {
			return hdcerr.FlushTimeout
		}
		c.sleep(time.Millisecond)
	}
	c.len[c.active] = 0
	c.active = c.composing() // old composing buffer becomes active
	if c.len[c.active] > 0 {
		c.tx.Transmit(c.active, c.bufs[c.active][:c.len[c.active]])
	}
	return nil
}

// Flush forces any composed-but-not-yet-transmitted bytes to begin
// transmission and busy-waits (bounded by flushWait, ~100ms) for completion.
func (c *Composer) Flush() error {
	if err := c.swap(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.flushWait)
	for !c.tx.TXDone() {
		if time.Now().After(deadline) {
			return hdcerr.FlushTimeout
		}
		c.sleep(time.Millisecond)
	}
	return nil
}

// ---------------------------------------------------------------------------
// PacketWriter — explicit per-message packetization state (begin/feed/end).
// ---------------------------------------------------------------------------

// PacketWriter streams one logical message into a Composer, splitting it into
// packets at the 255-byte payload boundary.
type PacketWriter struct {
	c          *Composer
	psOffset   int // offset within the composing buffer of the current packet's PS byte
	n          int // payload bytes written into the current packet so far
	open       bool
	lastWas255 bool
}

// Begin reserves room for a worst-case packet — whenever the active TX
// buffer cannot hold the next 255 + 3 bytes, the composer first swaps
// buffers — and opens a new packet.
func (c *Composer) Begin() (*PacketWriter, error) {
	w := &PacketWriter{c: c}
	if err := w.startNextPacket(); err != nil {
		return nil, err
	}
	return w, nil
}

// Feed copies bytes into the current packet, finalizing and rotating to a
// new packet every 255 payload bytes.
func (w *PacketWriter) Feed(p []byte) error {
	if !w.open {
		return hdcerr.NotComposing
	}
	for len(p) > 0 {
		room := frame.MaxPacketPayload - w.n
		chunk := p
		if len(chunk) > room {
			chunk = chunk[:room]
		}
		comp := w.c.composing()
		dst := w.c.bufs[comp][w.c.len[comp]:]
		if len(dst) < len(chunk)+2 {
			return hdcerr.Oversized // buffer smaller than one full packet: message does not fit
		}
		copy(dst, chunk)
		w.c.len[comp] += len(chunk)
		w.n += len(chunk)
		p = p[len(chunk):]
		if w.n == frame.MaxPacketPayload {
			if err := w.finalize(); err != nil {
				return err
			}
			if err := w.startNextPacket(); err != nil {
				return err
			}
		}
	}
	return nil
}

// startNextPacket reserves a full worst-case packet's worth of room, or the
// whole buffer when it is smaller than that (so that no later write within
// this packet can ever force a mid-packet swap), and reserves the PS byte
// slot.
func (w *PacketWriter) startNextPacket() error {
	need := maxPacketWire
	if capacity := w.c.Cap(); capacity < need {
		need = capacity
	}
	if err := w.c.ensureRoom(need); err != nil {
		return err
	}
	comp := w.c.composing()
	w.psOffset = w.c.len[comp]
	w.c.len[comp]++ // reserve the PS byte slot; its value is written at finalize
	w.n = 0
	w.open = true
	return nil
}

// finalize writes PS, checksum, and terminator for the current packet, whose
// payload bytes are already in place and whose room was pre-reserved by
// startNextPacket.
func (w *PacketWriter) finalize() error {
	comp := w.c.composing()
	buf := w.c.bufs[comp]
	payload := buf[w.psOffset+1 : w.c.len[comp]]
	ps := byte(w.n)
	buf[w.psOffset] = ps
	var sum byte = ps
	for _, b := range payload {
		sum += b
	}
	chk := byte(-int8(sum))
	buf[w.c.len[comp]] = chk
	buf[w.c.len[comp]+1] = frame.Terminator
	w.c.len[comp] += 2
	w.lastWas255 = w.n == frame.MaxPacketPayload
	w.open = false
	return nil
}

// End finalizes the current packet (whatever size it has) and, if the last
// finalized packet had exactly 255 payload bytes, appends an empty (PS=0)
// terminating packet — a message whose length is an exact multiple of 255
// needs an explicit empty packet to signal "no more follow".
func (w *PacketWriter) End() error {
	if !w.open {
		return hdcerr.NotComposing
	}
	if err := w.finalize(); err != nil {
		return err
	}
	if w.lastWas255 {
		if err := w.startNextPacket(); err != nil {
			return err
		}
		if err := w.finalize(); err != nil {
			return err
		}
	}
	return nil
}
