package txbuf

import (
	"bytes"
	"testing"
	"time"

	"hdc-go/hdc/frame"
)

// fakeTransmitter records each Transmit call and reports TXDone as
// controlled by the test.
type fakeTransmitter struct {
	done     bool
	sent     [][]byte
	sentOnto []int
}

func (f *fakeTransmitter) Transmit(idx int, p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	f.sent = append(f.sent, cp)
	f.sentOnto = append(f.sentOnto, idx)
}

func (f *fakeTransmitter) TXDone() bool { return f.done }

func newTestComposer(bufSize int) (*Composer, *fakeTransmitter) {
	tx := &fakeTransmitter{done: true}
	c := New(bufSize, tx)
	c.sleep = func(time.Duration) {}
	return c, tx
}

func decodeAll(t *testing.T, wire []byte) [][]byte {
	t.Helper()
	var payloads [][]byte
	for len(wire) > 0 {
		d, n, err := frame.Decode(wire, frame.MaxPacketPayload)
		if err != nil {
			t.Fatalf("frame.Decode error: %v", err)
		}
		payloads = append(payloads, append([]byte(nil), d.Payload...))
		wire = wire[n:]
	}
	return payloads
}

func TestPacketWriterSinglePacket(t *testing.T) {
	c, _ := newTestComposer(512)
	w, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.Feed([]byte("hello")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	comp := c.composing()
	wire := c.bufs[comp][:c.len[comp]]
	payloads := decodeAll(t, wire)
	if len(payloads) != 1 || string(payloads[0]) != "hello" {
		t.Fatalf("payloads = %v, want one packet \"hello\"", payloads)
	}
}

func TestPacketWriterExactMultipleOf255AppendsEmptyPacket(t *testing.T) {
	c, _ := newTestComposer(1024)
	w, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	payload := bytes.Repeat([]byte{0x42}, 255)
	if err := w.Feed(payload); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	comp := c.composing()
	wire := c.bufs[comp][:c.len[comp]]
	payloads := decodeAll(t, wire)
	if len(payloads) != 2 {
		t.Fatalf("got %d packets, want 2 (255-payload + empty terminator)", len(payloads))
	}
	if len(payloads[0]) != 255 || !bytes.Equal(payloads[0], payload) {
		t.Fatalf("first packet payload mismatch")
	}
	if len(payloads[1]) != 0 {
		t.Fatalf("second packet len = %d, want 0", len(payloads[1]))
	}
}

func TestPacketWriterSpansMultiplePackets(t *testing.T) {
	c, _ := newTestComposer(2048)
	w, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	payload := bytes.Repeat([]byte{0x07}, 600)
	if err := w.Feed(payload); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	comp := c.composing()
	wire := c.bufs[comp][:c.len[comp]]
	payloads := decodeAll(t, wire)
	// 600 = 255 + 255 + 90; the last packet (90 bytes) is not a full 255 so
	// no trailing empty packet is appended.
	if len(payloads) != 3 {
		t.Fatalf("got %d packets, want 3", len(payloads))
	}
	var got []byte
	for _, p := range payloads {
		got = append(got, p...)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(got), len(payload))
	}
	if len(payloads[0]) != 255 || len(payloads[1]) != 255 || len(payloads[2]) != 90 {
		t.Fatalf("packet sizes = %d,%d,%d, want 255,255,90", len(payloads[0]), len(payloads[1]), len(payloads[2]))
	}
}

func TestFeedWithoutBeginFails(t *testing.T) {
	c, _ := newTestComposer(64)
	w := &PacketWriter{c: c}
	if err := w.Feed([]byte("x")); err == nil {
		t.Fatal("Feed on unopened writer should error")
	}
}

func TestEndWithoutBeginFails(t *testing.T) {
	c, _ := newTestComposer(64)
	w := &PacketWriter{c: c}
	if err := w.End(); err == nil {
		t.Fatal("End on unopened writer should error")
	}
}

func TestSwapOnCapacityExhaustionNeverStrandsPartialPacket(t *testing.T) {
	// Buffer sized to hold exactly one worst-case packet (258 bytes), so
	// beginning a second packet must swap.
	c, tx := newTestComposer(maxPacketWire)
	tx.done = true

	w1, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin 1: %v", err)
	}
	if err := w1.Feed([]byte("first")); err != nil {
		t.Fatalf("Feed 1: %v", err)
	}
	if err := w1.End(); err != nil {
		t.Fatalf("End 1: %v", err)
	}
	firstComposingIdx := c.composing()
	firstLen := c.len[firstComposingIdx]

	// Starting a second packet must not fit alongside the first in the same
	// 258-byte buffer, forcing ensureRoom to swap.
	w2, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin 2: %v", err)
	}
	if err := w2.Feed([]byte("second")); err != nil {
		t.Fatalf("Feed 2: %v", err)
	}
	if err := w2.End(); err != nil {
		t.Fatalf("End 2: %v", err)
	}

	if len(tx.sent) != 1 {
		t.Fatalf("Transmit called %d times, want 1 (swap before second Begin)", len(tx.sent))
	}
	if !bytes.Equal(tx.sent[0], c.bufs[tx.sentOnto[0]][:firstLen]) {
		t.Fatalf("transmitted buffer content mismatch")
	}
	payloads := decodeAll(t, tx.sent[0])
	if len(payloads) != 1 || string(payloads[0]) != "first" {
		t.Fatalf("transmitted packets = %v, want [\"first\"]", payloads)
	}

	comp := c.composing()
	secondWire := c.bufs[comp][:c.len[comp]]
	payloads = decodeAll(t, secondWire)
	if len(payloads) != 1 || string(payloads[0]) != "second" {
		t.Fatalf("composing packets = %v, want [\"second\"]", payloads)
	}
}

func TestFlushTimeoutWhenTXNeverCompletes(t *testing.T) {
	c, tx := newTestComposer(64)
	tx.done = false
	c.flushWait = 2 * time.Millisecond
	w, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = w.Feed([]byte("x"))
	_ = w.End()
	// force active buffer to look busy so Flush must wait and time out
	c.active = c.composing()
	c.active = 1 - c.active
	if err := c.Flush(); err == nil {
		t.Fatal("Flush should time out when TXDone never becomes true")
	}
}

func TestOversizedBufferRejectsMessage(t *testing.T) {
	c, _ := newTestComposer(maxPacketWire) // room for exactly one worst-case packet
	w, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w.Feed(bytes.Repeat([]byte{1}, 255)); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	// A second Begin before End cannot be satisfied without swapping; since
	// no swap happened yet and TX is done, this should succeed via swap.
	// Force TX never-done to exercise the oversized/timeout path instead.
	c2, tx2 := newTestComposer(maxPacketWire)
	tx2.done = false
	c2.flushWait = time.Millisecond
	w2, err := c2.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := w2.Feed([]byte("x")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := w2.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if _, err := c2.Begin(); err == nil {
		t.Fatal("second Begin should fail: swap required but TX never completes")
	}
}
