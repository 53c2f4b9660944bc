// Package frame implements the HDC wire framing: a packet is
// [PS][payload...][CHK][TERM], where PS is a one-byte payload length, CHK is
// the additive 8-bit two's-complement checksum, and TERM is the literal
// terminator byte 0x1E. The decoder is a pure, stateless scan over whatever
// bytes the transport adapter currently holds, in the same resynchronizing,
// length-prefixed style as other start/length/checksum wire parsers,
// generalized to HDC's specific checksum and terminator rules.
package frame

import "hdc-go/hdcerr"

// Terminator is the literal trailing byte of every packet.
const Terminator = 0x1E

// Overhead is the per-packet framing cost: 1 length byte + 1 checksum byte +
// 1 terminator byte.
const Overhead = 3

// MaxReqMessageSize is the hard upper bound: a single packet payload can
// never exceed 254 bytes for an accepted host request.
const MaxReqMessageSize = 254

// MaxPacketPayload is the largest payload a single packet may carry (a
// payload of exactly 255 means "more packets follow").
const MaxPacketPayload = 255

// Decoded is one successfully parsed packet.
type Decoded struct {
	Payload []byte // points into the input slice; caller must copy if retained
	More    bool   // true if PS == 255 ("more follows")
	// Consumed is the number of input bytes occupied by this packet
	// (len(Payload) + Overhead).
	Consumed int
}

// checksum computes the additive 8-bit two's-complement checksum over ps and
// payload such that (ps + sum(payload) + checksum) mod 256 == 0.
func checksum(ps byte, payload []byte) byte {
	var sum byte = ps
	for _, b := range payload {
		sum += b
	}
	return byte(-int8(sum))
}

// Decode scans buf for exactly one packet starting at offset 0.
//
// Results:
//   - err==nil: a packet was parsed; n is bytes consumed (>0).
//   - err==hdcerr.Incomplete (n==0): not enough bytes yet; caller should
//     wait for more input without advancing.
//   - err is Oversized/BadChecksum/MissingTerm (n==1): a reading-frame
//     error; caller must advance by exactly 1 byte and retry.
func Decode(buf []byte, maxReq int) (d Decoded, n int, err error) {
	if len(buf) == 0 {
		return Decoded{}, 0, hdcerr.Incomplete
	}
	ps := int(buf[0])
	if ps > maxReq {
		return Decoded{}, 1, hdcerr.Oversized
	}
	total := ps + Overhead
	if total > len(buf) {
		return Decoded{}, 0, hdcerr.Incomplete
	}
	payload := buf[1 : 1+ps]
	chk := buf[1+ps]
	term := buf[1+ps+1]
	if term != Terminator {
		return Decoded{}, 1, hdcerr.MissingTerm
	}
	want := checksum(buf[0], payload)
	if chk != want {
		return Decoded{}, 1, hdcerr.BadChecksum
	}
	return Decoded{Payload: payload, More: ps == MaxPacketPayload, Consumed: total}, total, nil
}

// EncodedLen returns the number of wire bytes needed to carry a single packet
// whose payload is payloadLen bytes.
func EncodedLen(payloadLen int) int { return payloadLen + Overhead }

// Encode writes one packet (PS, payload, checksum, terminator) into dst,
// which must be at least EncodedLen(len(payload)) bytes, and returns the
// number of bytes written. payload must be <= MaxPacketPayload bytes.
func Encode(dst []byte, payload []byte) int {
	ps := byte(len(payload))
	dst[0] = ps
	n := copy(dst[1:], payload)
	chk := checksum(ps, payload[:n])
	dst[1+n] = chk
	dst[1+n+1] = Terminator
	return n + Overhead
}
