package engine

import (
	"encoding/binary"
)

// Reserved message type ids.
const (
	msgMeta    uint8 = 0xF0
	msgEcho    uint8 = 0xF1
	msgCommand uint8 = 0xF2
	msgEvent   uint8 = 0xF3
)

// Reserved meta ids.
const (
	metaHdcVersion uint8 = 0xF0
	metaMaxReq     uint8 = 0xF1
	metaIdlJSON    uint8 = 0xF2
)

// dispatchMessage routes one fully-decoded packet payload. Empty messages
// are legal and ignored.
func (e *Engine) dispatchMessage(payload []byte) {
	if len(payload) == 0 {
		return
	}
	msgType := payload[0]
	rest := payload[1:]

	switch {
	case msgType == msgMeta:
		e.handleMeta(rest)
	case msgType == msgEcho:
		e.reply(payload)
	case msgType == msgCommand:
		e.handleCommand(payload)
	case msgType == msgEvent:
		e.EmitLog(nil, LevelError, "unknown message type")
	case msgType < 0xF0 && e.custom != nil:
		if !e.custom(e, msgType, rest) {
			e.EmitLog(nil, LevelError, "unknown message type")
		}
	default:
		e.EmitLog(nil, LevelError, "unknown message type")
	}
}

// handleMeta implements the Meta dispatch table.
func (e *Engine) handleMeta(rest []byte) {
	if len(rest) == 0 {
		return
	}
	metaID := rest[0]
	trailing := rest[1:]
	if len(trailing) > 0 {
		// "Any trailing payload bytes cause the request to be echoed
		// verbatim, accompanied by a best-effort ERROR log event."
		e.EmitLog(nil, LevelError, "malformed meta request")
		e.reply(append([]byte{msgMeta}, rest...))
		return
	}

	switch metaID {
	case metaHdcVersion:
		out := make([]byte, 0, 2+len(e.device.VersionString))
		out = append(out, msgMeta, metaHdcVersion)
		out = append(out, e.device.VersionString...)
		e.reply(out)
	case metaMaxReq:
		out := make([]byte, 6)
		out[0] = msgMeta
		out[1] = metaMaxReq
		binary.LittleEndian.PutUint32(out[2:], e.device.MaxReqMessageSize)
		e.reply(out)
	case metaIdlJSON:
		e.streamIDL()
	default:
		e.EmitLog(nil, LevelError, "unknown meta id")
		e.reply(append([]byte{msgMeta}, rest...))
	}
}

// reply writes payload through the frame encoder/TX composer as one
// complete message (begin/feed/end).
func (e *Engine) reply(payload []byte) {
	w, err := e.composer.Begin()
	if err != nil {
		return // silent: errors raised during reply composition have nowhere to go
	}
	if err := w.Feed(payload); err != nil {
		return
	}
	_ = w.End()
}
