package engine

import (
	"hdc-go/hdc/corefeature"
	"hdc-go/hdc/model"
	"hdc-go/hdc/txbuf"
	"hdc-go/x/conv"
)

// idlWriter streams JSON fragments into a txbuf.PacketWriter, escaping
// string content in full as defense in depth alongside model.Validate's
// rejection of unescapable descriptor text at Init. The first Feed error
// latches into err and
// every subsequent write becomes a no-op, so nothing is written after a
// mid-document TX failure (e.g. a flush timeout); packets finalized before
// the failure stay composed, and the message is never ended.
type idlWriter struct {
	w   *txbuf.PacketWriter
	err error
	buf [20]byte
}

func (iw *idlWriter) raw(s string) {
	if iw.err != nil {
		return
	}
	iw.err = iw.w.Feed([]byte(s))
}

func (iw *idlWriter) str(s string) {
	iw.raw(`"`)
	iw.escaped(s)
	iw.raw(`"`)
}

func (iw *idlWriter) escaped(s string) {
	if iw.err != nil {
		return
	}
	const hexd = "0123456789abcdef"
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		var esc string
		switch c {
		case '"':
			esc = `\"`
		case '\\':
			esc = `\\`
		case '\n':
			esc = `\n`
		case '\r':
			esc = `\r`
		case '\t':
			esc = `\t`
		default:
			if c < 0x20 {
				esc = "\\u00" + string(hexd[c>>4]) + string(hexd[c&0xF])
			} else {
				continue
			}
		}
		if i > start {
			iw.raw(s[start:i])
		}
		iw.raw(esc)
		start = i + 1
	}
	if start < len(s) {
		iw.raw(s[start:])
	}
}

func (iw *idlWriter) uint(n uint64) { iw.raw(string(conv.Utoa(iw.buf[:], n))) }

func (iw *idlWriter) boolean(b bool) {
	if b {
		iw.raw("true")
	} else {
		iw.raw("false")
	}
}

// array writes n comma-separated elements via emit(i), wrapped in [ ].
func (iw *idlWriter) array(n int, emit func(i int)) {
	iw.raw("[")
	for i := 0; i < n; i++ {
		if i > 0 {
			iw.raw(",")
		}
		emit(i)
	}
	iw.raw("]")
}

func (iw *idlWriter) optionalDoc(doc string) {
	if doc == "" {
		return
	}
	iw.raw(`,"doc":`)
	iw.str(doc)
}

func (iw *idlWriter) argument(a model.Argument) {
	iw.raw(`{"dtype":`)
	iw.str(a.Dtype.Name())
	if a.Name != "" {
		iw.raw(`,"name":`)
		iw.str(a.Name)
	}
	iw.optionalDoc(a.Doc)
	iw.raw("}")
}

func (iw *idlWriter) exception(ex model.Exception) {
	iw.raw(`{"id":`)
	iw.uint(uint64(ex.ID))
	iw.raw(`,"name":`)
	iw.str(ex.Name)
	iw.optionalDoc(ex.Doc)
	iw.raw("}")
}

func (iw *idlWriter) state(s model.State) {
	iw.raw(`{"id":`)
	iw.uint(uint64(s.ID))
	iw.raw(`,"name":`)
	iw.str(s.Name)
	iw.optionalDoc(s.Doc)
	iw.raw("}")
}

func (iw *idlWriter) command(c model.Command) {
	iw.raw(`{"id":`)
	iw.uint(uint64(c.ID))
	iw.raw(`,"name":`)
	iw.str(c.Name)
	iw.optionalDoc(c.Doc)
	iw.raw(`,"args":`)
	iw.array(len(c.Args), func(i int) { iw.argument(c.Args[i]) })
	iw.raw(`,"returns":`)
	iw.array(len(c.Returns), func(i int) { iw.argument(c.Returns[i]) })
	iw.raw(`,"raises":`)
	iw.array(len(c.Raises), func(i int) { iw.exception(c.Raises[i]) })
	iw.raw("}")
}

func (iw *idlWriter) event(e model.Event) {
	iw.raw(`{"id":`)
	iw.uint(uint64(e.ID))
	iw.raw(`,"name":`)
	iw.str(e.Name)
	iw.optionalDoc(e.Doc)
	iw.raw(`,"args":`)
	iw.array(len(e.Args), func(i int) { iw.argument(e.Args[i]) })
	iw.raw("}")
}

func (iw *idlWriter) property(p model.Property) {
	iw.raw(`{"id":`)
	iw.uint(uint64(p.ID))
	iw.raw(`,"name":`)
	iw.str(p.Name)
	iw.raw(`,"dtype":`)
	iw.str(p.Dtype.Name())
	if p.Dtype.Variable() && p.ValueSize > 0 {
		iw.raw(`,"size":`)
		iw.uint(uint64(p.ValueSize))
	}
	iw.raw(`,"ro":`)
	iw.boolean(p.ReadOnly)
	iw.optionalDoc(p.Doc)
	iw.raw("}")
}

func (iw *idlWriter) feature(f *model.Feature) {
	commands := append(append([]model.Command{}, modelCommands(f)...), corefeature.MandatoryCommands()...)
	properties := append(append([]model.Property{}, modelProperties(f)...), corefeature.MandatoryProperties()...)
	events := append(append([]model.Event{}, modelEvents(f)...), corefeature.MandatoryEvents()...)

	iw.raw(`{"id":`)
	iw.uint(uint64(f.ID))
	iw.raw(`,"name":`)
	iw.str(f.Name)
	iw.raw(`,"cls":`)
	iw.str(f.ClassName)
	iw.raw(`,"version":`)
	iw.str(f.ClassVersion)
	iw.optionalDoc(f.Doc)

	iw.raw(`,"states":`)
	iw.array(len(f.States), func(i int) { iw.state(f.States[i]) })

	iw.raw(`,"commands":`)
	iw.array(len(commands), func(i int) { iw.command(commands[i]) })

	iw.raw(`,"events":`)
	iw.array(len(events), func(i int) { iw.event(events[i]) })

	iw.raw(`,"properties":`)
	iw.array(len(properties), func(i int) { iw.property(properties[i]) })

	iw.raw("}")
}

func modelCommands(f *model.Feature) []model.Command {
	out := make([]model.Command, len(f.Commands))
	for i, c := range f.Commands {
		out[i] = *c
	}
	return out
}

func modelProperties(f *model.Feature) []model.Property {
	out := make([]model.Property, len(f.Properties))
	for i, p := range f.Properties {
		out[i] = *p
	}
	return out
}

func modelEvents(f *model.Feature) []model.Event { return f.Events }

// streamIDL writes the IDL-JSON document with prefix [0xF0][0xF2],
// streaming fragments into the TX composer one field at a time so the
// document is never materialized in RAM.
func (e *Engine) streamIDL() {
	w, err := e.composer.Begin()
	if err != nil {
		return
	}
	if err := w.Feed([]byte{msgMeta, metaIdlJSON}); err != nil {
		return
	}
	iw := &idlWriter{w: w}

	iw.raw(`{"version":`)
	iw.str(e.device.VersionString)
	iw.raw(`,"max_req":`)
	iw.uint(uint64(e.device.MaxReqMessageSize))
	iw.raw(`,"features":`)
	iw.array(len(e.device.Features), func(i int) { iw.feature(e.device.Features[i]) })
	iw.raw("}")

	if iw.err != nil {
		return
	}
	_ = w.End()
}
