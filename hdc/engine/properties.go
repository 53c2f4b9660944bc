package engine

import (
	"hdc-go/hdc/corefeature"
	"hdc-go/hdc/dtype"
	"hdc-go/hdc/model"
)

// handleGetPropertyValue implements the mandatory GetPropertyValue command:
// exact request length 4 (one property_id byte after the 3-byte header).
func (e *Engine) handleGetPropertyValue(f *model.Feature, args []byte) {
	if len(args) != 1 {
		e.Reply(f.ID, corefeature.CmdGetPropertyValue, corefeature.ExcInvalidArgs, nil)
		return
	}
	propID := args[0]
	val, exc := e.getPropertyValue(f, propID)
	e.Reply(f.ID, corefeature.CmdGetPropertyValue, exc, val)
}

// getPropertyValue serializes property propID's current value, special-
// casing the two mandatory properties the engine itself owns.
func (e *Engine) getPropertyValue(f *model.Feature, propID uint8) (val []byte, exc uint8) {
	switch propID {
	case corefeature.PropLogEventThreshold:
		return []byte{f.LogEventThreshold}, 0
	case corefeature.PropFeatureState:
		return []byte{f.FeatureState}, 0
	}
	p, ok := f.Property(propID)
	if !ok {
		return nil, corefeature.ExcUnknownProperty
	}
	return serializeProperty(f, p), 0
}

// serializeProperty implements the dtype-based serialization rules:
// integers/floats as native little-endian, BOOL as one byte, UTF8 up to
// the stored length (no NUL), BLOB as the raw stored bytes, DTYPE as one
// byte. A custom Getter, when present, owns serialization entirely.
func serializeProperty(f *model.Feature, p *model.Property) []byte {
	if p.Backing.Getter != nil {
		return p.Backing.Getter(f)
	}
	s := p.Backing.Storage
	if p.Dtype.Variable() {
		return append([]byte(nil), s.Buf[:s.N]...)
	}
	return append([]byte(nil), s.Buf...)
}

// handleSetPropertyValue implements the mandatory SetPropertyValue command.
func (e *Engine) handleSetPropertyValue(f *model.Feature, args []byte) {
	if len(args) < 1 {
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcInvalidArgs, nil)
		return
	}
	propID := args[0]
	newVal := args[1:]

	switch propID {
	case corefeature.PropLogEventThreshold:
		if len(newVal) != 1 {
			e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcInvalidArgs, nil)
			return
		}
		f.LogEventThreshold = corefeature.ClampLogThreshold(newVal[0])
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, 0, []byte{f.LogEventThreshold})
		return
	case corefeature.PropFeatureState:
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcReadOnlyProperty, nil)
		return
	}

	p, ok := f.Property(propID)
	if !ok {
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcUnknownProperty, nil)
		return
	}
	if p.ReadOnly {
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcReadOnlyProperty, nil)
		return
	}
	if !validSetSize(p, newVal) {
		e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcInvalidArgs, nil)
		return
	}

	var actual []byte
	if p.Backing.Setter != nil {
		got, err := p.Backing.Setter(f, newVal)
		if err != nil {
			e.Reply(f.ID, corefeature.CmdSetPropertyValue, corefeature.ExcInvalidArgs, nil)
			return
		}
		actual = got
	} else {
		storeDirect(p, newVal)
		actual = serializeProperty(f, p)
	}
	e.Reply(f.ID, corefeature.CmdSetPropertyValue, 0, actual)
}

// validSetSize implements SetPropertyValue's size validation: fixed-width
// dtypes require an exact-width payload; variable-width dtypes
// require a payload strictly smaller than value_size (reserving one byte
// for a NUL terminator when UTF8).
func validSetSize(p *model.Property, newVal []byte) bool {
	if p.Dtype.Variable() {
		return len(newVal) < p.ValueSize
	}
	return len(newVal) == p.Dtype.FixedWidth()
}

// storeDirect writes newVal into p's direct-storage slot, NUL-terminating
// when the dtype is UTF8 and room remains.
func storeDirect(p *model.Property, newVal []byte) {
	s := p.Backing.Storage
	if p.Dtype.Variable() {
		n := copy(s.Buf, newVal)
		s.N = n
		if p.Dtype == dtype.UTF8 && n < len(s.Buf) {
			s.Buf[n] = 0
		}
		return
	}
	copy(s.Buf, newVal)
}
