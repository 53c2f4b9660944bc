// Package model holds the descriptor object model: Device, Feature,
// Command, Property, Event, State, Exception and their Argument/Return
// children. Descriptors are immutable once Validate succeeds, except the
// two mutable per-feature slots FeatureState and LogEventThreshold.
//
// Property does not hold a raw getter-function-pointer-or-data-pointer
// union; it holds an explicit PropertyBacking that is either Computed
// (Getter/Setter) or Storage (a *StorageSlot), mirroring the generic
// payload-assertion style used throughout this codebase's hardware
// abstraction layer for "exactly one of several representations" values.
package model

import "hdc-go/hdc/dtype"

// Device is the root of the descriptor tree: exactly one per engine.
type Device struct {
	VersionString     string
	MaxReqMessageSize uint32
	Features          []*Feature
}

// Feature looks up a registered feature by id.
func (d *Device) Feature(id uint8) (*Feature, bool) {
	for _, f := range d.Features {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Feature is a logical grouping of States, Commands, Properties, and
// Events. Mandatory commands/properties/events (GetPropertyValue,
// SetPropertyValue, Log, FeatureStateTransition, LogEventThreshold,
// FeatureState) are NOT stored here — they are handled directly by
// hdc/engine and described for IDL purposes by hdc/corefeature, so that no
// per-feature storage is spent duplicating identical descriptors six times
// over.
type Feature struct {
	ID           uint8
	Name         string
	ClassName    string
	ClassVersion string
	Doc          string
	// APIHandle is an opaque pointer to feature-specific state (e.g. a demo
	// device's in-memory fields), passed back to handlers untouched.
	APIHandle any

	// FeatureState and LogEventThreshold are the two mutable slots singled
	// out as exceptions to descriptor immutability.
	FeatureState      uint8
	LogEventThreshold uint8

	States     []State
	Commands   []*Command
	Properties []*Property
	Events     []Event
}

func (f *Feature) Command(id uint8) (*Command, bool) {
	for _, c := range f.Commands {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

func (f *Feature) Property(id uint8) (*Property, bool) {
	for _, p := range f.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (f *Feature) Event(id uint8) (Event, bool) {
	for _, e := range f.Events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// State is one named value of a Feature's feature_state enumeration.
type State struct {
	ID   uint8
	Name string
	Doc  string
}

// Argument describes one Command argument or return value, or one Event
// payload field.
type Argument struct {
	Dtype dtype.ID
	Name  string
	Doc   string
}

// Exception is a named failure a Command may report via its reply's
// exception_id byte.
type Exception struct {
	ID   uint8
	Name string
	Doc  string
}

// CommandEngine is the slice of Engine a Command handler needs: composing
// its own reply and, afterward if it wants to, emitting further events.
// Handlers take this instead of an *engine.Engine so hdc/model never
// imports hdc/engine.
//
// Every handler must terminate by calling exactly one Reply: every code
// path terminates by invoking exactly one reply function. This is what
// lets a handler control ordering precisely — e.g. the classic reset
// pattern: Reply, then SetFeatureState, then (on a real device) a
// hardware reset.
type CommandEngine interface {
	// Reply composes the command reply [0xF2][featureID][cmdID][exception][payload...].
	Reply(featureID, cmdID, exception uint8, payload []byte)
	SetFeatureState(f *Feature, newState uint8)
	EmitEvent(f *Feature, eventID uint8, prefix, suffix []byte)
	EmitLog(f *Feature, level uint8, text string)
}

// CommandHandler implements one Command's behavior. req is the request
// payload after the 3-byte header (MsgType, FeatureID, CommandID).
type CommandHandler func(e CommandEngine, f *Feature, req []byte)

// Command is one remote procedure call on a Feature.
type Command struct {
	ID      uint8
	Name    string
	Doc     string
	Args    []Argument
	Returns []Argument
	Raises  []Exception
	Handler CommandHandler
}

// StorageSlot is the direct-storage backing for a Property: a statically
// sized byte buffer the engine serializes/deserializes according to the
// property's dtype. Buf's length is the dtype's fixed width
// for scalar types, or the declared ValueSize for BLOB/UTF8; N tracks the
// number of bytes currently valid for variable-width values (UTF8/BLOB),
// and is ignored for fixed-width ones.
type StorageSlot struct {
	Buf []byte
	N   int
}

// PropertyBacking is the tagged-variant replacement for the source's
// getter-function-pointer-or-raw-data-pointer union: exactly one of Getter
// or Storage must be set (Validate enforces this).
type PropertyBacking struct {
	// Getter, if set, is invoked to serialize the current value.
	Getter func(f *Feature) []byte
	// Setter, if set, is invoked with the raw new-value bytes and returns
	// the actual (possibly clamped/discretized) new value to echo back.
	Setter func(f *Feature, newValue []byte) ([]byte, error)
	// Storage, if set, is the direct-storage pointer equivalent.
	Storage *StorageSlot
}

// Property is a typed, named value exposed by a Feature.
type Property struct {
	ID        uint8
	Name      string
	Dtype     dtype.ID
	ReadOnly  bool
	Doc       string
	ValueSize int // > 0 required for BLOB/UTF8 direct storage
	Backing   PropertyBacking
}

// Event is a Feature's static definition of an asynchronous message it may
// emit; instances are transient.
type Event struct {
	ID   uint8
	Name string
	Doc  string
	Args []Argument
}
