// Package corefeature holds the mandatory descriptor metadata required on
// every feature (GetPropertyValue, SetPropertyValue, Log,
// FeatureStateTransition, LogEventThreshold, FeatureState) plus the Core
// feature id and the seven reserved exception ids.
//
// These are metadata-only (Handler/Getter/Setter left nil): hdc/engine
// special-cases these ids directly in its command-dispatch and
// property-serialization code paths rather than storing six mandatory
// descriptors inside every registered Feature, so a Feature costs no extra
// static storage per mandatory item. The IDL-JSON generator
// (hdc/engine/idl.go) appends these tables to every feature's
// commands/properties/events arrays, so the host sees the full surface
// without needing out-of-band knowledge.
package corefeature

import (
	"hdc-go/hdc/dtype"
	"hdc-go/hdc/model"
	"hdc-go/x/mathx"
)

// CoreFeatureID is the reserved feature id every Device must register.
const CoreFeatureID uint8 = 0

// Mandatory command ids.
const (
	CmdGetPropertyValue uint8 = 0xF0
	CmdSetPropertyValue uint8 = 0xF1
)

// Mandatory event ids.
const (
	EventLog                    uint8 = 0xF0
	EventFeatureStateTransition uint8 = 0xF1
)

// Mandatory property ids.
const (
	PropLogEventThreshold uint8 = 0xF0
	PropFeatureState      uint8 = 0xF1
)

// Reserved exception ids.
const (
	ExcNoError          uint8 = 0x00
	ExcCommandFailed    uint8 = 0xF0
	ExcUnknownFeature   uint8 = 0xF1
	ExcUnknownCommand   uint8 = 0xF2
	ExcInvalidArgs      uint8 = 0xF3
	ExcNotNow           uint8 = 0xF4
	ExcUnknownProperty  uint8 = 0xF5
	ExcReadOnlyProperty uint8 = 0xF6
)

// LogEventThresholdDefault is the initial value of every feature's
// log_event_threshold slot (WARNING and above reported by default).
const LogEventThresholdDefault uint8 = 30

// reservedExceptions describes the seven engine-reserved exceptions, used
// for error-string lookups and IDL exception metadata.
var reservedExceptions = map[uint8]model.Exception{
	ExcCommandFailed:    {ID: ExcCommandFailed, Name: "CommandFailed"},
	ExcUnknownFeature:   {ID: ExcUnknownFeature, Name: "UnknownFeature"},
	ExcUnknownCommand:   {ID: ExcUnknownCommand, Name: "UnknownCommand"},
	ExcInvalidArgs:      {ID: ExcInvalidArgs, Name: "InvalidArgs"},
	ExcNotNow:           {ID: ExcNotNow, Name: "NotNow"},
	ExcUnknownProperty:  {ID: ExcUnknownProperty, Name: "UnknownProperty"},
	ExcReadOnlyProperty: {ID: ExcReadOnlyProperty, Name: "ReadOnlyProperty"},
}

// Exception returns the reserved exception descriptor for id, if any.
func Exception(id uint8) (model.Exception, bool) {
	e, ok := reservedExceptions[id]
	return e, ok
}

// MandatoryCommands returns the IDL-only descriptors (no Handler: engine
// dispatches these ids directly) for GetPropertyValue and SetPropertyValue.
func MandatoryCommands() []model.Command {
	return []model.Command{
		{
			ID:   CmdGetPropertyValue,
			Name: "GetPropertyValue",
			Doc:  "Returns the serialized value of one property.",
			Args: []model.Argument{{Dtype: dtype.UINT8, Name: "property_id"}},
			Returns: []model.Argument{
				{Dtype: dtype.BLOB, Name: "value"},
			},
			Raises: []model.Exception{reservedExceptions[ExcUnknownProperty]},
		},
		{
			ID:   CmdSetPropertyValue,
			Name: "SetPropertyValue",
			Doc:  "Sets a property's value and returns the actual stored value.",
			Args: []model.Argument{
				{Dtype: dtype.UINT8, Name: "property_id"},
				{Dtype: dtype.BLOB, Name: "new_value"},
			},
			Returns: []model.Argument{
				{Dtype: dtype.BLOB, Name: "actual_new_value"},
			},
			Raises: []model.Exception{
				reservedExceptions[ExcUnknownProperty],
				reservedExceptions[ExcReadOnlyProperty],
			},
		},
	}
}

// MandatoryProperties returns the IDL-only descriptors for
// LogEventThreshold and FeatureState (engine reads/writes the Feature's own
// mutable slots directly; no Getter/Storage here).
func MandatoryProperties() []model.Property {
	return []model.Property{
		{
			ID:       PropLogEventThreshold,
			Name:     "LogEventThreshold",
			Dtype:    dtype.UINT8,
			ReadOnly: false,
			Doc:      "Minimum Log event level (10,20,30,40,50) this feature emits.",
		},
		{
			ID:       PropFeatureState,
			Name:     "FeatureState",
			Dtype:    dtype.UINT8,
			ReadOnly: true,
			Doc:      "Current value of the feature's feature_state enumeration.",
		},
	}
}

// MandatoryEvents returns the IDL-only descriptors for Log and
// FeatureStateTransition.
func MandatoryEvents() []model.Event {
	return []model.Event{
		{
			ID:   EventLog,
			Name: "Log",
			Doc:  "Diagnostic text, dropped below the feature's log_event_threshold.",
			Args: []model.Argument{
				{Dtype: dtype.UINT8, Name: "log_level"},
				{Dtype: dtype.UTF8, Name: "log_msg"},
			},
		},
		{
			ID:   EventFeatureStateTransition,
			Name: "FeatureStateTransition",
			Doc:  "Emitted whenever set_feature_state changes feature_state.",
			Args: []model.Argument{
				{Dtype: dtype.UINT8, Name: "previous_state"},
				{Dtype: dtype.UINT8, Name: "current_state"},
			},
		},
	}
}

// ClampLogThreshold coerces v to the nearest multiple of ten within
// [10,50].
func ClampLogThreshold(v uint8) uint8 {
	v = mathx.Clamp(v, uint8(10), uint8(50))
	return mathx.Clamp(mathx.RoundDiv(v, 10)*10, uint8(10), uint8(50))
}
