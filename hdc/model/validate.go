package model

import (
	"hdc-go/hdcerr"
)

// Validate checks the descriptor-integrity invariants that should surface
// at init time rather than at runtime: a Core feature (id 0) must exist,
// ids must be unique within their scope, every Property must have exactly
// one backing, BLOB/UTF8 direct-storage properties must declare
// ValueSize > 0, and descriptor text must not contain characters the
// IDL-JSON generator cannot emit unescaped.
func Validate(d *Device) error {
	if d.MaxReqMessageSize < 5 || d.MaxReqMessageSize > 254 {
		return &hdcerr.E{C: hdcerr.ReqSizeOutOfRange, Op: "model.Validate", Msg: "max_req_message_size must be in 5..254"}
	}
	if _, ok := d.Feature(0); !ok {
		return &hdcerr.E{C: hdcerr.MissingCoreFeature, Op: "model.Validate"}
	}

	seenFeature := map[uint8]bool{}
	for _, f := range d.Features {
		if seenFeature[f.ID] {
			return &hdcerr.E{C: hdcerr.DuplicateID, Op: "model.Validate", Msg: "duplicate feature id"}
		}
		seenFeature[f.ID] = true

		if err := checkText(f.Name, f.ClassName, f.ClassVersion, f.Doc); err != nil {
			return err
		}

		seenState := map[uint8]bool{}
		for _, s := range f.States {
			if seenState[s.ID] {
				return &hdcerr.E{C: hdcerr.DuplicateID, Op: "model.Validate", Msg: "duplicate state id"}
			}
			seenState[s.ID] = true
			if err := checkText(s.Name, s.Doc); err != nil {
				return err
			}
		}

		seenCmd := map[uint8]bool{}
		for _, c := range f.Commands {
			if seenCmd[c.ID] {
				return &hdcerr.E{C: hdcerr.DuplicateID, Op: "model.Validate", Msg: "duplicate command id"}
			}
			seenCmd[c.ID] = true
			if len(c.Args) > 4 || len(c.Returns) > 4 {
				return &hdcerr.E{C: hdcerr.BadDescriptorText, Op: "model.Validate", Msg: "command has more than 4 args/returns"}
			}
			if c.Handler == nil {
				return &hdcerr.E{C: hdcerr.BadDescriptorText, Op: "model.Validate", Msg: "command missing handler"}
			}
			if err := checkText(c.Name, c.Doc); err != nil {
				return err
			}
		}

		seenProp := map[uint8]bool{}
		for _, p := range f.Properties {
			if seenProp[p.ID] {
				return &hdcerr.E{C: hdcerr.DuplicateID, Op: "model.Validate", Msg: "duplicate property id"}
			}
			seenProp[p.ID] = true
			if err := checkText(p.Name, p.Doc); err != nil {
				return err
			}
			if err := validatePropertyBacking(p); err != nil {
				return err
			}
		}

		seenEvt := map[uint8]bool{}
		for _, e := range f.Events {
			if seenEvt[e.ID] {
				return &hdcerr.E{C: hdcerr.DuplicateID, Op: "model.Validate", Msg: "duplicate event id"}
			}
			seenEvt[e.ID] = true
			if len(e.Args) > 4 {
				return &hdcerr.E{C: hdcerr.BadDescriptorText, Op: "model.Validate", Msg: "event has more than 4 args"}
			}
			if err := checkText(e.Name, e.Doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// validatePropertyBacking enforces "exactly one of {getter, direct-storage
// pointer}" and the BLOB/UTF8 ValueSize>0 rule.
func validatePropertyBacking(p *Property) error {
	hasGetter := p.Backing.Getter != nil
	hasStorage := p.Backing.Storage != nil
	if hasGetter == hasStorage {
		return &hdcerr.E{C: hdcerr.BadPropertyBacking, Op: "model.Validate", Msg: "property " + p.Name + " must set exactly one of getter or storage"}
	}
	if hasStorage && p.Dtype.Variable() && p.ValueSize <= 0 {
		return &hdcerr.E{C: hdcerr.MissingValueSize, Op: "model.Validate", Msg: "property " + p.Name + " is variable-width but declares no value_size"}
	}
	if !p.ReadOnly && hasStorage == false && p.Backing.Setter == nil {
		return &hdcerr.E{C: hdcerr.BadPropertyBacking, Op: "model.Validate", Msg: "property " + p.Name + " is read-write but has no setter"}
	}
	return nil
}

// checkText rejects descriptor strings containing '"', '\', or control
// characters at init time, so descriptor text reaches the streaming IDL-JSON
// generator already free of characters it would have to escape (the
// generator's own escaping is a second line of defense).
func checkText(fields ...string) error {
	for _, s := range fields {
		for _, r := range s {
			if r == '"' || r == '\\' || r < 0x20 {
				return &hdcerr.E{C: hdcerr.BadDescriptorText, Op: "model.Validate", Msg: "descriptor text contains unescapable character"}
			}
		}
	}
	return nil
}
