package engine

import "hdc-go/hdc/corefeature"

// handleCommand implements the Command dispatch for a
// message [0xF2][feature_id][command_id][...args].
func (e *Engine) handleCommand(payload []byte) {
	if len(payload) < 3 {
		e.EmitLog(nil, LevelError, "malformed command request")
		return
	}
	featureID := payload[1]
	cmdID := payload[2]
	args := payload[3:]

	f, ok := e.device.Feature(featureID)
	if !ok {
		e.Reply(featureID, cmdID, corefeature.ExcUnknownFeature, nil)
		return
	}

	switch cmdID {
	case corefeature.CmdGetPropertyValue:
		e.handleGetPropertyValue(f, args)
		return
	case corefeature.CmdSetPropertyValue:
		e.handleSetPropertyValue(f, args)
		return
	}

	cmd, ok := f.Command(cmdID)
	if !ok {
		e.Reply(f.ID, cmdID, corefeature.ExcUnknownCommand, nil)
		return
	}
	cmd.Handler(e, f, args)
}

// Reply composes [0xF2][feature_id][command_id][exception_id][payload...].
// It implements model.CommandEngine
// so Command handlers can call it directly, controlling exactly when their
// reply is composed relative to any events they emit afterward.
func (e *Engine) Reply(featureID, cmdID, exception uint8, payload []byte) {
	out := make([]byte, 0, 4+len(payload))
	out = append(out, msgCommand, featureID, cmdID, exception)
	out = append(out, payload...)
	e.reply(out)
}
