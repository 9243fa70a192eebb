package server

import "webscope/pkg/signaling"

// handleChannel dispatches every inbound data channel by name: the
// broadcast label subscribes the channel to the frame loop, the echo label
// installs a loopback responder, anything else is ignored so future
// channel kinds stay forward-compatible.
func (s *Server) handleChannel(sessionID string, ch signaling.Channel) {
	switch ch.Label() {
	case s.cfg.Broadcast.DataLabel:
		s.log.InfoWith("adding channel to broadcast", "session", sessionID)
		s.broadcaster.Add(ch)

	case s.cfg.Broadcast.EchoLabel:
		ch.OnMessage(func(msg signaling.Message) {
			s.echo(ch, msg)
		})

	default:
		s.log.DebugWith("ignoring unrecognized channel", "session", sessionID, "label", ch.Label())
	}
}

// echo writes the payload back verbatim, preserving the message kind.
func (s *Server) echo(ch signaling.Channel, msg signaling.Message) {
	var err error
	if msg.IsText {
		err = ch.SendText(string(msg.Data))
	} else {
		err = ch.Send(msg.Data)
	}
	if err != nil {
		s.log.DebugWith("echo failed", "label", ch.Label(), "error", err.Error())
	}
}
