package signaling

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// NewWebRTCFactory returns a TransportFactory backed by pion peer
// connections, optionally configured with STUN servers.
func NewWebRTCFactory(stunServers []string) TransportFactory {
	return func() (Transport, error) {
		cfg := webrtc.Configuration{}
		if len(stunServers) > 0 {
			cfg.ICEServers = []webrtc.ICEServer{{URLs: stunServers}}
		}

		pc, err := webrtc.NewPeerConnection(cfg)
		if err != nil {
			return nil, err
		}
		return &webrtcTransport{pc: pc}, nil
	}
}

// webrtcTransport adapts *webrtc.PeerConnection to the Transport contract.
type webrtcTransport struct {
	pc *webrtc.PeerConnection
}

func (t *webrtcTransport) ApplyRemote(sdp, kind string) error {
	return t.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(kind),
		SDP:  sdp,
	})
}

// Answer creates the local answer and waits for ICE gathering to finish so
// the returned description carries all candidates (no trickle ICE on the
// signaling path).
func (t *webrtcTransport) Answer(ctx context.Context) (string, string, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return "", "", err
	}

	gathered := webrtc.GatheringCompletePromise(t.pc)
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return "", "", err
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return "", "", ctx.Err()
	}

	local := t.pc.LocalDescription()
	return local.SDP, local.Type.String(), nil
}

func (t *webrtcTransport) OnStateChange(fn func(State)) {
	t.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		fn(mapPeerState(s))
	})
}

func (t *webrtcTransport) OnChannel(fn func(Channel)) {
	t.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(&webrtcChannel{dc: dc})
	})
}

func (t *webrtcTransport) Close() error {
	return t.pc.Close()
}

func mapPeerState(s webrtc.PeerConnectionState) State {
	switch s {
	case webrtc.PeerConnectionStateConnected:
		return StateEstablished
	case webrtc.PeerConnectionStateFailed:
		return StateFailed
	case webrtc.PeerConnectionStateClosed:
		return StateClosed
	default:
		return StatePending
	}
}

// webrtcChannel adapts *webrtc.DataChannel to the Channel contract.
type webrtcChannel struct {
	dc *webrtc.DataChannel
}

func (c *webrtcChannel) Label() string {
	return c.dc.Label()
}

func (c *webrtcChannel) Send(data []byte) error {
	return c.dc.Send(data)
}

func (c *webrtcChannel) SendText(text string) error {
	return c.dc.SendText(text)
}

func (c *webrtcChannel) IsOpen() bool {
	return c.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (c *webrtcChannel) OnClose(fn func()) {
	c.dc.OnClose(fn)
}

func (c *webrtcChannel) OnMessage(fn func(Message)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(Message{Data: msg.Data, IsText: msg.IsString})
	})
}
