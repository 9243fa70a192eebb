package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"webscope/pkg/config"
	"webscope/pkg/signaling"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeChannel is an in-memory data channel for wiring tests.
type fakeChannel struct {
	mu      sync.Mutex
	label   string
	open    bool
	binary  [][]byte
	text    []string
	closeFn func()
	msgFn   func(signaling.Message)
}

func newFakeChannel(label string) *fakeChannel {
	return &fakeChannel{label: label, open: true}
}

func (f *fakeChannel) Label() string { return f.label }

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.binary = append(f.binary, buf)
	return nil
}

func (f *fakeChannel) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = append(f.text, text)
	return nil
}

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) OnClose(fn func())                    { f.closeFn = fn }
func (f *fakeChannel) OnMessage(fn func(signaling.Message)) { f.msgFn = fn }

// deliver simulates an inbound message from the remote peer.
func (f *fakeChannel) deliver(msg signaling.Message) {
	if f.msgFn != nil {
		f.msgFn(msg)
	}
}

// fakeTransport satisfies signaling.Transport for HTTP-level tests.
type fakeTransport struct {
	channelFn func(signaling.Channel)
	stateFn   func(signaling.State)
}

func (f *fakeTransport) ApplyRemote(sdp, kind string) error { return nil }

func (f *fakeTransport) Answer(ctx context.Context) (string, string, error) {
	return "v=0 answer", "answer", nil
}

func (f *fakeTransport) OnStateChange(fn func(signaling.State)) { f.stateFn = fn }
func (f *fakeTransport) OnChannel(fn func(signaling.Channel))   { f.channelFn = fn }
func (f *fakeTransport) Close() error                           { return nil }

func testConfig(t *testing.T) *config.ServerConfig {
	cfg := config.DefaultConfig()
	cfg.Database.Type = "none"
	cfg.StaticDir = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T) (*Server, *gin.Engine, *[]*fakeTransport) {
	t.Helper()

	var mu sync.Mutex
	transports := &[]*fakeTransport{}
	factory := func() (signaling.Transport, error) {
		ft := &fakeTransport{}
		mu.Lock()
		*transports = append(*transports, ft)
		mu.Unlock()
		return ft, nil
	}

	srv, err := newServer(testConfig(t), factory)
	if err != nil {
		t.Fatalf("newServer failed: %v", err)
	}
	return srv, srv.buildRouter(), transports
}

func postConnect(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if raw, ok := body.(string); ok {
		buf.WriteString(raw)
	} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/connect", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestConnectCreatesSession(t *testing.T) {
	srv, router, _ := newTestServer(t)

	w := postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var ans signaling.ConnectInfo
	if err := json.Unmarshal(w.Body.Bytes(), &ans); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if ans.ID == "" {
		t.Error("response should carry a session id")
	}
	if ans.Type != "answer" {
		t.Errorf("response type = %s, want answer", ans.Type)
	}
	if srv.manager.Count() != 1 {
		t.Errorf("session count = %d, want 1", srv.manager.Count())
	}
}

func TestConnectReusesSessionID(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	var first signaling.ConnectInfo
	json.Unmarshal(w.Body.Bytes(), &first)

	w = postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer", ID: first.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("renegotiation status = %d: %s", w.Code, w.Body.String())
	}
	var second signaling.ConnectInfo
	json.Unmarshal(w.Body.Bytes(), &second)
	if second.ID != first.ID {
		t.Errorf("renegotiation id = %s, want %s", second.ID, first.ID)
	}
}

func TestConnectUnknownSession(t *testing.T) {
	srv, router, _ := newTestServer(t)

	w := postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer", ID: "missing"})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if srv.manager.Count() != 0 {
		t.Errorf("session count = %d, want 0", srv.manager.Count())
	}
}

func TestConnectMalformedBody(t *testing.T) {
	_, router, _ := newTestServer(t)

	w := postConnect(t, router, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConnectAfterShutdown(t *testing.T) {
	srv, router, _ := newTestServer(t)

	if err := srv.manager.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	w := postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestBroadcastChannelIsRegistered(t *testing.T) {
	srv, router, transports := newTestServer(t)

	postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	if len(*transports) != 1 {
		t.Fatalf("transports = %d, want 1", len(*transports))
	}

	ch := newFakeChannel(srv.cfg.Broadcast.DataLabel)
	(*transports)[0].channelFn(ch)

	if got := srv.broadcaster.Stats().ActiveChannels; got != 1 {
		t.Errorf("active channels = %d, want 1", got)
	}
}

func TestEchoChannelRoundTrip(t *testing.T) {
	srv, router, transports := newTestServer(t)

	postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	ch := newFakeChannel(srv.cfg.Broadcast.EchoLabel)
	(*transports)[0].channelFn(ch)

	ch.deliver(signaling.Message{Data: []byte{0x01, 0x02, 0x03}})
	ch.deliver(signaling.Message{Data: []byte("hello"), IsText: true})

	if len(ch.binary) != 1 || !bytes.Equal(ch.binary[0], []byte{0x01, 0x02, 0x03}) {
		t.Errorf("binary echo = %v, want [1 2 3]", ch.binary)
	}
	if len(ch.text) != 1 || ch.text[0] != "hello" {
		t.Errorf("text echo = %v, want [hello]", ch.text)
	}
}

func TestUnknownChannelLabelIgnored(t *testing.T) {
	srv, router, transports := newTestServer(t)

	postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})
	ch := newFakeChannel("future_channel_kind")
	(*transports)[0].channelFn(ch)

	if got := srv.broadcaster.Stats().ActiveChannels; got != 0 {
		t.Errorf("active channels = %d, want 0", got)
	}
	if ch.msgFn != nil {
		t.Error("unrecognized channel should get no message handler")
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	for _, key := range []string{"sessions", "active_channels", "frames_generated"} {
		if _, ok := body[key]; !ok {
			t.Errorf("stats body missing %q", key)
		}
	}
}

func TestSessionsEndpoint(t *testing.T) {
	_, router, _ := newTestServer(t)

	postConnect(t, router, signaling.ConnectInfo{SDP: "v=0", Type: "offer"})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(body.Sessions))
	}
	if body.Sessions[0]["state"] != "pending" {
		t.Errorf("state = %v, want pending", body.Sessions[0]["state"])
	}
}
