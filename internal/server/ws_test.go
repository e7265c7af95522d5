package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/pkg/metrics"
)

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// wireMessage decodes an EventMessage; the outcome stays raw because it is
// an interface on the sending side.
type wireMessage struct {
	EventMessage
	Outcome json.RawMessage `json:"outcome"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitClients(t *testing.T, hub *EventHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventHub_Broadcast(t *testing.T) {
	a := newTestApp(t)
	m := metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry()))
	hub := NewEventHub(m, nil)
	a.AddSink(hub)

	ts := httptest.NewServer(New(Config{App: a, Hub: hub, Metrics: m}))
	defer ts.Close()

	first := dial(t, ts)
	second := dial(t, ts)
	waitClients(t, hub, 2)

	if _, err := a.SetTarget(1); err != nil {
		t.Fatal(err)
	}
	a.ProcessBatch(detector.Hit(1, 0.9))
	a.ProcessBatch(detector.Hit(1, 0.9))

	for _, conn := range []*websocket.Conn{first, second} {
		target := readMessage(t, conn)
		if target.Type != app.EventTarget || target.Target == nil || target.Target.Name != "I Love You" {
			t.Errorf("target message = %+v", target)
		}
		if target.Message != "New challenge: Learn 'I Love You' sign!" || target.ID == "" {
			t.Errorf("target message = %+v", target)
		}

		correct := readMessage(t, conn)
		if !strings.Contains(string(correct.Outcome), `"streak":1`) {
			t.Errorf("outcome payload = %s", correct.Outcome)
		}
		if correct.Kind != "correct" || !strings.HasPrefix(correct.Message, "Perfect! Keep holding 'I Love You'") {
			t.Errorf("correct message = %+v", correct)
		}

		done := readMessage(t, conn)
		if done.Kind != "completed" || done.Stats.Score != 1 || done.Seq <= correct.Seq {
			t.Errorf("completed message = %+v", done)
		}

		awaiting := readMessage(t, conn)
		if awaiting.Type != app.EventStatus || awaiting.Status != app.StatusAwaitingNext {
			t.Errorf("status message = %+v", awaiting)
		}
	}

	first.Close()
	waitClients(t, hub, 1)
	if got := websocketClients(t, m); got != 1 {
		t.Errorf("websocket_clients = %v, want 1", got)
	}

	hub.Close()
	waitClients(t, hub, 0)
}

func TestNewEventMessage(t *testing.T) {
	ev := app.Event{
		Type:    app.EventOutcome,
		Seq:     7,
		Outcome: game.Wrong{Detected: []game.DetectedSign{{ClassID: 2, Label: "No", Confidence: 0.8, Known: true}}},
	}
	msg := NewEventMessage(ev)
	if msg.Kind != "wrong" || msg.Message != "Detected: No (80%)\nTarget: Unknown" || msg.Seq != 7 {
		t.Errorf("message = %+v", msg)
	}

	status := NewEventMessage(app.Event{Type: app.EventStatus, Status: app.StatusCameraError, Err: errors.New("device busy")})
	if status.Error != "device busy" || status.Kind != "" {
		t.Errorf("status message = %+v", status)
	}
}

func TestStreamHandler(t *testing.T) {
	frames := capture.NewFrameBuffer()
	frames.Publish([]byte("jpeg-1"))

	ts := httptest.NewServer(New(Config{Frames: frames}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readPart := func() string {
		t.Helper()
		var headers []string
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" && len(headers) > 0 {
				break
			}
			if line != "" {
				headers = append(headers, line)
			}
		}
		if headers[0] != "--frame" {
			t.Fatalf("headers = %v", headers)
		}
		body := make([]byte, 6)
		if _, err := io.ReadFull(r, body); err != nil {
			t.Fatal(err)
		}
		return string(body)
	}

	if got := readPart(); got != "jpeg-1" {
		t.Errorf("first frame = %q", got)
	}
	frames.Publish([]byte("jpeg-2"))
	if got := readPart(); got != "jpeg-2" {
		t.Errorf("second frame = %q", got)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	s := New(Config{Frames: capture.NewFrameBuffer()})
	if rec := serve(t, s, http.MethodPost, "/api/stream", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func websocketClients(t *testing.T, m *metrics.Manager) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "mudra_http_websocket_clients" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
