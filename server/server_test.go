package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/twenty48/search"
)

var (
	pairBoard   = [][]int{{2, 2, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	packedBoard = [][]int{{2, 4, 2, 4}, {4, 2, 4, 2}, {2, 4, 2, 4}, {4, 2, 4, 2}}
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(search.Config{Depth: 1}, logger, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postMove(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/move", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /move: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func boardBody(t *testing.T, rows [][]int) string {
	t.Helper()
	data, err := json.Marshal(MoveRequest{Board: rows})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestMove_PairMergesSideways(t *testing.T) {
	ts := newTestServer(t)
	resp, data := postMove(t, ts, boardBody(t, pairBoard))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, data)
	}

	var got MoveResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Move == nil || (*got.Move != "left" && *got.Move != "right") {
		t.Fatalf("move = %v, want left or right (%s)", got.Move, data)
	}
	if _, ok := got.Scores["up"]; ok {
		t.Fatalf("up is a no-op and must not be scored: %v", got.Scores)
	}
	if len(got.Scores) != 3 || got.Depth != 1 {
		t.Fatalf("unexpected response: %s", data)
	}
}

func TestMove_NoLegalMove(t *testing.T) {
	ts := newTestServer(t)
	resp, data := postMove(t, ts, boardBody(t, packedBoard))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, data)
	}
	if !bytes.Contains(data, []byte(`"move":null`)) {
		t.Fatalf("expected explicit null move, got %s", data)
	}
}

func TestMove_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "three rows", body: `{"board":[[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`},
		{name: "short row", body: `{"board":[[0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`},
		{name: "odd tile", body: `{"board":[[3,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`},
		{name: "negative tile", body: `{"board":[[-2,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := postMove(t, ts, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, want 400: %s", resp.StatusCode, data)
			}
		})
	}
}

func TestStatsAndHealth(t *testing.T) {
	ts := newTestServer(t)
	postMove(t, ts, boardBody(t, pairBoard))
	postMove(t, ts, boardBody(t, packedBoard))

	resp, err := http.Get(ts.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	defer resp.Body.Close()
	var stats StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Requests != 2 || stats.NoMove != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Memo.Entries == 0 {
		t.Fatalf("shared engine should have cached the first search: %+v", stats.Memo)
	}

	health, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", health.StatusCode)
	}

	info, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer info.Body.Close()
	var ir InfoResponse
	if err := json.NewDecoder(info.Body).Decode(&ir); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if ir.Evaluator != search.EvaluatorSnake || ir.Depth != "1" || ir.MemoLimit != search.DefaultMemoLimit {
		t.Fatalf("unexpected info: %+v", ir)
	}
}

func TestWS_RoundTrip(t *testing.T) {
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() WSMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	payload, _ := json.Marshal(MoveRequest{Board: pairBoard})
	if err := conn.WriteJSON(WSMessage{Type: MsgBoard, Payload: payload}); err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := read()
	if msg.Type != MsgAnalysis {
		t.Fatalf("got %q, want analysis: %s", msg.Type, msg.Payload)
	}
	var got MoveResponse
	if err := json.Unmarshal(msg.Payload, &got); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if got.Move == nil || *got.Move == "up" {
		t.Fatalf("unexpected move: %s", msg.Payload)
	}

	if err := conn.WriteJSON(WSMessage{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(); msg.Type != MsgError {
		t.Fatalf("got %q, want error", msg.Type)
	}

	payload, _ = json.Marshal(MoveRequest{Board: [][]int{{1}}})
	if err := conn.WriteJSON(WSMessage{Type: MsgBoard, Payload: payload}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(); msg.Type != MsgError {
		t.Fatalf("got %q, want error for malformed board", msg.Type)
	}
}
