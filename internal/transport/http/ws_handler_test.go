package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	board := memory.NewLeaderboardStore()
	service := newTestService(t, board)
	wsHandler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	view, err := service.Login(t.Context(), auth.Credentials{Name: "Alice", Country: "Spain"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	u := "ws" + server.URL[len("http"):] + "/ws?session=" + view.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current scenario first.
	var current domain.ScenarioView
	readNext(conn, t, "scenario", &current)

	for i := 0; i < current.Length; i++ {
		send(conn, t, "answer", answerFor(t, current.Message))
		var result domain.AnswerResult
		readNext(conn, t, "answerResult", &result)
		if !result.Correct {
			t.Fatalf("expected correct answer at position %d", i)
		}

		send(conn, t, "next", nil)
		if i == current.Length-1 {
			var done domain.Completion
			readNext(conn, t, "completed", &done)
			if done.Score != 20 || done.Tier != 0 || !done.Synced {
				t.Fatalf("unexpected completion: %+v", done)
			}
			break
		}
		readNext(conn, t, "scenario", &current)
	}

	entries, _ := board.List(t.Context())
	if len(entries) != 1 {
		t.Fatalf("expected one leaderboard row, got %d", len(entries))
	}

	// Completed sessions refuse answers until restarted.
	send(conn, t, "answer", domain.Choice{})
	readNext(conn, t, "error", nil)

	send(conn, t, "restart", nil)
	var restarted domain.ScenarioView
	readNext(conn, t, "scenario", &restarted)
	if restarted.Score != 0 || restarted.Position != 0 {
		t.Fatalf("expected reset session, got %+v", restarted)
	}
}

func TestWebSocketLookups(t *testing.T) {
	service := newTestService(t, memory.NewLeaderboardStore())
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, nil).ServeWS))
	defer server.Close()

	view, err := service.Login(t.Context(), auth.Credentials{Name: "Alice"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"?session="+view.SessionID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "scenario", nil)

	send(conn, t, "options", domain.Choice{Reason1: "Billing", Reason2: "Nope"})
	var opts domain.Options
	readNext(conn, t, "options", &opts)
	if opts.Selected.Reason1 != "Billing" || opts.Selected.Reason2 != "" {
		t.Fatalf("unexpected selection: %+v", opts.Selected)
	}

	send(conn, t, "search", map[string]any{"q": "money"})
	var hits []domain.Scenario
	readNext(conn, t, "search", &hits)
	if len(hits) != 1 || hits[0].Reason2 != "Refund" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	send(conn, t, "dance", nil)
	readNext(conn, t, "error", nil)
}

func TestWebSocketRejectsUnknownSession(t *testing.T) {
	service := newTestService(t, memory.NewLeaderboardStore())
	server := httptest.NewServer(http.HandlerFunc(NewWSHandler(service, nil).ServeWS))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"?session=missing", nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string, out any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	if out != nil {
		if err := json.Unmarshal(msg.Payload, out); err != nil {
			t.Fatalf("decode %s payload: %v", expect, err)
		}
	}
}
