package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wedding-quiz-service/internal/app"
	"wedding-quiz-service/internal/channel"
	"wedding-quiz-service/internal/domain"
	"wedding-quiz-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	broker := channel.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	repo := memory.NewQuestionRepository(memory.NewStaticQuestionSetLoader(sampleSets()), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), repo, broker, nil, zerolog.Nop())

	mux := http.NewServeMux()
	NewAdminHandler(service, zerolog.Nop()).Register(mux)
	mux.HandleFunc("/ws", NewWSHandler(service, zerolog.Nop()).ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func TestWebSocketGuestRound(t *testing.T) {
	server, _ := newTestServer(t)

	postJSON(t, server.URL+"/admin/sessions", `{"sessionId":"s1","questionSetId":"wedding-2026"}`, http.StatusCreated)
	postJSON(t, server.URL+"/admin/sessions/s1/start", "", http.StatusOK)

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=s1&partyId=p1&name=Alice&gamesBonus=true"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	snap := readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "waiting"
	})
	if snap["totalScore"].(float64) != 200 {
		t.Fatalf("expected games bonus seeded, got %v", snap["totalScore"])
	}

	postJSON(t, server.URL+"/admin/sessions/s1/next", "", http.StatusOK)
	snap = readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "question"
	})
	if snap["question"] == nil {
		t.Fatalf("expected question payload, got %v", snap)
	}

	answer := map[string]any{"type": "answer", "payload": map[string]any{"option": "B"}}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "answered" && s["selected"] == "B"
	})

	postJSON(t, server.URL+"/admin/sessions/s1/reveal", "", http.StatusOK)
	snap = readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "reveal" && s["outcome"] != nil
	})
	outcome := snap["outcome"].(map[string]any)
	if outcome["correct"] != true {
		t.Fatalf("expected correct outcome, got %v", outcome)
	}
	if snap["totalScore"].(float64) <= 200 {
		t.Fatalf("expected points on top of bonus, got %v", snap["totalScore"])
	}

	postJSON(t, server.URL+"/admin/sessions/s1/leaderboard", "", http.StatusOK)
	readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "leaderboard"
	})

	postJSON(t, server.URL+"/admin/sessions/s1/end", "", http.StatusOK)
	snap = readSnapshotUntil(conn, t, func(s map[string]any) bool {
		return s["state"] == "ended"
	})
	if snap["winners"] == nil {
		t.Fatalf("expected winners in final snapshot, got %v", snap)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/ws?sessionId=s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	server, _ := newTestServer(t)

	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=nope&partyId=p1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readNext(conn, t)
	if typ != "error" {
		t.Fatalf("expected error message, got %s %v", typ, payload)
	}
}

func TestAdminRejectsOutOfOrderTransitions(t *testing.T) {
	server, _ := newTestServer(t)

	postJSON(t, server.URL+"/admin/sessions", `{"sessionId":"s1","questionSetId":"wedding-2026"}`, http.StatusCreated)

	// Advancing before the session is started is a conflict, as is revealing
	// before any question is open.
	postJSON(t, server.URL+"/admin/sessions/s1/next", "", http.StatusConflict)
	postJSON(t, server.URL+"/admin/sessions/s1/start", "", http.StatusOK)
	postJSON(t, server.URL+"/admin/sessions/s1/reveal", "", http.StatusConflict)
	postJSON(t, server.URL+"/admin/sessions/missing/next", "", http.StatusNotFound)
}

func postJSON(t *testing.T, url, body string, wantStatus int) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("post %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func readSnapshotUntil(conn *websocket.Conn, t *testing.T, cond func(map[string]any) bool) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(conn, t)
		if typ == "snapshot" && cond(payload) {
			return payload
		}
	}
	t.Fatalf("snapshot condition never met")
	return nil
}

func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"wedding-2026": {
			ID: "wedding-2026",
			Questions: []domain.Question{
				{
					ID:               "q1",
					Prompt:           "Where did the couple first meet?",
					Options:          domain.Options{A: "At work", B: "A concert", C: "Online", D: "A wedding"},
					CorrectOption:    domain.OptionB,
					DisplayOrder:     1,
					TimeLimitSeconds: 30,
				},
			},
		},
	}
}
