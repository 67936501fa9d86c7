package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"quizbank-service/internal/app"
	"quizbank-service/internal/domain"
	"quizbank-service/internal/infra/bank"
	"quizbank-service/internal/infra/ledger"
	"quizbank-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	service := newTestService(t)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?session=s1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Start a fresh CH1 quiz.
	writeMsg(t, conn, "start", map[string]any{
		"user":     "alice",
		"mode":     "fresh",
		"chapters": []string{"CH1"},
		"count":    5,
	})
	msgType, payload := readNext(conn, t, "session")
	if msgType != "session" {
		t.Fatalf("expected session, got %s", msgType)
	}
	questions, ok := payload["questions"].([]any)
	if !ok || len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", payload["questions"])
	}

	// Answer every question; the last reply must carry completion.
	var completed bool
	for _, raw := range questions {
		q := raw.(map[string]any)
		writeMsg(t, conn, "answer", map[string]any{
			"chapter": q["chapter"],
			"number":  q["number"],
			"label":   "A",
		})
		_, outcome := readNext(conn, t, "answerResult")
		completed, _ = outcome["completed"].(bool)
	}
	if !completed {
		t.Fatalf("expected completion after final answer")
	}

	// The score is now available.
	writeMsg(t, conn, "result", map[string]any{})
	_, result := readNext(conn, t, "result")
	if total, _ := result["total"].(float64); total != 2 {
		t.Fatalf("expected total 2, got %v", result["total"])
	}

	// Restart clears the answers but keeps the settings.
	writeMsg(t, conn, "restart", map[string]any{})
	_, restarted := readNext(conn, t, "session")
	if answered, _ := restarted["answered"].(float64); answered != 0 {
		t.Fatalf("expected 0 answered after restart, got %v", restarted["answered"])
	}

	writeMsg(t, conn, "end", map[string]any{})
	readNext(conn, t, "ended")
}

func TestWebSocketAnswerBeforeStart(t *testing.T) {
	service := newTestService(t)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?session=s2", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	writeMsg(t, conn, "answer", map[string]any{"chapter": "1-1", "number": "1", "label": "A"})
	_, payload := readNext(conn, t, "error")
	if payload["message"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestWebSocketRequiresSessionKey(t *testing.T) {
	service := newTestService(t)
	wsHandler := NewWSHandler(service)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without session key, got %d", resp.StatusCode)
	}
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	dir := t.TempDir()
	repo := bank.NewRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	return app.NewQuizService(
		memory.NewSessionStore(),
		repo,
		nil,
		ledger.NewWrongStore(filepath.Join(dir, "wrong_answers.csv")),
		ledger.NewAttemptStore(filepath.Join(dir, "attempts.csv")),
		ledger.NewAuditStore(filepath.Join(dir, "bank_audit.csv")),
	)
}

func sampleBank() []domain.QuestionRecord {
	options := []domain.Option{
		{Label: "A", Text: "first"},
		{Label: "B", Text: "second"},
		{Label: "C", Text: "third"},
		{Label: "D", Text: "fourth"},
	}
	return []domain.QuestionRecord{
		{Chapter: "1-1", Number: "1", Text: "q1", Options: options, CorrectLabel: "A", Explanation: "e1"},
		{Chapter: "1-2", Number: "1", Text: "q2", Options: options, CorrectLabel: "B", Explanation: "e2"},
	}
}
