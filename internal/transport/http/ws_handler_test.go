package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mindvault/internal/app"
)

func TestWebSocketLiveQuizFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	folder, err := env.folders.Create(ctx, "alice", "Geography")
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	capital, err := env.concepts.Create(ctx, "alice", app.CreateConceptInput{FolderID: folder.ID, Name: "Capitals", Description: "Paris is the capital of France"})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}
	if _, err := env.concepts.Create(ctx, "alice", app.CreateConceptInput{FolderID: folder.ID, Name: "Rivers", Description: "The Nile is long"}); err != nil {
		t.Fatalf("create concept: %v", err)
	}

	conn := dialLive(t, env, "alice", folder.ID)
	defer conn.Close()

	msgType, payload := readNext(conn, t, "quiz")
	if payload["totalQuestions"] != float64(2) {
		t.Fatalf("expected 2 questions, got %v", payload["totalQuestions"])
	}
	items := payload["quiz"].([]any)
	first := items[0].(map[string]any)["question"].(map[string]any)
	if first["answer"] != "" {
		t.Fatalf("expected concealed answers, got %v (%s)", first["answer"], msgType)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"conceptId": capital.ID, "answer": "A"},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload = readNext(conn, t, "progress")
	if payload["answered"] != float64(1) || payload["totalQuestions"] != float64(2) {
		t.Fatalf("unexpected progress %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answer",
		"payload": map[string]any{"conceptId": capital.ID, "answer": "E"},
	}); err != nil {
		t.Fatalf("write bad answer: %v", err)
	}
	readNext(conn, t, "error")

	if err := conn.WriteJSON(map[string]any{
		"type":    "submit",
		"payload": map[string]any{"timeElapsed": 30},
	}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	_, payload = readNext(conn, t, "result")
	result := payload["result"].(map[string]any)
	if result["percentage"] != float64(50) || result["timeElapsed"] != float64(30) {
		t.Fatalf("unexpected result %v", result)
	}

	history, err := env.quiz.History(ctx, "alice", folder.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected stored result, got %d err=%v", len(history), err)
	}
}

func TestWebSocketResumesAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	folder, _ := env.folders.Create(ctx, "alice", "Music")
	concept, err := env.concepts.Create(ctx, "alice", app.CreateConceptInput{FolderID: folder.ID, Name: "Tempo", Description: "Speed of music"})
	if err != nil {
		t.Fatalf("create concept: %v", err)
	}

	conn := dialLive(t, env, "alice", folder.ID)
	readNext(conn, t, "quiz")
	_ = conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"conceptId": concept.ID, "answer": "B"}})
	readNext(conn, t, "progress")
	conn.Close()

	conn = dialLive(t, env, "alice", folder.ID)
	defer conn.Close()
	_, payload := readNext(conn, t, "quiz")
	answers := payload["answers"].(map[string]any)
	if answers[concept.ID] != "B" {
		t.Fatalf("expected resumed answer, got %v", answers)
	}
}

func TestWebSocketRejectsFolderWithoutQuiz(t *testing.T) {
	env := newTestEnv(t)
	folder, _ := env.folders.Create(context.Background(), "alice", "Empty")

	_, resp, err := websocket.DefaultDialer.Dial(liveURL(t, env, "alice", folder.ID), nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake response, got %+v", resp)
	}
}

func dialLive(t *testing.T, env *testEnv, owner, folderID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(liveURL(t, env, owner, folderID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func liveURL(t *testing.T, env *testEnv, owner, folderID string) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/quiz/" + folderID + "/live?access_token=" + env.token(t, owner)
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
