package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mindvault/internal/app"
	"mindvault/internal/domain"
	"mindvault/internal/infra/memory"
)

type testEnv struct {
	server   *httptest.Server
	auth     *Authenticator
	folders  *app.FolderService
	concepts *app.ConceptService
	quiz     *app.QuizService
	images   *fakeImages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	quizzes := memory.NewQuizRepository(app.NewAssembler(store), time.Minute)
	attempts := memory.NewAttemptStore()
	images := &fakeImages{objects: map[string][]byte{}}

	env := &testEnv{
		auth:     NewAuthenticator("test-secret", "mindvault", time.Hour),
		folders:  app.NewFolderService(store, store, store, quizzes, attempts),
		concepts: app.NewConceptService(store, store, quizzes, fakeGenerator{}, fakeOCR{text: "ocr text"}, images),
		quiz:     app.NewQuizService(quizzes, store, attempts),
		images:   images,
	}
	env.server = httptest.NewServer(NewRouter(Deps{
		Folders:     env.folders,
		Concepts:    env.concepts,
		Quiz:        env.quiz,
		Auth:        env.auth,
		CORSOrigins: []string{"http://localhost:3000"},
	}))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) token(t *testing.T, sub string) string {
	t.Helper()
	tok, err := e.auth.Issue(sub)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, sub, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sub != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, sub))
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, name, _ string) domain.GeneratedQuestion {
	return domain.GeneratedQuestion{
		Question: domain.Question{
			QuestionText: "Which statement describes " + name + "?",
			Options:      []string{"right", "wrong", "also wrong", "still wrong"},
			Answer:       "A",
		},
		Source: domain.SourceGenerated,
	}
}

type fakeOCR struct{ text string }

func (f fakeOCR) ExtractText(context.Context, string) domain.Extraction {
	return domain.Extraction{Text: f.text}
}

type fakeImages struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeImages) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "http://images.test/" + key, nil
}

func (f *fakeImages) KeyOf(url string) (string, bool) {
	return strings.CutPrefix(url, "http://images.test/")
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}
