package http

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
)

func newAdminTestServer(t *testing.T, questions []domain.Question) (*httptest.Server, *app.GameService) {
	t.Helper()
	bank := memory.NewQuestionBank(questions)
	service := app.NewGameServiceWithClock(
		memory.NewRoomStore(),
		bank,
		NewHub(),
		"secret",
		clockwork.NewFakeClock(),
		rand.New(rand.NewSource(1)),
	)
	handler := NewAdminHandler(service, bank)

	mux := http.NewServeMux()
	handler.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func adminDo(t *testing.T, method, url, password string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if password != "" {
		req.Header.Set("X-Admin-Password", password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestAdminLogin(t *testing.T) {
	server, _ := newAdminTestServer(t, nil)

	resp := adminDo(t, http.MethodPost, server.URL+"/api/admin/login", "", map[string]string{"password": "secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = adminDo(t, http.MethodPost, server.URL+"/api/admin/login", "", map[string]string{"password": "nope"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminEndpointsRequirePassword(t *testing.T) {
	server, _ := newAdminTestServer(t, nil)

	resp := adminDo(t, http.MethodGet, server.URL+"/api/admin/questions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", resp.StatusCode)
	}
	resp = adminDo(t, http.MethodGet, server.URL+"/api/admin/questions", "wrong", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad password, got %d", resp.StatusCode)
	}
}

func TestAdminQuestionCRUD(t *testing.T) {
	server, _ := newAdminTestServer(t, nil)
	base := server.URL + "/api/admin/questions"

	resp := adminDo(t, http.MethodPost, base, "secret", map[string]string{
		"type": "text", "content": "a statement", "correctAnswer": "REAL",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", resp.StatusCode)
	}
	created := decodeBody[domain.Question](t, resp)
	if created.ID == "" || created.CorrectAnswer != domain.AnswerReal {
		t.Fatalf("unexpected created question: %+v", created)
	}

	resp = adminDo(t, http.MethodGet, base, "secret", nil)
	listed := decodeBody[[]domain.Question](t, resp)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	resp = adminDo(t, http.MethodPut, base+"/"+created.ID, "secret", map[string]string{
		"type": "image", "content": "a picture", "imageUrl": "https://example.com/x.png", "correctAnswer": "AI",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	updated := decodeBody[domain.Question](t, resp)
	if updated.Type != domain.QuestionTypeImage || updated.CorrectAnswer != domain.AnswerAI {
		t.Fatalf("unexpected update: %+v", updated)
	}

	resp = adminDo(t, http.MethodPut, base+"/missing", "secret", map[string]string{
		"type": "text", "content": "x", "correctAnswer": "REAL",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update missing: expected 404, got %d", resp.StatusCode)
	}

	resp = adminDo(t, http.MethodDelete, base+"/"+created.ID, "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp = adminDo(t, http.MethodGet, base, "secret", nil)
	if remaining := decodeBody[[]domain.Question](t, resp); len(remaining) != 0 {
		t.Fatalf("expected empty bank, got %+v", remaining)
	}
}

func TestAdminCreateQuestionValidation(t *testing.T) {
	server, _ := newAdminTestServer(t, nil)
	base := server.URL + "/api/admin/questions"

	cases := []map[string]string{
		{"type": "audio", "content": "x", "correctAnswer": "REAL"},
		{"type": "text", "content": "", "correctAnswer": "REAL"},
		{"type": "text", "content": "x", "correctAnswer": "MAYBE"},
	}
	for _, body := range cases {
		resp := adminDo(t, http.MethodPost, base, "secret", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %+v: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestAdminRoomListAndDelete(t *testing.T) {
	server, service := newAdminTestServer(t, nil)
	ctx := context.Background()

	room, err := service.CreateRoom(ctx, "secret", "mod")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	resp := adminDo(t, http.MethodGet, server.URL+"/api/admin/rooms", "secret", nil)
	rooms := decodeBody[[]domain.Room](t, resp)
	if len(rooms) != 1 || rooms[0].Code != room.Code {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}

	resp = adminDo(t, http.MethodDelete, server.URL+"/api/admin/rooms/"+room.Code, "secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete room: expected 200, got %d", resp.StatusCode)
	}

	resp = adminDo(t, http.MethodGet, server.URL+"/api/admin/rooms", "secret", nil)
	if rooms := decodeBody[[]domain.Room](t, resp); len(rooms) != 0 {
		t.Fatalf("expected no rooms after delete, got %+v", rooms)
	}
}
