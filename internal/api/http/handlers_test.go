package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	api "github.com/passexam/passexam/internal/api/http"
	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/quiz"
	"github.com/passexam/passexam/internal/store"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// writeModuleFile drops a module of n questions (correct option always "a")
// into dir and returns its key.
func writeModuleFile(t *testing.T, dir, filename string, n int) {
	t.Helper()
	questions := make([]map[string]interface{}, n)
	for i := range questions {
		questions[i] = map[string]interface{}{
			"id":       i + 1,
			"question": fmt.Sprintf("question %d", i+1),
			"options": []map[string]string{
				{"id": "a", "text": "A"},
				{"id": "b", "text": "B"},
				{"id": "c", "text": "C"},
				{"id": "d", "text": "D"},
			},
			"correct_answer": "a",
		}
	}
	raw, err := json.Marshal(questions)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), raw, 0o644))
}

func testEnv(t *testing.T) (*quiz.Bank, *store.JSONFileStore, *auth.Service) {
	t.Helper()
	questionsDir := t.TempDir()
	writeModuleFile(t, questionsDir, "I_markets.json", 30)

	bank, err := quiz.LoadBank(questionsDir, map[string]string{"I_markets": "Markets"}, nil, testLogger())
	require.NoError(t, err)

	dataDir := t.TempDir()
	st, err := store.NewJSONFileStore(
		filepath.Join(dataDir, "users.json"),
		filepath.Join(dataDir, "history.json"),
	)
	require.NoError(t, err)

	return bank, st, auth.NewService("test-secret", time.Hour)
}

func testRouter(bank *quiz.Bank, st *store.JSONFileStore, sessions *auth.Service) http.Handler {
	log := testLogger()
	scorer := quiz.NewScorer(bank, st, log)

	r := chi.NewRouter()
	r.Post("/api/register", api.RegisterHandler(st, 4))
	r.Post("/api/login", api.LoginHandler(st, sessions))
	r.Post("/api/logout", api.LogoutHandler())
	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(sessions))
		pr.Get("/api/session", api.SessionHandler(st))
		pr.Get("/api/dashboard", api.DashboardHandler(bank))
		pr.Get("/api/quiz/{testID}", api.GetQuizHandler(bank))
		pr.Post("/api/quiz/submit", api.SubmitQuizHandler(scorer))
		pr.Get("/api/review/{testID}", api.ReviewHandler(bank, log))
		pr.Get("/api/history", api.HistoryHandler(st))
		pr.Get("/api/history/export", api.ExportHistoryHandler(st))
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, h http.Handler) []*http.Cookie {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/register", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, "POST", "/api/login", map[string]string{
		"email":    "asha@example.com",
		"password": "secret123",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestRegisterValidation(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing email", map[string]string{"name": "A", "password": "secret123"}, http.StatusBadRequest},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "secret123"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "abc"}, http.StatusBadRequest},
		{"ok", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123"}, http.StatusCreated},
		{"duplicate", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123"}, http.StatusConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doJSON(t, h, "POST", "/api/register", c.body, nil)
			require.Equal(t, c.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterNeverEchoesPassword(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)

	rec := doJSON(t, h, "POST", "/api/register", map[string]string{
		"name": "A", "email": "a@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "secret123")
}

func TestLoginWrongPassword(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	registerAndLogin(t, h)

	rec := doJSON(t, h, "POST", "/api/login", map[string]string{
		"email": "asha@example.com", "password": "wrong-pass",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, "POST", "/api/login", map[string]string{
		"email": "nobody@example.com", "password": "secret123",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)

	for _, path := range []string{"/api/session", "/api/dashboard", "/api/quiz/101", "/api/history"} {
		rec := doJSON(t, h, "GET", path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	bad := []*http.Cookie{{Name: auth.SessionCookie, Value: "forged-token"}}
	rec := doJSON(t, h, "GET", "/api/dashboard", nil, bad)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionEndpoint(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "GET", "/api/session", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var u store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	require.Equal(t, "asha@example.com", u.Email)
	require.Empty(t, u.PasswordHash)
}

func TestDashboardShape(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "GET", "/api/dashboard", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Sections []quiz.Section `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sections, 1)
	require.Equal(t, "Markets", body.Sections[0].Title)
	require.Len(t, body.Sections[0].Tests, 6)
}

func TestQuizFetchStripsAnswers(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "GET", "/api/quiz/106", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var test quiz.Test
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &test))
	require.Equal(t, 106, test.ID)
	require.Len(t, test.Questions, 30)
	require.NotContains(t, rec.Body.String(), "correct_answer")

	rec = doJSON(t, h, "GET", "/api/quiz/999", nil, cookies)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, "GET", "/api/quiz/abc", nil, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndHistoryFlow(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	sel := "a"
	answers := make([]quiz.SubmittedAnswer, 30)
	for i := range answers {
		answers[i] = quiz.SubmittedAnswer{QuestionID: i + 1, SelectedOption: &sel}
	}
	rec := doJSON(t, h, "POST", "/api/quiz/submit", map[string]interface{}{
		"test_id": 106,
		"answers": answers,
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sum quiz.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	require.Equal(t, 100, sum.Score)
	require.Equal(t, 30, sum.TotalQuestions)

	rec = doJSON(t, h, "GET", "/api/history", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []store.ResultRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, 106, records[0].TestID)
	require.Equal(t, 100, records[0].Score)
	require.Equal(t, "Markets - Final Mock Test", records[0].TestName)
}

func TestSubmitValidation(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "POST", "/api/quiz/submit", map[string]interface{}{
		"answers": []quiz.SubmittedAnswer{},
	}, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/quiz/submit", map[string]interface{}{
		"test_id": 106,
	}, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "POST", "/api/quiz/submit", map[string]interface{}{
		"test_id": 999,
		"answers": []quiz.SubmittedAnswer{},
	}, cookies)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewEndpoint(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "GET", "/api/review/106?score=80&correct=24&incorrect=6&total=30", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		TestTitle string                `json:"test_title"`
		Score     int                   `json:"score"`
		Questions []quiz.ReviewQuestion `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Markets - Final Mock Test Review", body.TestTitle)
	require.Equal(t, 80, body.Score)
	require.Len(t, body.Questions, 30)

	marked := 0
	for _, q := range body.Questions {
		if q.IsCorrect {
			marked++
		}
	}
	require.Equal(t, 24, marked)

	rec = doJSON(t, h, "GET", "/api/review/106?score=80", nil, cookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "GET", "/api/review/999?score=80&correct=24&incorrect=6&total=30", nil, cookies)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryExport(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)
	cookies := registerAndLogin(t, h)

	rec := doJSON(t, h, "POST", "/api/quiz/submit", map[string]interface{}{
		"test_id": 101,
		"answers": []quiz.SubmittedAnswer{},
	}, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/api/history/export", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "test-history.xlsx")
	require.NotZero(t, rec.Body.Len())
}

func TestLogoutClearsCookie(t *testing.T) {
	bank, st, sessions := testEnv(t)
	h := testRouter(bank, st, sessions)

	rec := doJSON(t, h, "POST", "/api/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared, "logout must expire the session cookie")
}
