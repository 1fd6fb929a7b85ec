package http

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/passexam/passexam/internal/auth"
	"github.com/passexam/passexam/internal/quiz"
)

// GET /api/dashboard
func DashboardHandler(bank *quiz.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"sections": bank.Sections()})
	}
}

// GET /api/quiz/{testID}
func GetQuizHandler(bank *quiz.Bank) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := strconv.Atoi(chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "valid test id is required")
			return
		}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		test, err := bank.AssembleTest(testID, rng)
		if err != nil {
			if errors.Is(err, quiz.ErrNotFound) {
				writeError(w, http.StatusNotFound, "test not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, test)
	}
}

type submitReq struct {
	TestID  int                    `json:"test_id"`
	Answers []quiz.SubmittedAnswer `json:"answers"`
}

// POST /api/quiz/submit
func SubmitQuizHandler(scorer *quiz.Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := auth.SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		var req submitReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.TestID == 0 || req.Answers == nil {
			writeError(w, http.StatusBadRequest, "test_id and answers are required")
			return
		}

		answers := make(map[int]*string, len(req.Answers))
		for _, a := range req.Answers {
			answers[a.QuestionID] = a.SelectedOption
		}
		summary, err := scorer.Submit(r.Context(), sess.UserID, req.TestID, answers)
		if err != nil {
			switch {
			case errors.Is(err, quiz.ErrNotFound):
				writeError(w, http.StatusNotFound, "test not found")
			case errors.Is(err, quiz.ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "missing or invalid submission")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

type reviewResponse struct {
	TestID           int                   `json:"test_id"`
	TestTitle        string                `json:"test_title"`
	Score            int                   `json:"score"`
	CorrectAnswers   int                   `json:"correct_answers"`
	IncorrectAnswers int                   `json:"incorrect_answers"`
	TotalQuestions   int                   `json:"total_questions"`
	Questions        []quiz.ReviewQuestion `json:"questions"`
}

// GET /api/review/{testID}?score=&correct=&incorrect=&total=
//
// The per-question breakdown is fabricated from the aggregate score; the
// platform never stores which option a user actually picked.
func ReviewHandler(bank *quiz.Bank, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID, err := strconv.Atoi(chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "valid test id is required")
			return
		}
		q := r.URL.Query()
		score, err1 := strconv.Atoi(q.Get("score"))
		correct, err2 := strconv.Atoi(q.Get("correct"))
		incorrect, err3 := strconv.Atoi(q.Get("incorrect"))
		total, err4 := strconv.Atoi(q.Get("total"))
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			writeError(w, http.StatusBadRequest, "score, correct, incorrect and total are required")
			return
		}

		questions, err := bank.GetTest(testID)
		if err != nil {
			if errors.Is(err, quiz.ErrNotFound) {
				writeError(w, http.StatusNotFound, "test not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		title, _, _, _, err := bank.TestInfo(testID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		rc := quiz.NewReconstructor(rng, log)
		writeJSON(w, http.StatusOK, reviewResponse{
			TestID:           testID,
			TestTitle:        title + " Review",
			Score:            score,
			CorrectAnswers:   correct,
			IncorrectAnswers: incorrect,
			TotalQuestions:   total,
			Questions:        rc.Reconstruct(questions, score, total),
		})
	}
}
