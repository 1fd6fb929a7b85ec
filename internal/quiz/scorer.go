package quiz

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/passexam/passexam/internal/store"
)

// Scorer grades a submitted answer set against the bank's answer key and
// appends one history record per submission. Scoring is deterministic;
// resubmitting a test produces a new, independent record.
type Scorer struct {
	bank    *Bank
	history store.HistoryStore
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewScorer(bank *Bank, history store.HistoryStore, log logrus.FieldLogger) *Scorer {
	return &Scorer{bank: bank, history: history, log: log, now: time.Now}
}

// Submit scores answers (question id -> selected option id, nil meaning
// unanswered) for testID and persists the result for userID.
//
// A question counts as correct only when a selection is present, non-nil,
// and string-equal to the correct option id.
func (s *Scorer) Submit(ctx context.Context, userID, testID int, answers map[int]*string) (Summary, error) {
	if answers == nil {
		return Summary{}, ErrInvalidInput
	}
	questions, err := s.bank.GetTest(testID)
	if err != nil {
		return Summary{}, err
	}

	correct := 0
	for _, q := range questions {
		sel, ok := answers[q.ID]
		if !ok || sel == nil {
			continue
		}
		if *sel == q.CorrectAnswer {
			correct++
		}
	}
	total := len(questions)
	score := 0
	if total > 0 {
		score = int(math.Round(100 * float64(correct) / float64(total)))
	}

	title, sectionTitle, testType, _, err := s.bank.TestInfo(testID)
	if err != nil {
		return Summary{}, err
	}
	record := store.ResultRecord{
		UserID:         userID,
		TestID:         testID,
		TestName:       title,
		SectionTitle:   sectionTitle,
		TestType:       testType,
		Score:          score,
		CorrectCount:   correct,
		TotalQuestions: total,
		SubmittedAt:    s.now(),
	}
	if _, err := s.history.Append(ctx, record); err != nil {
		return Summary{}, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"test_id": testID,
		"score":   score,
	}).Info("test submitted")

	return Summary{
		Score:            score,
		CorrectAnswers:   correct,
		IncorrectAnswers: total - correct,
		TotalQuestions:   total,
	}, nil
}
