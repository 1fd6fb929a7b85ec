package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/passexam/passexam/internal/store"
)

type fakeHistory struct {
	records []store.ResultRecord
}

func (f *fakeHistory) Append(_ context.Context, r store.ResultRecord) (store.ResultRecord, error) {
	r.ID = len(f.records) + 1
	f.records = append(f.records, r)
	return r, nil
}

func (f *fakeHistory) ListByUser(_ context.Context, userID int) ([]store.ResultRecord, error) {
	var out []store.ResultRecord
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestScorer(t *testing.T, questions []Question) (*Scorer, *fakeHistory) {
	t.Helper()
	bank := testBank(t, Module{Key: "m", Name: "Markets", Questions: questions})
	history := &fakeHistory{}
	s := NewScorer(bank, history, testLogger())
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s, history
}

func TestSubmitAllCorrect(t *testing.T) {
	s, _ := newTestScorer(t, makeQuestions(10))

	answers := map[int]*string{}
	for i := 1; i <= 10; i++ {
		sel := "a"
		answers[i] = &sel
	}
	sum, err := s.Submit(context.Background(), 1, 106, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sum.Score != 100 || sum.CorrectAnswers != 10 || sum.IncorrectAnswers != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestSubmitNoAnswers(t *testing.T) {
	s, history := newTestScorer(t, makeQuestions(10))

	sum, err := s.Submit(context.Background(), 1, 106, map[int]*string{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sum.Score != 0 || sum.CorrectAnswers != 0 || sum.IncorrectAnswers != 10 {
		t.Errorf("summary = %+v", sum)
	}
	if len(history.records) != 1 {
		t.Fatalf("got %d history records, want 1", len(history.records))
	}
}

func TestSubmitNilAnswersRejected(t *testing.T) {
	s, history := newTestScorer(t, makeQuestions(10))

	if _, err := s.Submit(context.Background(), 1, 106, nil); err != ErrInvalidInput {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(history.records) != 0 {
		t.Error("invalid submission must not be persisted")
	}
}

func TestSubmitUnknownTest(t *testing.T) {
	s, _ := newTestScorer(t, makeQuestions(10))

	if _, err := s.Submit(context.Background(), 1, 999, map[int]*string{}); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSubmitMixedAnswers(t *testing.T) {
	// Three questions: one correct, one wrong, one explicitly unanswered.
	questions := makeQuestions(15)
	s, history := newTestScorer(t, questions)

	right, wrong := "a", "b"
	answers := map[int]*string{
		1: &right,
		2: &wrong,
		3: nil,
	}
	sum, err := s.Submit(context.Background(), 7, 101, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Practice 1 of a 15-question module holds questions 1..3.
	if sum.TotalQuestions != 3 {
		t.Fatalf("total = %d, want 3", sum.TotalQuestions)
	}
	if sum.CorrectAnswers != 1 {
		t.Errorf("correct = %d, want 1", sum.CorrectAnswers)
	}
	if sum.Score != 33 {
		t.Errorf("score = %d, want 33", sum.Score)
	}
	if sum.CorrectAnswers+sum.IncorrectAnswers != sum.TotalQuestions {
		t.Error("correct + incorrect must equal total")
	}

	rec := history.records[0]
	if rec.UserID != 7 || rec.TestID != 101 || rec.Score != 33 {
		t.Errorf("record = %+v", rec)
	}
	if rec.TestName != "Markets - Practice 1" || rec.TestType != TestTypePractice {
		t.Errorf("record naming = %q / %q", rec.TestName, rec.TestType)
	}
	if rec.SubmittedAt.IsZero() {
		t.Error("record missing submission time")
	}
}

func TestSubmitResubmissionAppends(t *testing.T) {
	s, history := newTestScorer(t, makeQuestions(10))

	for i := 0; i < 3; i++ {
		if _, err := s.Submit(context.Background(), 1, 106, map[int]*string{}); err != nil {
			t.Fatalf("Submit #%d: %v", i+1, err)
		}
	}
	if len(history.records) != 3 {
		t.Fatalf("got %d records, want 3", len(history.records))
	}
	seen := map[int]bool{}
	for _, r := range history.records {
		if seen[r.ID] {
			t.Fatalf("duplicate record id %d", r.ID)
		}
		seen[r.ID] = true
	}
}
