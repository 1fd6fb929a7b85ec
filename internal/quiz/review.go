package quiz

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// attemptProbability is the simulated chance that a question was answered at
// all; the remainder render as "not answered" in the review.
const attemptProbability = 0.98

// Reconstructor fabricates a per-question answer trace from an aggregate
// score. True per-question answers are never stored, so the review screen
// shows a plausible reconstruction, never historical fact. It must not feed
// back into scoring.
type Reconstructor struct {
	rng *rand.Rand
	log logrus.FieldLogger
}

// NewReconstructor builds a reconstructor around the given random source.
// Callers wanting reproducible output pass a seeded source.
func NewReconstructor(rng *rand.Rand, log logrus.FieldLogger) *Reconstructor {
	return &Reconstructor{rng: rng, log: log}
}

// Reconstruct synthesizes selections for the presented subset of questions
// such that the number marked correct equals round(targetScore/100 *
// presentedCount) exactly. Output follows the authoritative question order;
// questions outside the presented subset are dropped.
func (rc *Reconstructor) Reconstruct(questions []Question, targetScore, presentedCount int) []ReviewQuestion {
	if len(questions) == 0 || presentedCount <= 0 {
		return []ReviewQuestion{}
	}
	if presentedCount != len(questions) {
		rc.log.WithFields(logrus.Fields{
			"presented": presentedCount,
			"bank":      len(questions),
		}).Warn("presented count differs from question bank size")
	}

	targetCorrect := int(math.Round(float64(targetScore) / 100 * float64(presentedCount)))

	shuffled := make([]Question, len(questions))
	copy(shuffled, questions)
	rc.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	take := presentedCount
	if take > len(shuffled) {
		take = len(shuffled)
	}
	presented := shuffled[:take]

	entries := make([]ReviewQuestion, take)
	correctSoFar := 0
	for i, q := range presented {
		e := ReviewQuestion{Question: q}
		if rc.rng.Float64() < attemptProbability {
			remaining := presentedCount - i
			needed := targetCorrect - correctSoFar
			pCorrect := clamp01(float64(needed) / float64(remaining))
			if rc.rng.Float64() < pCorrect && correctSoFar < targetCorrect {
				sel := q.CorrectAnswer
				e.SelectedOption = &sel
				e.IsCorrect = true
				correctSoFar++
			} else {
				sel := rc.randomIncorrectOption(q)
				e.SelectedOption = &sel
			}
		}
		entries[i] = e
	}

	deviation := targetCorrect - correctSoFar
	if deviation > 0 {
		// Flip answered-incorrect entries first, then unanswered ones, so the
		// aggregate matches the target exactly.
		for i := range entries {
			if deviation == 0 {
				break
			}
			if !entries[i].IsCorrect && entries[i].SelectedOption != nil {
				sel := entries[i].CorrectAnswer
				entries[i].SelectedOption = &sel
				entries[i].IsCorrect = true
				deviation--
			}
		}
		for i := range entries {
			if deviation == 0 {
				break
			}
			if !entries[i].IsCorrect {
				sel := entries[i].CorrectAnswer
				entries[i].SelectedOption = &sel
				entries[i].IsCorrect = true
				deviation--
			}
		}
	} else if deviation < 0 {
		for i := range entries {
			if deviation == 0 {
				break
			}
			if entries[i].IsCorrect {
				sel := rc.randomIncorrectOption(entries[i].Question)
				entries[i].SelectedOption = &sel
				entries[i].IsCorrect = false
				deviation++
			}
		}
	}

	byID := make(map[int]ReviewQuestion, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	out := make([]ReviewQuestion, 0, len(entries))
	for _, q := range questions {
		if e, ok := byID[q.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (rc *Reconstructor) randomIncorrectOption(q Question) string {
	incorrect := make([]Option, 0, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID != q.CorrectAnswer {
			incorrect = append(incorrect, opt)
		}
	}
	if len(incorrect) > 0 {
		return incorrect[rc.rng.Intn(len(incorrect))].ID
	}
	if len(q.Options) > 0 {
		return q.Options[0].ID
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
