package quiz

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	PracticeTestsPerModule = 5
	FinalTestNumber        = 6
	QuestionsPerPractice   = 25
	QuestionsPerFinal      = 50

	PracticeDurationMin = 30
	FinalDurationMin    = 60
)

// Module is one topic's question bank, loaded from a single JSON file.
type Module struct {
	Key       string // filename without .json
	Name      string // display name from the mapping, or cleaned key
	Questions []Question
}

// Bank holds every question module, loaded once at startup and immutable
// afterwards. Module order is fixed by the Roman-numeral prefix sort so test
// ids stay stable across endpoints and restarts.
type Bank struct {
	modules []Module
	log     logrus.FieldLogger
}

// LoadModuleNames reads the module display-name mapping. A missing file is
// not fatal: modules fall back to cleaned filenames.
func LoadModuleNames(path string, log logrus.FieldLogger) map[string]string {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("module mapping unavailable, falling back to cleaned filenames")
		return map[string]string{}
	}
	names := map[string]string{}
	if err := json.Unmarshal(raw, &names); err != nil {
		log.WithError(err).Warn("module mapping unreadable, falling back to cleaned filenames")
		return map[string]string{}
	}
	return names
}

// LoadBank reads every module file under dir (excluded filenames skipped) and
// resolves display names through the mapping.
func LoadBank(dir string, names map[string]string, excluded []string, log logrus.FieldLogger) (*Bank, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read questions dir: %w", err)
	}
	skip := map[string]bool{}
	for _, f := range excluded {
		skip[f] = true
	}

	var filenames []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || skip[e.Name()] {
			continue
		}
		filenames = append(filenames, e.Name())
	}
	sort.SliceStable(filenames, func(i, j int) bool {
		vi, vj := sortableValue(filenames[i]), sortableValue(filenames[j])
		if vi != vj {
			return vi < vj
		}
		return filenames[i] < filenames[j]
	})

	b := &Bank{log: log}
	for _, fn := range filenames {
		raw, err := os.ReadFile(filepath.Join(dir, fn))
		if err != nil {
			return nil, fmt.Errorf("read module %s: %w", fn, err)
		}
		var questions []Question
		if err := json.Unmarshal(raw, &questions); err != nil {
			return nil, fmt.Errorf("parse module %s: %w", fn, err)
		}
		key := strings.TrimSuffix(fn, ".json")
		name, ok := names[key]
		if !ok {
			log.WithField("module", key).Warn("no display name mapped, using cleaned filename")
			name = cleanedName(key)
		}
		if len(questions) == 0 {
			log.WithField("module", key).Warn("module file contains no questions")
		}
		b.modules = append(b.modules, Module{Key: key, Name: name, Questions: questions})
	}
	return b, nil
}

// Modules returns the loaded modules in bank order.
func (b *Bank) Modules() []Module { return b.modules }

// TestID computes the public test id for a module index and test number:
// module 0 gets 101..106, module 1 gets 201..206, and so on.
func TestID(moduleIndex, testNumber int) int {
	return (moduleIndex+1)*100 + testNumber
}

// Sections lists every module with its generated practice and final tests,
// in dashboard shape.
func (b *Bank) Sections() []Section {
	sections := make([]Section, 0, len(b.modules))
	for mi, m := range b.modules {
		tests := make([]TestSummary, 0, PracticeTestsPerModule+1)
		for n := 1; n <= PracticeTestsPerModule; n++ {
			tests = append(tests, TestSummary{
				ID:          TestID(mi, n),
				Title:       fmt.Sprintf("Practice %d", n),
				TestType:    TestTypePractice,
				DurationMin: PracticeDurationMin,
			})
		}
		tests = append(tests, TestSummary{
			ID:          TestID(mi, FinalTestNumber),
			Title:       "Final Mock Test",
			TestType:    TestTypeFinal,
			DurationMin: FinalDurationMin,
		})
		sections = append(sections, Section{ID: m.Key, Title: m.Name, Tests: tests})
	}
	return sections
}

// moduleForTest resolves a test id to its module and test number.
func (b *Bank) moduleForTest(testID int) (Module, int, error) {
	moduleIndex := (testID - 101) / 100
	testNumber := testID % 100
	if testID < 101 || moduleIndex >= len(b.modules) {
		return Module{}, 0, ErrNotFound
	}
	if testNumber < 1 || testNumber > FinalTestNumber {
		return Module{}, 0, ErrNotFound
	}
	return b.modules[moduleIndex], testNumber, nil
}

// GetTest returns the authoritative question list for a test id, answer keys
// included. The set is deterministic per test id so scoring and review run
// against the same key regardless of presentation order.
func (b *Bank) GetTest(testID int) ([]Question, error) {
	m, testNumber, err := b.moduleForTest(testID)
	if err != nil {
		return nil, err
	}
	if testNumber == FinalTestNumber {
		return capQuestions(m.Questions, QuestionsPerFinal), nil
	}
	slice := practiceSlice(m.Questions, testNumber)
	return capQuestions(slice, QuestionsPerPractice), nil
}

// TestInfo returns the derived title, type, and duration for a test id.
func (b *Bank) TestInfo(testID int) (title, sectionTitle, testType string, durationMin int, err error) {
	m, testNumber, err := b.moduleForTest(testID)
	if err != nil {
		return "", "", "", 0, err
	}
	if testNumber == FinalTestNumber {
		return m.Name + " - Final Mock Test", m.Name, TestTypeFinal, FinalDurationMin, nil
	}
	return fmt.Sprintf("%s - Practice %d", m.Name, testNumber), m.Name, TestTypePractice, PracticeDurationMin, nil
}

// AssembleTest builds a client-facing test: the deterministic question set
// for the id, presentation order shuffled per call, answer keys stripped.
func (b *Bank) AssembleTest(testID int, rng *rand.Rand) (Test, error) {
	questions, err := b.GetTest(testID)
	if err != nil {
		return Test{}, err
	}
	title, moduleName, testType, duration, err := b.TestInfo(testID)
	if err != nil {
		return Test{}, err
	}

	shuffled := make([]Question, len(questions))
	copy(shuffled, questions)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i := range shuffled {
		shuffled[i].CorrectAnswer = ""
	}
	return Test{
		ID:          testID,
		Title:       title,
		TestType:    testType,
		DurationMin: duration,
		Module:      moduleName,
		Questions:   shuffled,
	}, nil
}

// practiceSlice is the testNumber-th contiguous chunk of the module bank:
// floor split across the five practice tests with the remainder spread over
// the earliest ones.
func practiceSlice(questions []Question, testNumber int) []Question {
	total := len(questions)
	base := total / PracticeTestsPerModule
	extra := total % PracticeTestsPerModule

	start := 0
	for i := 1; i < testNumber; i++ {
		start += base
		if i <= extra {
			start++
		}
	}
	count := base
	if testNumber <= extra {
		count++
	}
	end := start + count
	if end > total {
		end = total
	}
	return questions[start:end]
}

func capQuestions(questions []Question, max int) []Question {
	if len(questions) > max {
		questions = questions[:max]
	}
	out := make([]Question, len(questions))
	copy(out, questions)
	return out
}

var (
	romanPrefixRe = regexp.MustCompile(`(?i)^([IVXLCDM]+)[-_\s.]`)
	romanSubRe    = regexp.MustCompile(`(?i)^[IVXLCDM]+-([A-Z])`)
	xaPrefixRe    = regexp.MustCompile(`(?i)^X([A-Z])`)
	cleanPrefixRe = regexp.MustCompile(`^(?:[IVXLCDM]+[-_\s])?`)
)

var romanValues = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6, "VII": 7, "VIII": 8,
	"IX": 9, "X": 10, "XI": 11, "XII": 12, "XIII": 13, "XIV": 14, "XV": 15,
	"XVI": 16, "XVII": 17, "XVIII": 18, "XIX": 19, "XX": 20, "XXI": 21,
	"XXII": 22, "XXIII": 23,
}

// sortableValue orders module filenames by their Roman-numeral prefix, with
// lettered sub-parts after the base (II-A before II-B), XA/XB style prefixes
// after the plain numerals, and SEBI material last.
func sortableValue(filename string) int {
	if m := romanPrefixRe.FindStringSubmatch(filename); m != nil {
		if base, ok := romanValues[strings.ToUpper(m[1])]; ok {
			value := base * 10
			if sub := romanSubRe.FindStringSubmatch(filename); sub != nil {
				value += int(strings.ToUpper(sub[1])[0] - 'A')
			}
			return value
		}
	}
	if m := xaPrefixRe.FindStringSubmatch(filename); m != nil {
		return 100 + int(strings.ToUpper(m[1])[0]-'A')
	}
	if strings.HasPrefix(strings.ToUpper(filename), "SEBI") {
		return 1000
	}
	return math.MaxInt32
}

// cleanedName is the fallback display name: separators to spaces, leading
// Roman prefix dropped.
func cleanedName(key string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(key)
	s = cleanPrefixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
