package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mind-engage/examengine/internal/exam"
)

var (
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	ErrInvalidKey              = errors.New("invalid scoring key")
)

// Strategy scores one question type.
type Strategy interface {
	// Validate checks the question's scoring key; called at publish time.
	Validate(q exam.Question) error
	// Correct judges a non-empty answer against the key.
	Correct(q exam.Question, answer string) bool
	// Redact returns the question as a student may see it.
	Redact(q exam.Question) exam.Question
}

// Item is the outcome for a single question.
type Item struct {
	QuestionID string  `json:"question_id"`
	Points     float64 `json:"points"`
	Earned     float64 `json:"earned"`
	Answered   bool    `json:"answered"`
	Correct    bool    `json:"correct"`
}

type Result struct {
	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage int     `json:"percentage"`
	Passed     bool    `json:"passed"`
	Items      []Item  `json:"items,omitempty"`
}

// Grader routes by question type to the registered Strategy.
type Grader struct {
	strategies map[exam.QuestionType]Strategy
}

type Option func(*config)

type config struct {
	MaxEditDistance int // SHORT_ANSWER fuzzy tolerance; 0 = exact after normalization
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }

// NewDefaultGrader installs the built-in strategies. ESSAY deliberately has none.
func NewDefaultGrader(opts ...Option) *Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &Grader{
		strategies: map[exam.QuestionType]Strategy{
			exam.TypeMultipleChoice: choiceStrategy{minOptions: 2},
			exam.TypeTrueFalse:      choiceStrategy{minOptions: 2, maxOptions: 2},
			exam.TypeShortAnswer:    shortAnswerStrategy{maxEdit: cfg.MaxEditDistance},
			exam.TypeNumeric:        numericStrategy{},
		},
	}
}

// Register installs or replaces the strategy for a type.
func (g *Grader) Register(t exam.QuestionType, s Strategy) {
	g.strategies[t] = s
}

// Validate rejects questions whose type has no strategy or whose key is malformed.
func (g *Grader) Validate(q exam.Question) error {
	s, ok := g.strategies[q.Type]
	if !ok {
		return fmt.Errorf("%w: %q (question %d)", ErrUnsupportedQuestionType, q.Type, q.Order)
	}
	if err := s.Validate(q); err != nil {
		return fmt.Errorf("question %d: %w", q.Order, err)
	}
	return nil
}

// Redact strips whatever part of q reveals its key. Types without a strategy
// lose their options entirely.
func (g *Grader) Redact(q exam.Question) exam.Question {
	if s, ok := g.strategies[q.Type]; ok {
		return s.Redact(q)
	}
	return withoutOptions(q)
}

// Score is a pure function of (exam, questions, answers); answers maps
// question id to the student's raw answer. Questions without an answer score 0.
func (g *Grader) Score(ex exam.Exam, qs []exam.Question, answers map[string]string) (Result, error) {
	res := Result{MaxScore: exam.MaxScore(qs), Items: make([]Item, 0, len(qs))}
	for _, q := range qs {
		s, ok := g.strategies[q.Type]
		if !ok {
			return Result{}, fmt.Errorf("%w: %q (question %d)", ErrUnsupportedQuestionType, q.Type, q.Order)
		}
		it := Item{QuestionID: q.ID, Points: q.Points}
		if a, has := answers[q.ID]; has && strings.TrimSpace(a) != "" {
			it.Answered = true
			if s.Correct(q, a) {
				it.Correct = true
				it.Earned = q.Points
				res.Score += q.Points
			}
		}
		res.Items = append(res.Items, it)
	}
	res.Percentage = Percentage(res.Score, res.MaxScore)
	res.Passed = res.Percentage >= ex.PassingScore
	return res, nil
}

// Percentage rounds 100*score/max half-up; 0 when max is not positive.
func Percentage(score, max float64) int {
	if max <= 0 {
		return 0
	}
	return int(math.Floor(100*score/max + 0.5))
}

// --- Strategies ---

// choiceStrategy: correct iff the answer equals the content of the single correct option.
type choiceStrategy struct {
	minOptions int
	maxOptions int // 0 = unbounded
}

func (s choiceStrategy) Validate(q exam.Question) error {
	n := len(q.Options)
	if n < s.minOptions || (s.maxOptions > 0 && n > s.maxOptions) {
		return fmt.Errorf("%w: %s needs %d..%d options, has %d", ErrInvalidKey, q.Type, s.minOptions, s.maxOptions, n)
	}
	seen := make(map[string]struct{}, n)
	for _, o := range q.Options {
		if strings.TrimSpace(o.Content) == "" {
			return fmt.Errorf("%w: empty option", ErrInvalidKey)
		}
		if _, dup := seen[o.Content]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidKey, o.Content)
		}
		seen[o.Content] = struct{}{}
	}
	if c := len(q.CorrectOptions()); c != 1 {
		return fmt.Errorf("%w: exactly one correct option required, found %d", ErrInvalidKey, c)
	}
	return nil
}

// Choice options are the prompt, so only the flags are hidden.
func (choiceStrategy) Redact(q exam.Question) exam.Question { return q.Redacted() }

func (choiceStrategy) Correct(q exam.Question, answer string) bool {
	for _, o := range q.Options {
		if o.IsCorrect {
			return answer == o.Content
		}
	}
	return false
}

// shortAnswerStrategy accepts any correct option after normalization,
// optionally within maxEdit edits.
type shortAnswerStrategy struct{ maxEdit int }

func (shortAnswerStrategy) Validate(q exam.Question) error {
	for _, o := range q.CorrectOptions() {
		if normalize(o.Content) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: at least one non-empty accepted answer required", ErrInvalidKey)
}

// Accepted answers are the key itself.
func (shortAnswerStrategy) Redact(q exam.Question) exam.Question { return withoutOptions(q) }

func (s shortAnswerStrategy) Correct(q exam.Question, answer string) bool {
	got := normalize(answer)
	for _, o := range q.CorrectOptions() {
		want := normalize(o.Content)
		if want == "" {
			continue
		}
		if want == got || (s.maxEdit > 0 && levenshtein(want, got) <= s.maxEdit) {
			return true
		}
	}
	return false
}

func withoutOptions(q exam.Question) exam.Question {
	out := q.Redacted()
	out.Options = nil
	return out
}
