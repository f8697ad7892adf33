package exam

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TypeTrueFalse      QuestionType = "TRUE_FALSE"
	TypeShortAnswer    QuestionType = "SHORT_ANSWER"
	TypeNumeric        QuestionType = "NUMERIC"
	TypeEssay          QuestionType = "ESSAY"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrNotEditable      = errors.New("exam is no longer editable")
	ErrInvalidExam      = errors.New("invalid exam")
	ErrInvalidQuestion  = errors.New("invalid question")
)

type Exam struct {
	ID          string `json:"id"`
	SchoolID    string `json:"school_id,omitempty"`
	ClassID     string `json:"class_id"`
	SubjectID   string `json:"subject_id"`
	TeacherID   string `json:"teacher_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	DurationMin  int       `json:"duration_min"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	MaxAttempts  int       `json:"max_attempts"`
	PassingScore int       `json:"passing_score"` // percentage, 0-100
	Status       Status    `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Exam) Duration() time.Duration { return time.Duration(e.DurationMin) * time.Minute }

// Attemptable reports whether students may start sessions (window checks aside).
func (e Exam) Attemptable() bool {
	return e.Status == StatusPublished || e.Status == StatusOngoing
}

// Validate checks the exam's own invariants.
func (e Exam) Validate() error {
	var problems []string
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if e.ClassID == "" || e.SubjectID == "" || e.TeacherID == "" {
		problems = append(problems, "class, subject and teacher are required")
	}
	if e.DurationMin <= 0 {
		problems = append(problems, "duration must be positive")
	}
	if !e.StartTime.Before(e.EndTime) {
		problems = append(problems, "start time must be before end time")
	}
	if e.MaxAttempts < 1 {
		problems = append(problems, "max attempts must be at least 1")
	}
	if e.PassingScore < 0 || e.PassingScore > 100 {
		problems = append(problems, "passing score must be between 0 and 100")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidExam, strings.Join(problems, "; "))
	}
	return nil
}

type Option struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID          string       `json:"id"`
	ExamID      string       `json:"exam_id"`
	Order       int          `json:"order"`
	Type        QuestionType `json:"type"`
	Content     string       `json:"content"`
	Points      float64      `json:"points"`
	Explanation string       `json:"explanation,omitempty"`
	Options     []Option     `json:"options,omitempty"`
}

// CorrectOptions returns the options flagged as correct, in order.
func (q Question) CorrectOptions() []Option {
	var out []Option
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o)
		}
	}
	return out
}

// Redacted strips the scoring key and explanation for student delivery.
func (q Question) Redacted() Question {
	out := q
	out.Explanation = ""
	out.Options = make([]Option, len(q.Options))
	for i, o := range q.Options {
		out.Options[i] = Option{Content: o.Content}
	}
	return out
}

// Validate checks shape only; type-specific rules live with the scoring strategies.
func (q Question) Validate() error {
	switch {
	case q.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidQuestion)
	case strings.TrimSpace(q.Content) == "":
		return fmt.Errorf("%w: content is required", ErrInvalidQuestion)
	case q.Points <= 0:
		return fmt.Errorf("%w: points must be positive", ErrInvalidQuestion)
	}
	return nil
}

// MaxScore is the sum of points across the question set.
func MaxScore(qs []Question) float64 {
	total := 0.0
	for _, q := range qs {
		total += q.Points
	}
	return total
}
