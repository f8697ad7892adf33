package session

import (
	"errors"
	"time"

	"github.com/mind-engage/examengine/internal/exam"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusSubmitted  Status = "SUBMITTED"
)

// ReconcileStatus tracks the ledger write that follows a submit.
type ReconcileStatus string

const (
	ReconcileNone    ReconcileStatus = ""
	ReconcilePending ReconcileStatus = "pending"
	ReconcileOK      ReconcileStatus = "ok"
	ReconcileFailed  ReconcileStatus = "failed"
)

var (
	ErrNotStarted         = errors.New("the exam has not started yet")
	ErrWindowClosed       = errors.New("the exam window has closed")
	ErrAttemptsExhausted  = errors.New("you have used all attempts for this exam")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotAuthorized      = errors.New("submission belongs to another student")
	ErrSubmissionClosed   = errors.New("submission is closed; answers can no longer be changed")
	ErrAlreadySubmitted   = errors.New("submission was already submitted")
	ErrQuestionNotInExam  = errors.New("question is not part of this exam")
)

type Submission struct {
	ID        string     `json:"id"`
	ExamID    string     `json:"exam_id"`
	StudentID string     `json:"student_id"`
	Attempt   int        `json:"attempt"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Score      float64 `json:"score"`
	MaxScore   float64 `json:"max_score"`
	Percentage int     `json:"percentage"`
	Passed     bool    `json:"passed"`
	Late       bool    `json:"late"`

	ReconcileStatus   ReconcileStatus `json:"reconcile_status,omitempty"`
	ReconcileAttempts int             `json:"reconcile_attempts,omitempty"`
	ReconcileError    string          `json:"reconcile_error,omitempty"`
}

// ReadOnly reports whether the answer set is frozen.
func (s Submission) ReadOnly() bool { return s.Status == StatusSubmitted }

// Deadline is the personal cutoff: start plus the exam duration, never past the exam window.
func (s Submission) Deadline(e exam.Exam) time.Time {
	return Deadline(s.StartTime, e)
}

func Deadline(start time.Time, e exam.Exam) time.Time {
	d := start.Add(e.Duration())
	if e.EndTime.Before(d) {
		return e.EndTime
	}
	return d
}

type Answer struct {
	SubmissionID string    `json:"submission_id"`
	QuestionID   string    `json:"question_id"`
	Answer       string    `json:"answer"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnswerMap indexes answers by question id.
func AnswerMap(as []Answer) map[string]string {
	m := make(map[string]string, len(as))
	for _, a := range as {
		m[a.QuestionID] = a.Answer
	}
	return m
}

// ScoreFields are the result columns written by the submit transition.
type ScoreFields struct {
	Score      float64
	MaxScore   float64
	Percentage int
	Passed     bool
	Late       bool
}
