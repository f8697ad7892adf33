// Package ledger reconciles exam results into the per-term grade ledger.
package ledger

import (
	"context"
	"errors"
	"time"
)

var ErrRowNotFound = errors.New("ledger row not found")

// Key identifies one logical ledger row.
type Key struct {
	StudentID    string `json:"student_id"`
	SubjectID    string `json:"subject_id"`
	ClassID      string `json:"class_id"`
	Semester     string `json:"semester"`
	AcademicYear string `json:"academic_year"`
}

// ExamFields are the only columns this package writes.
type ExamFields struct {
	Score      float64 `json:"exam_score"`
	MaxScore   float64 `json:"exam_max_score"`
	Percentage int     `json:"exam_percentage"`
}

// Row is the full ledger record; quiz, assignment and midterm columns belong to
// other grading flows and are nil until they write them.
type Row struct {
	ID string `json:"id"`
	Key

	QuizScore       *float64 `json:"quiz_score"`
	AssignmentScore *float64 `json:"assignment_score"`
	MidtermScore    *float64 `json:"midterm_score"`
	ExamScore       *float64 `json:"exam_score"`
	ExamMaxScore    *float64 `json:"exam_max_score"`
	ExamPercentage  *int     `json:"exam_percentage"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store interface {
	// UpsertExamFields creates the row if absent or merges the exam fields in place.
	UpsertExamFields(ctx context.Context, k Key, f ExamFields, now time.Time) (Row, error)
	Get(ctx context.Context, k Key) (Row, error)
}
