package session

import (
	"context"
	"time"
)

type ListOpts struct {
	ExamID    string
	StudentID string
	Status    Status
	Limit     int
	Offset    int
}

// ScoreFunc computes the result fields for a submission from its final answer set.
// It runs inside the submit transaction and must not touch the database.
type ScoreFunc func(sub Submission, answers []Answer) (ScoreFields, error)

type Store interface {
	// CreateAttempt returns the active submission (resumed=true) or creates the next attempt.
	// The attempt cap and single-active rule are enforced atomically.
	CreateAttempt(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (sub Submission, resumed bool, err error)
	SaveAnswer(ctx context.Context, submissionID, studentID, questionID, answer string, now time.Time) (Answer, error)
	// Finalize transitions IN_PROGRESS to SUBMITTED. An empty studentID skips the owner check.
	// On ErrAlreadySubmitted the stored submission is returned alongside the error.
	Finalize(ctx context.Context, submissionID, studentID string, now time.Time, score ScoreFunc) (Submission, error)

	Get(ctx context.Context, id string) (Submission, error)
	Answers(ctx context.Context, submissionID string) ([]Answer, error)
	List(ctx context.Context, opts ListOpts) ([]Submission, error)
	// ListExpired returns IN_PROGRESS submissions whose personal deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Submission, error)

	UpdateScore(ctx context.Context, id string, f ScoreFields) (Submission, error)
	MarkReconcile(ctx context.Context, id string, status ReconcileStatus, errMsg string) error
	// ListUnreconciled returns submitted rows whose reconciliation is pending or failed
	// and whose end time is at or before the cutoff.
	ListUnreconciled(ctx context.Context, before time.Time, limit int) ([]Submission, error)
}
