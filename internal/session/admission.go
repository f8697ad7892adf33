package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/exam"
)

// Admitter decides whether a student may start (or resume) an attempt.
type Admitter struct {
	store Store
}

func NewAdmitter(store Store) *Admitter { return &Admitter{store: store} }

// Admit runs the window and access checks and then asks the store to resume the
// active attempt or create the next one. Resuming wins over the attempt cap so a
// retried start returns the same session.
func (a *Admitter) Admit(ctx context.Context, e exam.Exam, st directory.Student, now time.Time) (Submission, bool, error) {
	if e.ClassID != st.ClassID {
		return Submission{}, false, fmt.Errorf("%w: %s", exam.ErrExamNotFound, e.ID)
	}
	switch {
	case e.Status == exam.StatusCompleted:
		return Submission{}, false, ErrWindowClosed
	case !e.Attemptable():
		return Submission{}, false, fmt.Errorf("%w: %s", exam.ErrExamNotFound, e.ID)
	}
	if now.Before(e.StartTime) {
		return Submission{}, false, ErrNotStarted
	}
	if now.After(e.EndTime) {
		return Submission{}, false, ErrWindowClosed
	}
	return a.store.CreateAttempt(ctx, e.ID, st.ID, e.MaxAttempts, now)
}
