// Package engine composes admission, answer capture, scoring and grade
// reconciliation into the operations exposed to callers.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/grading"
	"github.com/mind-engage/examengine/internal/ledger"
	"github.com/mind-engage/examengine/internal/session"
)

var ErrNotSubmitted = errors.New("submission has not been submitted yet")

type Clock func() time.Time

// Caller is the authenticated principal. Staff may read and regrade any
// submission; everyone else only their own.
type Caller struct {
	ID    string
	Staff bool
}

// GradeReconciler merges a result into the grade ledger.
type GradeReconciler interface {
	Reconcile(ctx context.Context, req ledger.Request) (ledger.Row, error)
}

type Deps struct {
	Exams      exam.Store
	Sessions   session.Store
	Students   directory.Directory
	Grader     *grading.Grader
	Reconciler GradeReconciler
	Terms      ledger.TermResolver
	Log        alert.Logger
	Now        Clock
}

type Engine struct {
	exams      exam.Store
	sessions   session.Store
	admit      *session.Admitter
	students   directory.Directory
	grader     *grading.Grader
	reconciler GradeReconciler
	terms      ledger.TermResolver
	log        alert.Logger
	now        Clock
}

func New(d Deps) *Engine {
	if d.Grader == nil {
		d.Grader = grading.NewDefaultGrader()
	}
	if d.Terms == nil {
		d.Terms = ledger.CalendarTerms{StartMonth: time.August}
	}
	if d.Log == nil {
		d.Log = alert.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		exams:      d.Exams,
		sessions:   d.Sessions,
		admit:      session.NewAdmitter(d.Sessions),
		students:   d.Students,
		grader:     d.Grader,
		reconciler: d.Reconciler,
		terms:      d.Terms,
		log:        d.Log,
		now:        d.Now,
	}
}

// examWithQuestions loads an exam and its ordered question set.
func (en *Engine) examWithQuestions(ctx context.Context, examID string) (exam.Exam, []exam.Question, error) {
	e, err := en.exams.GetExam(ctx, examID)
	if err != nil {
		return exam.Exam{}, nil, err
	}
	qs, err := en.exams.Questions(ctx, examID)
	if err != nil {
		return exam.Exam{}, nil, err
	}
	return e, qs, nil
}

// redact returns the student view of qs, without any part of the scoring key.
func (en *Engine) redact(qs []exam.Question) []exam.Question {
	out := make([]exam.Question, len(qs))
	for i, q := range qs {
		out[i] = en.grader.Redact(q)
	}
	return out
}
