package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/ledger"
	"github.com/mind-engage/examengine/internal/session"
)

// reconcile pushes a submitted result into the ledger and records the outcome
// on the submission. Failures are alerted and left for the retry job.
func (en *Engine) reconcile(ctx context.Context, e exam.Exam, sub session.Submission) session.Submission {
	if en.reconciler == nil {
		return sub
	}
	at := en.now()
	if sub.EndTime != nil {
		at = *sub.EndTime
	}
	semester, year := en.terms.Term(at)
	req := ledger.Request{
		Key: ledger.Key{
			StudentID:    sub.StudentID,
			SubjectID:    e.SubjectID,
			ClassID:      e.ClassID,
			Semester:     semester,
			AcademicYear: year,
		},
		ExamFields:   ledger.ExamFields{Score: sub.Score, MaxScore: sub.MaxScore, Percentage: sub.Percentage},
		SubmissionID: sub.ID,
		ExamID:       e.ID,
	}

	status, msg := session.ReconcileOK, ""
	if _, err := en.reconciler.Reconcile(ctx, req); err != nil {
		status, msg = session.ReconcileFailed, err.Error()
		en.log.Error("grade reconciliation failed", err, alert.Fields{
			"submission": sub.ID, "student": sub.StudentID, "exam": e.ID, "attempts": sub.ReconcileAttempts + 1,
		})
	}
	if err := en.sessions.MarkReconcile(ctx, sub.ID, status, msg); err != nil {
		en.log.Error("record reconciliation outcome", err, alert.Fields{"submission": sub.ID})
		return sub
	}
	sub.ReconcileStatus, sub.ReconcileError = status, msg
	sub.ReconcileAttempts++
	return sub
}

func (en *Engine) submitted(ctx context.Context, submissionID string) (session.Submission, error) {
	sub, err := en.sessions.Get(ctx, submissionID)
	if err != nil {
		return session.Submission{}, err
	}
	if sub.Status != session.StatusSubmitted {
		return session.Submission{}, ErrNotSubmitted
	}
	return sub, nil
}

// Rescore recomputes a submitted result against the current scoring key and
// reconciles the new figures. The answer set and late flag are unchanged.
func (en *Engine) Rescore(ctx context.Context, submissionID string) (session.Submission, error) {
	sub, err := en.submitted(ctx, submissionID)
	if err != nil {
		return session.Submission{}, err
	}
	e, qs, err := en.examWithQuestions(ctx, sub.ExamID)
	if err != nil {
		return session.Submission{}, err
	}
	answers, err := en.sessions.Answers(ctx, sub.ID)
	if err != nil {
		return session.Submission{}, err
	}
	res, err := en.grader.Score(e, qs, session.AnswerMap(answers))
	if err != nil {
		return session.Submission{}, err
	}
	updated, err := en.sessions.UpdateScore(ctx, sub.ID, session.ScoreFields{
		Score:      res.Score,
		MaxScore:   res.MaxScore,
		Percentage: res.Percentage,
		Passed:     res.Passed,
		Late:       sub.Late,
	})
	if err != nil {
		return session.Submission{}, err
	}
	if updated.Percentage != sub.Percentage {
		en.log.Info("submission rescored", alert.Fields{"submission": sub.ID, "from": sub.Percentage, "to": updated.Percentage})
	}
	return en.reconcile(ctx, e, updated), nil
}

// RetryReconcile re-runs reconciliation for a submitted result.
func (en *Engine) RetryReconcile(ctx context.Context, submissionID string) (session.Submission, error) {
	sub, err := en.submitted(ctx, submissionID)
	if err != nil {
		return session.Submission{}, err
	}
	e, err := en.exams.GetExam(ctx, sub.ExamID)
	if err != nil {
		return session.Submission{}, err
	}
	return en.reconcile(ctx, e, sub), nil
}

// SweepUnreconciled retries pending or failed reconciliations older than minAge
// and returns how many now succeed.
func (en *Engine) SweepUnreconciled(ctx context.Context, minAge time.Duration, limit int) (int, error) {
	subs, err := en.sessions.ListUnreconciled(ctx, en.now().Add(-minAge), limit)
	if err != nil {
		return 0, fmt.Errorf("list unreconciled: %w", err)
	}
	n := 0
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		e, err := en.exams.GetExam(ctx, sub.ExamID)
		if err != nil {
			en.log.Error("reconcile sweep: load exam", err, alert.Fields{"submission": sub.ID})
			continue
		}
		if en.reconcile(ctx, e, sub).ReconcileStatus == session.ReconcileOK {
			n++
		}
	}
	return n, nil
}
