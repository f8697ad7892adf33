package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/examengine/internal/alert"
	"github.com/mind-engage/examengine/internal/exam"
	"github.com/mind-engage/examengine/internal/session"
)

type StartResult struct {
	Submission session.Submission `json:"submission"`
	Resumed    bool               `json:"resumed"`
	Deadline   time.Time          `json:"deadline"`
	Exam       exam.Exam          `json:"exam"`
	Questions  []exam.Question    `json:"questions"`
}

type SubmissionView struct {
	Submission session.Submission `json:"submission"`
	Answers    []session.Answer   `json:"answers"`
	ReadOnly   bool               `json:"read_only"`
	Deadline   time.Time          `json:"deadline"`
}

// StartAttempt admits the student and returns the session with the exam's
// questions stripped of their scoring key.
func (en *Engine) StartAttempt(ctx context.Context, examID, studentID string) (StartResult, error) {
	st, err := en.students.Student(ctx, studentID)
	if err != nil {
		return StartResult{}, hideStudentErr(err)
	}
	e, qs, err := en.examWithQuestions(ctx, examID)
	if err != nil {
		return StartResult{}, err
	}
	sub, resumed, err := en.admit.Admit(ctx, e, st, en.now())
	if err != nil {
		return StartResult{}, err
	}
	if !resumed {
		en.log.Info("attempt started", alert.Fields{"submission": sub.ID, "exam": e.ID, "student": st.ID, "attempt": sub.Attempt})
	}
	return StartResult{
		Submission: sub,
		Resumed:    resumed,
		Deadline:   sub.Deadline(e),
		Exam:       e,
		Questions:  en.redact(qs),
	}, nil
}

func (en *Engine) SaveAnswer(ctx context.Context, studentID, submissionID, questionID, answer string) (session.Answer, error) {
	return en.sessions.SaveAnswer(ctx, submissionID, studentID, questionID, answer, en.now())
}

// Submit finalizes the caller's own submission.
func (en *Engine) Submit(ctx context.Context, studentID, submissionID string) (session.Submission, error) {
	sub, err := en.sessions.Get(ctx, submissionID)
	if err != nil {
		return session.Submission{}, err
	}
	if sub.StudentID != studentID {
		return session.Submission{}, session.ErrNotAuthorized
	}
	return en.finalize(ctx, sub, studentID, en.now())
}

// finalize scores and closes sub at the given time, then reconciles. The
// submitted state stands even if reconciliation fails.
func (en *Engine) finalize(ctx context.Context, sub session.Submission, studentID string, at time.Time) (session.Submission, error) {
	e, qs, err := en.examWithQuestions(ctx, sub.ExamID)
	if err != nil {
		return session.Submission{}, err
	}
	done, err := en.sessions.Finalize(ctx, sub.ID, studentID, at, func(s session.Submission, answers []session.Answer) (session.ScoreFields, error) {
		res, err := en.grader.Score(e, qs, session.AnswerMap(answers))
		if err != nil {
			return session.ScoreFields{}, err
		}
		return session.ScoreFields{
			Score:      res.Score,
			MaxScore:   res.MaxScore,
			Percentage: res.Percentage,
			Passed:     res.Passed,
			Late:       at.After(s.Deadline(e)),
		}, nil
	})
	if err != nil {
		return done, err
	}
	return en.reconcile(ctx, e, done), nil
}

func (en *Engine) GetSubmission(ctx context.Context, c Caller, submissionID string) (SubmissionView, error) {
	sub, err := en.sessions.Get(ctx, submissionID)
	if err != nil {
		return SubmissionView{}, err
	}
	if !c.Staff && sub.StudentID != c.ID {
		return SubmissionView{}, session.ErrNotAuthorized
	}
	e, err := en.exams.GetExam(ctx, sub.ExamID)
	if err != nil {
		return SubmissionView{}, err
	}
	answers, err := en.sessions.Answers(ctx, submissionID)
	if err != nil {
		return SubmissionView{}, err
	}
	if answers == nil {
		answers = []session.Answer{}
	}
	return SubmissionView{
		Submission: sub,
		Answers:    answers,
		ReadOnly:   sub.ReadOnly(),
		Deadline:   sub.Deadline(e),
	}, nil
}

// ListSubmissions restricts non-staff callers to their own history.
func (en *Engine) ListSubmissions(ctx context.Context, c Caller, opts session.ListOpts) ([]session.Submission, error) {
	if !c.Staff {
		opts.StudentID = c.ID
	}
	return en.sessions.List(ctx, opts)
}

// SweepExpired auto-submits IN_PROGRESS sessions past their deadline. Each is
// closed at its deadline so the on-time result is not flagged late.
func (en *Engine) SweepExpired(ctx context.Context, limit int) (int, error) {
	now := en.now()
	expired, err := en.sessions.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}
	n := 0
	for _, sub := range expired {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		e, err := en.exams.GetExam(ctx, sub.ExamID)
		if err != nil {
			en.log.Error("expiry sweep: load exam", err, alert.Fields{"submission": sub.ID})
			continue
		}
		at := sub.Deadline(e)
		if at.After(now) {
			at = now
		}
		_, err = en.finalize(ctx, sub, "", at)
		switch {
		case err == nil:
			n++
		case errors.Is(err, session.ErrAlreadySubmitted):
			// the student submitted between list and finalize
		default:
			en.log.Error("expiry sweep: submit", err, alert.Fields{"submission": sub.ID})
		}
	}
	return n, nil
}
