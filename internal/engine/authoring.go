package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/mind-engage/examengine/internal/directory"
	"github.com/mind-engage/examengine/internal/exam"
)

type ExamView struct {
	Exam      exam.Exam       `json:"exam"`
	Questions []exam.Question `json:"questions"`
}

func (en *Engine) CreateExam(ctx context.Context, e exam.Exam) (exam.Exam, error) {
	return en.exams.CreateExam(ctx, e)
}

func (en *Engine) ReplaceQuestions(ctx context.Context, examID string, qs []exam.Question) ([]exam.Question, error) {
	return en.exams.ReplaceQuestions(ctx, examID, qs)
}

// Publish makes a DRAFT exam attemptable once every question can be scored.
func (en *Engine) Publish(ctx context.Context, examID string) (exam.Exam, error) {
	return en.exams.Publish(ctx, examID, func(_ exam.Exam, qs []exam.Question) error {
		if len(qs) == 0 {
			return fmt.Errorf("%w: exam has no questions", exam.ErrInvalidExam)
		}
		for _, q := range qs {
			if err := en.grader.Validate(q); err != nil {
				return err
			}
		}
		return nil
	})
}

// CorrectKey moves the correct flag of a choice question. Content and points
// stay fixed; rescoring existing submissions is a separate call.
func (en *Engine) CorrectKey(ctx context.Context, examID, questionID string, optionIndex int) (exam.Question, error) {
	qs, err := en.exams.Questions(ctx, examID)
	if err != nil {
		return exam.Question{}, err
	}
	var target *exam.Question
	for i := range qs {
		if qs[i].ID == questionID {
			target = &qs[i]
			break
		}
	}
	if target == nil {
		return exam.Question{}, exam.ErrQuestionNotFound
	}
	if target.Type != exam.TypeMultipleChoice && target.Type != exam.TypeTrueFalse {
		return exam.Question{}, fmt.Errorf("%w: key of %s questions cannot be moved to an option", exam.ErrInvalidQuestion, target.Type)
	}
	return en.exams.SetCorrectOption(ctx, examID, questionID, optionIndex)
}

// GetExam returns the full exam to staff. Students only see attemptable exams
// of their own class, without the scoring key.
func (en *Engine) GetExam(ctx context.Context, c Caller, examID string) (ExamView, error) {
	e, qs, err := en.examWithQuestions(ctx, examID)
	if err != nil {
		return ExamView{}, err
	}
	if c.Staff {
		return ExamView{Exam: e, Questions: nonNil(qs)}, nil
	}
	st, err := en.students.Student(ctx, c.ID)
	if err != nil {
		return ExamView{}, hideStudentErr(err)
	}
	if st.ClassID != e.ClassID || e.Status == exam.StatusDraft {
		return ExamView{}, exam.ErrExamNotFound
	}
	return ExamView{Exam: e, Questions: en.redact(qs)}, nil
}

// ListExams scopes students to non-draft exams of their class.
func (en *Engine) ListExams(ctx context.Context, c Caller, opts exam.ListOpts) ([]exam.Exam, error) {
	if c.Staff {
		return en.exams.ListExams(ctx, opts)
	}
	st, err := en.students.Student(ctx, c.ID)
	if err != nil {
		return nil, hideStudentErr(err)
	}
	opts.ClassID = st.ClassID
	opts.TeacherID = ""
	opts.NotStatus = exam.StatusDraft
	return en.exams.ListExams(ctx, opts)
}

func hideStudentErr(err error) error {
	if errors.Is(err, directory.ErrStudentNotFound) {
		return exam.ErrExamNotFound
	}
	return err
}

func nonNil(qs []exam.Question) []exam.Question {
	if qs == nil {
		return []exam.Question{}
	}
	return qs
}
