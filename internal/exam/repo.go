package exam

import "context"

type ListOpts struct {
	ClassID   string
	TeacherID string
	Status    Status
	NotStatus Status
	Limit     int
	Offset    int
}

// Store is the Exam Catalog and Question Bank.
type Store interface {
	CreateExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context, opts ListOpts) ([]Exam, error)

	// Publish moves a DRAFT exam to PUBLISHED if check accepts the exam and
	// its question set as they stand at the moment of the transition.
	Publish(ctx context.Context, id string, check func(Exam, []Question) error) (Exam, error)

	// ReplaceQuestions swaps the whole question set of a DRAFT exam.
	// Orders are assigned 1..n in slice order.
	ReplaceQuestions(ctx context.Context, examID string, qs []Question) ([]Question, error)

	// Questions returns the full question set (with scoring key) ordered by Order.
	Questions(ctx context.Context, examID string) ([]Question, error)

	// SetCorrectOption moves the correct flag of a question to the option at idx.
	// Content and points are untouched, so this is allowed after submissions exist.
	SetCorrectOption(ctx context.Context, examID, questionID string, idx int) (Question, error)
}
