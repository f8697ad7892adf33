package exam_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examengine/internal/db"
	"github.com/mind-engage/examengine/internal/db/dbtest"
	"github.com/mind-engage/examengine/internal/exam"
)

func newStore(t *testing.T) *exam.SQLStore {
	t.Helper()
	return exam.NewSQLStore(dbtest.Open(t), db.DriverSQLite)
}

func draft() exam.Exam {
	t0 := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	return exam.Exam{
		ClassID: "class-1", SubjectID: "math", TeacherID: "t-1",
		Title: "Algebra midterm", DurationMin: 45,
		StartTime: t0, EndTime: t0.Add(2 * time.Hour),
		MaxAttempts: 2, PassingScore: 60,
	}
}

func mcq(content string, points float64, correct int, opts ...string) exam.Question {
	q := exam.Question{Type: exam.TypeMultipleChoice, Content: content, Points: points}
	for i, o := range opts {
		q.Options = append(q.Options, exam.Option{Content: o, IsCorrect: i == correct})
	}
	return q
}

func TestCreateAndGetExam(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	e, err := st.CreateExam(ctx, draft())
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, exam.StatusDraft, e.Status)

	got, err := st.GetExam(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.True(t, got.StartTime.Equal(draft().StartTime))
	assert.Equal(t, 2, got.MaxAttempts)

	_, err = st.GetExam(ctx, "missing")
	assert.ErrorIs(t, err, exam.ErrExamNotFound)
}

func TestCreateExam_RejectsInvertedWindow(t *testing.T) {
	st := newStore(t)
	e := draft()
	e.EndTime = e.StartTime
	_, err := st.CreateExam(context.Background(), e)
	assert.ErrorIs(t, err, exam.ErrInvalidExam)
}

func TestReplaceQuestions_OrdersAndFreezesAfterPublish(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	e, err := st.CreateExam(ctx, draft())
	require.NoError(t, err)

	qs, err := st.ReplaceQuestions(ctx, e.ID, []exam.Question{
		mcq("2+2?", 2, 1, "3", "4"),
		mcq("3*3?", 3, 0, "9", "6"),
	})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, 1, qs[0].Order)
	assert.Equal(t, 2, qs[1].Order)
	assert.True(t, qs[0].Options[1].IsCorrect)

	// replacing again drops the previous set
	qs, err = st.ReplaceQuestions(ctx, e.ID, []exam.Question{mcq("1+1?", 1, 0, "2", "3")})
	require.NoError(t, err)
	require.Len(t, qs, 1)

	_, err = st.Publish(ctx, e.ID, nil)
	require.NoError(t, err)

	_, err = st.ReplaceQuestions(ctx, e.ID, []exam.Question{mcq("x?", 1, 0, "a", "b")})
	assert.ErrorIs(t, err, exam.ErrNotEditable)

	_, err = st.Publish(ctx, e.ID, nil)
	assert.ErrorIs(t, err, exam.ErrNotEditable)
}

func TestSetCorrectOption(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	e, err := st.CreateExam(ctx, draft())
	require.NoError(t, err)
	qs, err := st.ReplaceQuestions(ctx, e.ID, []exam.Question{mcq("2+2?", 1, 0, "3", "4")})
	require.NoError(t, err)

	q, err := st.SetCorrectOption(ctx, e.ID, qs[0].ID, 1)
	require.NoError(t, err)
	assert.False(t, q.Options[0].IsCorrect)
	assert.True(t, q.Options[1].IsCorrect)

	_, err = st.SetCorrectOption(ctx, e.ID, qs[0].ID, 5)
	assert.ErrorIs(t, err, exam.ErrInvalidQuestion)
	_, err = st.SetCorrectOption(ctx, e.ID, "nope", 0)
	assert.ErrorIs(t, err, exam.ErrQuestionNotFound)
}

func TestListExams_FiltersByClass(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	a := draft()
	b := draft()
	b.ClassID = "class-2"
	_, err := st.CreateExam(ctx, a)
	require.NoError(t, err)
	_, err = st.CreateExam(ctx, b)
	require.NoError(t, err)

	list, err := st.ListExams(ctx, exam.ListOpts{ClassID: "class-2"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "class-2", list[0].ClassID)
}

func TestQuestionRedacted(t *testing.T) {
	q := mcq("2+2?", 1, 1, "3", "4")
	q.Explanation = "because"
	r := q.Redacted()
	assert.Empty(t, r.Explanation)
	for _, o := range r.Options {
		assert.False(t, o.IsCorrect)
	}
	assert.True(t, q.Options[1].IsCorrect, "original untouched")
}

func TestPublish_TransitionsOnlyWhatCheckApproved(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	e, err := st.CreateExam(ctx, draft())
	require.NoError(t, err)
	_, err = st.ReplaceQuestions(ctx, e.ID, []exam.Question{mcq("2+2?", 1, 1, "3", "4")})
	require.NoError(t, err)

	rejected := errors.New("rejected")
	_, err = st.Publish(ctx, e.ID, func(exam.Exam, []exam.Question) error { return rejected })
	assert.ErrorIs(t, err, rejected)
	got, err := st.GetExam(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.StatusDraft, got.Status)

	// An edit issued while the check runs must not land in the published set.
	replaced := make(chan error, 1)
	var checked []exam.Question
	pub, err := st.Publish(ctx, e.ID, func(_ exam.Exam, qs []exam.Question) error {
		checked = qs
		go func() {
			_, err := st.ReplaceQuestions(context.Background(), e.ID, []exam.Question{
				{Type: exam.TypeEssay, Content: "Discuss.", Points: 5},
			})
			replaced <- err
		}()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, exam.StatusPublished, pub.Status)

	select {
	case err := <-replaced:
		assert.ErrorIs(t, err, exam.ErrNotEditable)
	case <-time.After(5 * time.Second):
		t.Fatal("replace did not finish")
	}
	qs, err := st.Questions(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, checked[0].ID, qs[0].ID)
	assert.Equal(t, exam.TypeMultipleChoice, qs[0].Type)
}

func TestListExams_ExcludesStatusBeforePaging(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	pub := draft()
	pub.Title = "Published"
	p, err := st.CreateExam(ctx, pub)
	require.NoError(t, err)
	_, err = st.Publish(ctx, p.ID, nil)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		d := draft()
		d.StartTime = d.StartTime.Add(time.Duration(i) * time.Hour)
		d.EndTime = d.StartTime.Add(time.Hour)
		_, err := st.CreateExam(ctx, d)
		require.NoError(t, err)
	}

	page, err := st.ListExams(ctx, exam.ListOpts{ClassID: "class-1", NotStatus: exam.StatusDraft, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, p.ID, page[0].ID)
}
