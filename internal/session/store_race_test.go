package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examengine/internal/db"
	"github.com/mind-engage/examengine/internal/db/dbtest"
	"github.com/mind-engage/examengine/internal/exam"
)

var raceT0 = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

func newRaceStore(t *testing.T) (*SQLStore, string) {
	t.Helper()
	ctx := context.Background()
	conn := dbtest.Open(t)
	exams := exam.NewSQLStore(conn, db.DriverSQLite)
	e, err := exams.CreateExam(ctx, exam.Exam{
		ClassID: "class-1", SubjectID: "math", TeacherID: "t-1", Title: "Race",
		DurationMin: 5, StartTime: raceT0, EndTime: raceT0.Add(10 * time.Minute),
		MaxAttempts: 1, PassingScore: 50,
	})
	require.NoError(t, err)
	return NewSQLStore(conn, db.DriverSQLite), e.ID
}

// loseFirstRace makes the first admission lose to a concurrent start: the
// winner commits, then the loser's own insert hits the unique constraint.
func loseFirstRace(t *testing.T, s *SQLStore, winnerStatus Status) (*int, *Submission) {
	t.Helper()
	calls := 0
	var winner Submission
	s.admitTx = func(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (Submission, bool, error) {
		calls++
		if calls > 1 {
			return s.createAttemptTx(ctx, examID, studentID, maxAttempts, now)
		}
		w, _, err := s.createAttemptTx(ctx, examID, studentID, maxAttempts, now)
		require.NoError(t, err)
		if winnerStatus != StatusInProgress {
			_, err = s.db.ExecContext(ctx, `UPDATE submissions SET status=$1, end_time=$2 WHERE id=$3`,
				string(winnerStatus), now.Unix(), w.ID)
			require.NoError(t, err)
		}
		winner = w

		_, err = s.db.ExecContext(ctx, `INSERT INTO submissions (id, exam_id, student_id, attempt, status, start_time)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.NewString(), examID, studentID, w.Attempt, string(StatusInProgress), now.Unix())
		require.True(t, db.IsUniqueViolation(err), "expected unique violation, got %v", err)
		return Submission{}, false, err
	}
	return &calls, &winner
}

func TestCreateAttempt_LostRaceResumesWinner(t *testing.T) {
	s, examID := newRaceStore(t)
	calls, winner := loseFirstRace(t, s, StatusInProgress)

	sub, resumed, err := s.CreateAttempt(context.Background(), examID, "stu-1", 1, raceT0)
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, winner.ID, sub.ID)
	assert.Equal(t, 2, *calls)

	n := 0
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM submissions WHERE exam_id=$1`, examID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCreateAttempt_LostRaceToFinalAttempt(t *testing.T) {
	s, examID := newRaceStore(t)
	calls, _ := loseFirstRace(t, s, StatusSubmitted)

	_, _, err := s.CreateAttempt(context.Background(), examID, "stu-1", 1, raceT0)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, *calls)
}

func TestCreateAttempt_RetriesAreBounded(t *testing.T) {
	s, examID := newRaceStore(t)
	ctx := context.Background()

	// attempt 2 without attempt 1: every pass counts one prior and collides on 2
	_, err := s.db.ExecContext(ctx, `INSERT INTO submissions (id, exam_id, student_id, attempt, status, start_time)
		VALUES ($1,$2,$3,$4,$5,$6)`, uuid.NewString(), examID, "stu-1", 2, string(StatusSubmitted), raceT0.Unix())
	require.NoError(t, err)

	calls := 0
	s.admitTx = func(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (Submission, bool, error) {
		calls++
		return s.createAttemptTx(ctx, examID, studentID, maxAttempts, now)
	}
	_, _, err = s.CreateAttempt(ctx, examID, "stu-1", 3, raceT0)
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
	assert.Equal(t, maxCreateRetries, calls)
}
