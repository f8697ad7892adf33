package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/examengine/internal/db"
)

// maxCreateRetries bounds re-runs of CreateAttempt after losing an insert race.
const maxCreateRetries = 5

type SQLStore struct {
	db     *sql.DB
	driver db.Driver

	// admitTx runs one admission transaction; tests replace it to lose a race.
	admitTx func(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (Submission, bool, error)
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	s := &SQLStore{db: conn, driver: driver}
	s.admitTx = s.createAttemptTx
	return s
}

const submissionColumns = `id, exam_id, student_id, attempt, status, start_time, end_time,
	score, max_score, percentage, passed, late, reconcile_status, reconcile_attempts, reconcile_error`

func (s *SQLStore) CreateAttempt(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (Submission, bool, error) {
	var lastErr error
	for i := 0; i < maxCreateRetries; i++ {
		sub, resumed, err := s.admitTx(ctx, examID, studentID, maxAttempts, now)
		if err == nil || !db.IsUniqueViolation(err) {
			return sub, resumed, err
		}
		// a concurrent start won the insert; the next pass observes its row
		lastErr = err
	}
	return Submission{}, false, fmt.Errorf("create attempt: %w", lastErr)
}

func (s *SQLStore) createAttemptTx(ctx context.Context, examID, studentID string, maxAttempts int, now time.Time) (Submission, bool, error) {
	var (
		out     Submission
		resumed bool
	)
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		active, err := scanSubmission(tx.QueryRowContext(ctx, `SELECT `+submissionColumns+`
			FROM submissions WHERE exam_id=$1 AND student_id=$2 AND status=$3`,
			examID, studentID, string(StatusInProgress)))
		switch {
		case err == nil:
			out, resumed = active, true
			return nil
		case !errors.Is(err, ErrSubmissionNotFound):
			return err
		}

		var prior int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE exam_id=$1 AND student_id=$2`,
			examID, studentID).Scan(&prior); err != nil {
			return err
		}
		if prior >= maxAttempts {
			return ErrAttemptsExhausted
		}

		out = Submission{
			ID:        uuid.NewString(),
			ExamID:    examID,
			StudentID: studentID,
			Attempt:   prior + 1,
			Status:    StatusInProgress,
			StartTime: now.UTC().Truncate(time.Second),
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO submissions (id, exam_id, student_id, attempt, status, start_time)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			out.ID, examID, studentID, out.Attempt, string(out.Status), out.StartTime.Unix())
		return err
	})
	if err != nil {
		return Submission{}, false, err
	}
	return out, resumed, nil
}

func (s *SQLStore) SaveAnswer(ctx context.Context, submissionID, studentID, questionID, answer string, now time.Time) (Answer, error) {
	a := Answer{SubmissionID: submissionID, QuestionID: questionID, Answer: answer, UpdatedAt: now.UTC().Truncate(time.Second)}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var examID, owner, status string
		err := tx.QueryRowContext(ctx, `SELECT exam_id, student_id, status FROM submissions WHERE id=$1`+
			db.LockSuffix(s.driver, db.LockShare), submissionID).Scan(&examID, &owner, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSubmissionNotFound
		}
		if err != nil {
			return err
		}
		if owner != studentID {
			return ErrNotAuthorized
		}
		if Status(status) != StatusInProgress {
			return ErrSubmissionClosed
		}

		var one int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id=$1 AND exam_id=$2`, questionID, examID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotInExam
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO submission_answers (submission_id, question_id, answer, updated_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (submission_id, question_id)
			DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`,
			submissionID, questionID, answer, a.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Answer{}, err
	}
	return a, nil
}

func (s *SQLStore) Finalize(ctx context.Context, submissionID, studentID string, now time.Time, score ScoreFunc) (Submission, error) {
	var out Submission
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sub, err := scanSubmission(tx.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`+
			db.LockSuffix(s.driver, db.LockUpdate), submissionID))
		if err != nil {
			return err
		}
		if studentID != "" && sub.StudentID != studentID {
			return ErrNotAuthorized
		}
		if sub.Status == StatusSubmitted {
			out = sub
			return ErrAlreadySubmitted
		}

		answers, err := queryAnswers(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		f, err := score(sub, answers)
		if err != nil {
			return err
		}

		end := now.UTC().Truncate(time.Second)
		res, err := tx.ExecContext(ctx, `UPDATE submissions SET status=$1, end_time=$2,
			score=$3, max_score=$4, percentage=$5, passed=$6, late=$7,
			reconcile_status=$8, reconcile_attempts=0, reconcile_error=''
			WHERE id=$9 AND status=$10`,
			string(StatusSubmitted), end.Unix(), f.Score, f.MaxScore, f.Percentage, f.Passed, f.Late,
			string(ReconcilePending), submissionID, string(StatusInProgress))
		if err != nil {
			return fmt.Errorf("finalize submission: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadySubmitted
		}

		sub.Status = StatusSubmitted
		sub.EndTime = &end
		sub.Score, sub.MaxScore, sub.Percentage, sub.Passed, sub.Late = f.Score, f.MaxScore, f.Percentage, f.Passed, f.Late
		sub.ReconcileStatus, sub.ReconcileAttempts, sub.ReconcileError = ReconcilePending, 0, ""
		out = sub
		return nil
	})
	if errors.Is(err, ErrAlreadySubmitted) {
		return out, err
	}
	if err != nil {
		return Submission{}, err
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Submission, error) {
	return scanSubmission(s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id))
}

func (s *SQLStore) Answers(ctx context.Context, submissionID string) ([]Answer, error) {
	return queryAnswers(ctx, s.db, submissionID)
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Submission, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.ExamID != "" {
		add("exam_id=$%d", opts.ExamID)
	}
	if opts.StudentID != "" {
		add("student_id=$%d", opts.StudentID)
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	q := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, opts.Offset)
	q += fmt.Sprintf(" ORDER BY start_time DESC, attempt DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return s.query(ctx, q, args...)
}

func (s *SQLStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx, `SELECT s.id, s.exam_id, s.student_id, s.attempt, s.status, s.start_time, s.end_time,
			s.score, s.max_score, s.percentage, s.passed, s.late, s.reconcile_status, s.reconcile_attempts, s.reconcile_error
		FROM submissions s JOIN exams e ON e.id = s.exam_id
		WHERE s.status=$1 AND (s.start_time + e.duration_min*60 <= $2 OR e.end_time <= $2)
		ORDER BY s.start_time LIMIT $3`,
		string(StatusInProgress), now.Unix(), limit)
}

func (s *SQLStore) UpdateScore(ctx context.Context, id string, f ScoreFields) (Submission, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE submissions SET score=$1, max_score=$2, percentage=$3, passed=$4,
		reconcile_status=$5, reconcile_error=''
		WHERE id=$6 AND status=$7`,
		f.Score, f.MaxScore, f.Percentage, f.Passed, string(ReconcilePending), id, string(StatusSubmitted))
	if err != nil {
		return Submission{}, fmt.Errorf("update score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return Submission{}, err
		}
		return sub, fmt.Errorf("%w: submission is %s", ErrSubmissionClosed, sub.Status)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) MarkReconcile(ctx context.Context, id string, status ReconcileStatus, errMsg string) error {
	q := `UPDATE submissions SET reconcile_status=$1, reconcile_error=$2, reconcile_attempts=reconcile_attempts+1 WHERE id=$3`
	if status == ReconcilePending {
		q = `UPDATE submissions SET reconcile_status=$1, reconcile_error=$2 WHERE id=$3`
	}
	res, err := s.db.ExecContext(ctx, q, string(status), errMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (s *SQLStore) ListUnreconciled(ctx context.Context, before time.Time, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE status=$1 AND reconcile_status IN ($2, $3) AND end_time <= $4
		ORDER BY end_time LIMIT $5`,
		string(StatusSubmitted), string(ReconcilePending), string(ReconcileFailed), before.Unix(), limit)
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryAnswers(ctx context.Context, q queryer, submissionID string) ([]Answer, error) {
	rows, err := q.QueryContext(ctx, `SELECT submission_id, question_id, answer, updated_at
		FROM submission_answers WHERE submission_id=$1 ORDER BY question_id`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Answer
	for rows.Next() {
		var (
			a  Answer
			ts int64
		)
		if err := rows.Scan(&a.SubmissionID, &a.QuestionID, &a.Answer, &ts); err != nil {
			return nil, err
		}
		a.UpdatedAt = time.Unix(ts, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (Submission, error) {
	var (
		sub       Submission
		status    string
		recStatus string
		start     int64
		end       sql.NullInt64
	)
	err := row.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.Attempt, &status, &start, &end,
		&sub.Score, &sub.MaxScore, &sub.Percentage, &sub.Passed, &sub.Late,
		&recStatus, &sub.ReconcileAttempts, &sub.ReconcileError)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrSubmissionNotFound
	}
	if err != nil {
		return Submission{}, err
	}
	sub.Status = Status(status)
	sub.ReconcileStatus = ReconcileStatus(recStatus)
	sub.StartTime = time.Unix(start, 0).UTC()
	if end.Valid {
		t := time.Unix(end.Int64, 0).UTC()
		sub.EndTime = &t
	}
	return sub, nil
}
