package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/examengine/internal/db"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
	now    func() time.Time
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: conn, driver: driver, now: time.Now}
}

const examColumns = `id, school_id, class_id, subject_id, teacher_id, title, description,
	duration_min, start_time, end_time, max_attempts, passing_score, status, created_at, updated_at`

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	if err := e.Validate(); err != nil {
		return Exam{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := s.now().UTC().Truncate(time.Second)
	e.Status = StatusDraft
	e.CreatedAt, e.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams (`+examColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.SchoolID, e.ClassID, e.SubjectID, e.TeacherID, e.Title, e.Description,
		e.DurationMin, e.StartTime.Unix(), e.EndTime.Unix(), e.MaxAttempts, e.PassingScore,
		string(e.Status), now.Unix(), now.Unix())
	if err != nil {
		return Exam{}, fmt.Errorf("insert exam: %w", err)
	}
	return s.GetExam(ctx, e.ID)
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	return scanExam(s.db.QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams WHERE id=$1`, id))
}

func (s *SQLStore) ListExams(ctx context.Context, opts ListOpts) ([]Exam, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.ClassID != "" {
		add("class_id=$%d", opts.ClassID)
	}
	if opts.TeacherID != "" {
		add("teacher_id=$%d", opts.TeacherID)
	}
	if opts.Status != "" {
		add("status=$%d", string(opts.Status))
	}
	if opts.NotStatus != "" {
		add("status<>$%d", string(opts.NotStatus))
	}
	q := `SELECT ` + examColumns + ` FROM exams`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, opts.Offset)
	q += fmt.Sprintf(" ORDER BY start_time DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Publish moves a DRAFT exam to PUBLISHED. check runs inside the transaction,
// under the exam row lock ReplaceQuestions also takes, so the published
// question set is exactly the one check saw.
func (s *SQLStore) Publish(ctx context.Context, id string, check func(Exam, []Question) error) (Exam, error) {
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		e, err := scanExam(tx.QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams WHERE id=$1`+
			db.LockSuffix(s.driver, db.LockUpdate), id))
		if err != nil {
			return err
		}
		if e.Status != StatusDraft {
			return fmt.Errorf("%w: status is %s", ErrNotEditable, e.Status)
		}
		qs, err := queryQuestions(ctx, tx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(e, qs); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE exams SET status=$1, updated_at=$2 WHERE id=$3`,
			string(StatusPublished), s.now().Unix(), id)
		return err
	})
	if err != nil {
		return Exam{}, err
	}
	return s.GetExam(ctx, id)
}

func (s *SQLStore) ReplaceQuestions(ctx context.Context, examID string, qs []Question) ([]Question, error) {
	for i := range qs {
		if err := qs[i].Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM exams WHERE id=$1`+db.LockSuffix(s.driver, db.LockUpdate), examID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrExamNotFound
		}
		if err != nil {
			return err
		}
		if Status(status) != StatusDraft {
			return ErrNotEditable
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id=$1`, examID); err != nil {
			return err
		}
		for i := range qs {
			q := &qs[i]
			if q.ID == "" {
				q.ID = uuid.NewString()
			}
			q.ExamID = examID
			q.Order = i + 1
			opts, err := json.Marshal(q.Options)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO questions (id, exam_id, ord, type, content, points, explanation, options_json)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				q.ID, examID, q.Order, string(q.Type), q.Content, q.Points, q.Explanation, string(opts)); err != nil {
				return fmt.Errorf("insert question %d: %w", q.Order, err)
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE exams SET updated_at=$1 WHERE id=$2`, s.now().Unix(), examID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Questions(ctx, examID)
}

func (s *SQLStore) Questions(ctx context.Context, examID string) ([]Question, error) {
	return queryQuestions(ctx, s.db, examID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryQuestions(ctx context.Context, q queryer, examID string) ([]Question, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, exam_id, ord, type, content, points, explanation, options_json
		FROM questions WHERE exam_id=$1 ORDER BY ord`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetCorrectOption(ctx context.Context, examID, questionID string, idx int) (Question, error) {
	var out Question
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q, err := scanQuestion(tx.QueryRowContext(ctx, `SELECT id, exam_id, ord, type, content, points, explanation, options_json
			FROM questions WHERE id=$1 AND exam_id=$2`+db.LockSuffix(s.driver, db.LockUpdate), questionID, examID))
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(q.Options) {
			return fmt.Errorf("%w: option index %d out of range", ErrInvalidQuestion, idx)
		}
		for i := range q.Options {
			q.Options[i].IsCorrect = i == idx
		}
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE questions SET options_json=$1 WHERE id=$2`, string(opts), q.ID); err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExam(row scanner) (Exam, error) {
	var (
		e                          Exam
		status                     string
		start, end, created, updat int64
	)
	err := row.Scan(&e.ID, &e.SchoolID, &e.ClassID, &e.SubjectID, &e.TeacherID, &e.Title, &e.Description,
		&e.DurationMin, &start, &end, &e.MaxAttempts, &e.PassingScore, &status, &created, &updat)
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrExamNotFound
	}
	if err != nil {
		return Exam{}, err
	}
	e.Status = Status(status)
	e.StartTime = time.Unix(start, 0).UTC()
	e.EndTime = time.Unix(end, 0).UTC()
	e.CreatedAt = time.Unix(created, 0).UTC()
	e.UpdatedAt = time.Unix(updat, 0).UTC()
	return e, nil
}

func scanQuestion(row scanner) (Question, error) {
	var (
		q     Question
		typ   string
		ojson string
	)
	err := row.Scan(&q.ID, &q.ExamID, &q.Order, &typ, &q.Content, &q.Points, &q.Explanation, &ojson)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	if err != nil {
		return Question{}, err
	}
	q.Type = QuestionType(typ)
	if err := json.Unmarshal([]byte(ojson), &q.Options); err != nil {
		return Question{}, fmt.Errorf("question %s options: %w", q.ID, err)
	}
	return q, nil
}
