package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) UpsertExamFields(ctx context.Context, k Key, f ExamFields, now time.Time) (Row, error) {
	ts := now.Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grade_ledger (id, student_id, subject_id, class_id, semester, academic_year,
			exam_score, exam_max_score, exam_percentage, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (student_id, subject_id, class_id, semester, academic_year)
		DO UPDATE SET
			exam_score=excluded.exam_score,
			exam_max_score=excluded.exam_max_score,
			exam_percentage=excluded.exam_percentage,
			updated_at=excluded.updated_at`,
		uuid.NewString(), k.StudentID, k.SubjectID, k.ClassID, k.Semester, k.AcademicYear,
		f.Score, f.MaxScore, f.Percentage, ts, ts)
	if err != nil {
		return Row{}, fmt.Errorf("upsert grade ledger: %w", err)
	}
	return s.Get(ctx, k)
}

func (s *SQLStore) Get(ctx context.Context, k Key) (Row, error) {
	var (
		r                Row
		quiz, assignment sql.NullFloat64
		midterm, examSc  sql.NullFloat64
		examMax          sql.NullFloat64
		examPct          sql.NullInt64
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, subject_id, class_id, semester, academic_year,
		       quiz_score, assignment_score, midterm_score, exam_score, exam_max_score, exam_percentage,
		       created_at, updated_at
		FROM grade_ledger
		WHERE student_id=$1 AND subject_id=$2 AND class_id=$3 AND semester=$4 AND academic_year=$5`,
		k.StudentID, k.SubjectID, k.ClassID, k.Semester, k.AcademicYear).
		Scan(&r.ID, &r.StudentID, &r.SubjectID, &r.ClassID, &r.Semester, &r.AcademicYear,
			&quiz, &assignment, &midterm, &examSc, &examMax, &examPct, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrRowNotFound
	}
	if err != nil {
		return Row{}, err
	}
	r.QuizScore = floatPtr(quiz)
	r.AssignmentScore = floatPtr(assignment)
	r.MidtermScore = floatPtr(midterm)
	r.ExamScore = floatPtr(examSc)
	r.ExamMaxScore = floatPtr(examMax)
	if examPct.Valid {
		p := int(examPct.Int64)
		r.ExamPercentage = &p
	}
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return r, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
