// Package directory is the read model for student records owned by the user subsystem.
package directory

import (
	"context"
	"database/sql"
	"errors"
)

var ErrStudentNotFound = errors.New("student not found")

type Student struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id,omitempty"`
	ClassID  string `json:"class_id"`
	FullName string `json:"full_name,omitempty"`
}

type Directory interface {
	Student(ctx context.Context, id string) (Student, error)
}

type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(conn *sql.DB) *SQLDirectory { return &SQLDirectory{db: conn} }

func (d *SQLDirectory) Student(ctx context.Context, id string) (Student, error) {
	var s Student
	err := d.db.QueryRowContext(ctx, `SELECT id, school_id, class_id, full_name FROM students WHERE id=$1`, id).
		Scan(&s.ID, &s.SchoolID, &s.ClassID, &s.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrStudentNotFound
	}
	return s, err
}

// Upsert registers or updates a student; used by seeding and tests.
func (d *SQLDirectory) Upsert(ctx context.Context, s Student) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO students (id, school_id, class_id, full_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET school_id=excluded.school_id, class_id=excluded.class_id, full_name=excluded.full_name`,
		s.ID, s.SchoolID, s.ClassID, s.FullName)
	return err
}
