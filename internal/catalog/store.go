package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// ===== sessions =====

func (s *Store) ListSessions(ctx context.Context, includeDisabled bool) ([]Session, error) {
	q := `
		SELECT session_id, course_code, title, teacher_name, is_disabled
		FROM sessions
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY session_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperr.FromDB(err, "failed to list sessions")
	}
	defer rows.Close()

	res := make([]Session, 0, 16)
	for rows.Next() {
		var se Session
		if err := rows.Scan(&se.SessionID, &se.CourseCode, &se.Title, &se.TeacherName, &se.IsDisabled); err != nil {
			return nil, apperr.FromDB(err, "failed to scan session")
		}
		res = append(res, se)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB(err, "failed to list sessions")
	}
	return res, nil
}

func (s *Store) GetSession(ctx context.Context, id int64) (*Session, error) {
	const q = `
		SELECT session_id, course_code, title, teacher_name, is_disabled
		FROM sessions
		WHERE session_id = ?
	`
	var se Session
	err := s.db.QueryRowContext(ctx, q, id).Scan(&se.SessionID, &se.CourseCode, &se.Title, &se.TeacherName, &se.IsDisabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound(fmt.Sprintf("session %d not found", id))
		}
		return nil, apperr.FromDB(err, "failed to get session")
	}
	return &se, nil
}

func (s *Store) CreateSession(ctx context.Context, courseCode, title, teacherName string) (*Session, error) {
	const q = `
		INSERT INTO sessions (course_code, title, teacher_name, is_disabled)
		VALUES (?, ?, ?, 0)
	`
	r, err := s.db.ExecContext(ctx, q, courseCode, title, teacherName)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.ErrConflict("course_code already exists")
		}
		return nil, apperr.FromDB(err, "failed to create session")
	}
	lastID, err := r.LastInsertId()
	if err != nil {
		return nil, apperr.FromDB(err, "failed to create session")
	}
	return &Session{
		SessionID:   lastID,
		CourseCode:  courseCode,
		Title:       title,
		TeacherName: teacherName,
	}, nil
}

func (s *Store) UpdateSession(ctx context.Context, id int64, courseCode, title, teacherName string, disabled bool) error {
	const q = `
		UPDATE sessions
		SET course_code = ?, title = ?, teacher_name = ?, is_disabled = ?
		WHERE session_id = ?
	`
	r, err := s.db.ExecContext(ctx, q, courseCode, title, teacherName, disabled, id)
	if err != nil {
		return apperr.FromDB(err, "failed to update session")
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return apperr.FromDB(err, "failed to update session")
	}
	if aff == 0 {
		return apperr.ErrNotFound(fmt.Sprintf("session %d not found", id))
	}
	return nil
}

// DELETE: is_disabled=1 にする
func (s *Store) DisableSession(ctx context.Context, id int64) error {
	const q = `
		UPDATE sessions
		SET is_disabled = 1
		WHERE session_id = ?
	`
	r, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return apperr.FromDB(err, "failed to disable session")
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return apperr.FromDB(err, "failed to disable session")
	}
	if aff == 0 {
		return apperr.ErrNotFound(fmt.Sprintf("session %d not found", id))
	}
	return nil
}

// ===== students =====

func (s *Store) ListStudents(ctx context.Context, includeDisabled bool) ([]Student, error) {
	q := `
		SELECT student_id, student_number, full_name, is_disabled
		FROM students
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY student_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperr.FromDB(err, "failed to list students")
	}
	defer rows.Close()

	res := make([]Student, 0, 64)
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.StudentID, &st.StudentNumber, &st.FullName, &st.IsDisabled); err != nil {
			return nil, apperr.FromDB(err, "failed to scan student")
		}
		res = append(res, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB(err, "failed to list students")
	}
	return res, nil
}

func (s *Store) GetStudent(ctx context.Context, id int64) (*Student, error) {
	const q = `
		SELECT student_id, student_number, full_name, is_disabled
		FROM students
		WHERE student_id = ?
	`
	var st Student
	err := s.db.QueryRowContext(ctx, q, id).Scan(&st.StudentID, &st.StudentNumber, &st.FullName, &st.IsDisabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound(fmt.Sprintf("student %d not found", id))
		}
		return nil, apperr.FromDB(err, "failed to get student")
	}
	return &st, nil
}

func (s *Store) CreateStudent(ctx context.Context, studentNumber, fullName string) (*Student, error) {
	const q = `
		INSERT INTO students (student_number, full_name, is_disabled)
		VALUES (?, ?, 0)
	`
	r, err := s.db.ExecContext(ctx, q, studentNumber, fullName)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperr.ErrConflict("student_number already exists")
		}
		return nil, apperr.FromDB(err, "failed to create student")
	}
	lastID, err := r.LastInsertId()
	if err != nil {
		return nil, apperr.FromDB(err, "failed to create student")
	}
	return &Student{
		StudentID:     lastID,
		StudentNumber: studentNumber,
		FullName:      fullName,
	}, nil
}

func (s *Store) UpdateStudent(ctx context.Context, id int64, studentNumber, fullName string, disabled bool) error {
	const q = `
		UPDATE students
		SET student_number = ?, full_name = ?, is_disabled = ?
		WHERE student_id = ?
	`
	r, err := s.db.ExecContext(ctx, q, studentNumber, fullName, disabled, id)
	if err != nil {
		return apperr.FromDB(err, "failed to update student")
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return apperr.FromDB(err, "failed to update student")
	}
	if aff == 0 {
		return apperr.ErrNotFound(fmt.Sprintf("student %d not found", id))
	}
	return nil
}

// ===== enrollments =====

func (s *Store) Enroll(ctx context.Context, sessionID, studentID int64, enrolledOn string) error {
	const q = `
		INSERT INTO enrollments (session_id, student_id, enrolled_on)
		VALUES (?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, q, sessionID, studentID, enrolledOn)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrConflict("student already enrolled in this session")
		}
		return apperr.FromDB(err, "failed to enroll student")
	}
	return nil
}

func (s *Store) Withdraw(ctx context.Context, sessionID, studentID int64, withdrawnOn string) error {
	const q = `
		UPDATE enrollments
		SET withdrawn_on = ?
		WHERE session_id = ? AND student_id = ? AND withdrawn_on IS NULL
	`
	r, err := s.db.ExecContext(ctx, q, withdrawnOn, sessionID, studentID)
	if err != nil {
		return apperr.FromDB(err, "failed to withdraw student")
	}
	aff, err := r.RowsAffected()
	if err != nil {
		return apperr.FromDB(err, "failed to withdraw student")
	}
	if aff == 0 {
		return apperr.ErrNotFound("active enrollment not found")
	}
	return nil
}

// ListEnrolled: 指定日に有効な履修の学生ID一覧。学籍番号順で決定的に返す
func (s *Store) ListEnrolled(ctx context.Context, sessionID int64, date string) ([]int64, error) {
	const q = `
		SELECT e.student_id
		FROM enrollments e
		JOIN students st ON st.student_id = e.student_id
		WHERE e.session_id = ?
		  AND e.enrolled_on <= ?
		  AND (e.withdrawn_on IS NULL OR e.withdrawn_on > ?)
		  AND st.is_disabled = 0
		ORDER BY st.student_number
	`
	rows, err := s.db.QueryContext(ctx, q, sessionID, date, date)
	if err != nil {
		return nil, apperr.FromDB(err, "failed to list enrolled students")
	}
	defer rows.Close()

	res := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.FromDB(err, "failed to scan enrollment")
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB(err, "failed to list enrolled students")
	}
	return res, nil
}
