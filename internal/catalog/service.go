package catalog

import (
	"context"
	"strings"
	"time"

	"CAMPUS-backend/internal/platform/apperr"
)

func nowDate() string { return time.Now().UTC().Format("2006-01-02") }

type Service struct{ store *Store }

func NewService(store *Store) *Service { return &Service{store: store} }

// ===== sessions =====

type CreateSessionRequest struct {
	CourseCode  string `json:"course_code" binding:"required"`
	Title       string `json:"title" binding:"required"`
	TeacherName string `json:"teacher_name"`
}

type UpdateSessionRequest struct {
	CourseCode  string `json:"course_code" binding:"required"`
	Title       string `json:"title" binding:"required"`
	TeacherName string `json:"teacher_name"`
	IsDisabled  bool   `json:"is_disabled"`
}

func (s *Service) ListSessions(ctx context.Context, all string) ([]Session, error) {
	return s.store.ListSessions(ctx, all == "1" || strings.EqualFold(all, "true"))
}

func (s *Service) GetSession(ctx context.Context, id int64) (*Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	code := strings.TrimSpace(req.CourseCode)
	title := strings.TrimSpace(req.Title)
	if code == "" || title == "" {
		return nil, apperr.ErrInvalid("course_code and title must not be empty")
	}
	return s.store.CreateSession(ctx, code, title, strings.TrimSpace(req.TeacherName))
}

func (s *Service) UpdateSession(ctx context.Context, id int64, req UpdateSessionRequest) (*Session, error) {
	code := strings.TrimSpace(req.CourseCode)
	title := strings.TrimSpace(req.Title)
	if code == "" || title == "" {
		return nil, apperr.ErrInvalid("course_code and title must not be empty")
	}
	if err := s.store.UpdateSession(ctx, id, code, title, strings.TrimSpace(req.TeacherName), req.IsDisabled); err != nil {
		return nil, err
	}
	return s.store.GetSession(ctx, id)
}

func (s *Service) DeleteSession(ctx context.Context, id int64) error {
	return s.store.DisableSession(ctx, id)
}

// ===== students =====

type CreateStudentRequest struct {
	StudentNumber string `json:"student_number" binding:"required"`
	FullName      string `json:"full_name" binding:"required"`
}

type UpdateStudentRequest struct {
	StudentNumber string `json:"student_number" binding:"required"`
	FullName      string `json:"full_name" binding:"required"`
	IsDisabled    bool   `json:"is_disabled"`
}

func (s *Service) ListStudents(ctx context.Context, all string) ([]Student, error) {
	return s.store.ListStudents(ctx, all == "1" || strings.EqualFold(all, "true"))
}

func (s *Service) GetStudent(ctx context.Context, id int64) (*Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *Service) CreateStudent(ctx context.Context, req CreateStudentRequest) (*Student, error) {
	number := strings.TrimSpace(req.StudentNumber)
	name := strings.TrimSpace(req.FullName)
	if number == "" || name == "" {
		return nil, apperr.ErrInvalid("student_number and full_name must not be empty")
	}
	return s.store.CreateStudent(ctx, number, name)
}

func (s *Service) UpdateStudent(ctx context.Context, id int64, req UpdateStudentRequest) (*Student, error) {
	number := strings.TrimSpace(req.StudentNumber)
	name := strings.TrimSpace(req.FullName)
	if number == "" || name == "" {
		return nil, apperr.ErrInvalid("student_number and full_name must not be empty")
	}
	if err := s.store.UpdateStudent(ctx, id, number, name, req.IsDisabled); err != nil {
		return nil, err
	}
	return s.store.GetStudent(ctx, id)
}

// ===== enrollments =====

type EnrollRequest struct {
	StudentID  int64  `json:"student_id" binding:"required"`
	EnrolledOn string `json:"enrolled_on"` // 未指定なら当日
}

type WithdrawRequest struct {
	StudentID   int64  `json:"student_id" binding:"required"`
	WithdrawnOn string `json:"withdrawn_on"` // 未指定なら当日
}

func (s *Service) Enroll(ctx context.Context, sessionID int64, req EnrollRequest) error {
	on := req.EnrolledOn
	if on == "" {
		on = nowDate()
	} else if _, err := time.Parse("2006-01-02", on); err != nil {
		return apperr.ErrInvalid("enrolled_on must be YYYY-MM-DD")
	}

	// 存在チェックを先にやって404を明確にする
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if _, err := s.store.GetStudent(ctx, req.StudentID); err != nil {
		return err
	}
	return s.store.Enroll(ctx, sessionID, req.StudentID, on)
}

func (s *Service) Withdraw(ctx context.Context, sessionID int64, req WithdrawRequest) error {
	on := req.WithdrawnOn
	if on == "" {
		on = nowDate()
	} else if _, err := time.Parse("2006-01-02", on); err != nil {
		return apperr.ErrInvalid("withdrawn_on must be YYYY-MM-DD")
	}
	return s.store.Withdraw(ctx, sessionID, req.StudentID, on)
}

// ListEnrolled: シート作成側(attendance/sheets)の RosterProvider として使う
func (s *Service) ListEnrolled(ctx context.Context, sessionID int64, date string) ([]int64, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListEnrolled(ctx, sessionID, date)
}
