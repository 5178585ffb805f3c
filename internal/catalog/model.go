package catalog

// Session は講義セッション（学期中の1科目クラス）
type Session struct {
	SessionID   int64  `json:"session_id"`
	CourseCode  string `json:"course_code"`
	Title       string `json:"title"`
	TeacherName string `json:"teacher_name"`
	IsDisabled  bool   `json:"is_disabled"`
}

// Student は学籍上の学生
type Student struct {
	StudentID     int64  `json:"student_id"`
	StudentNumber string `json:"student_number"`
	FullName      string `json:"full_name"`
	IsDisabled    bool   `json:"is_disabled"`
}
