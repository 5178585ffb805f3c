package justifications

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type SubmitRequest struct {
	StudentID   int64   `json:"student_id" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	StartDate   string  `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate     string  `json:"end_date" binding:"required"`   // YYYY-MM-DD
	Reason      string  `json:"reason" binding:"required"`
	EvidenceRef *string `json:"evidence_ref,omitempty"`
}

type DecisionRequest struct {
	Comment *string `json:"comment,omitempty"` // REJECT時は必須
}

type JustificationResponse struct {
	JustificationID string     `json:"justification_id"`
	StudentID       int64      `json:"student_id"`
	Category        string     `json:"category"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	Reason          string     `json:"reason"`
	EvidenceRef     *string    `json:"evidence_ref,omitempty"`
	Status          string     `json:"status"`
	ReviewerID      *string    `json:"reviewer_id,omitempty"`
	ReviewComment   *string    `json:"review_comment,omitempty"`
	ReconciledCount int        `json:"reconciled_count"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
}

type Filter struct {
	StudentID *int64
	Status    *string
	Category  *string
}

type Page struct {
	Limit  int
	Offset int
	Order  string // asc / desc（提出順基準。審査キューはascで取る）
}

// StatusCounts は学生単位の申請内訳
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type ListResponse struct {
	Justifications []JustificationResponse `json:"justifications"`
	Total          int64                   `json:"total"`
	Counts         *StatusCounts           `json:"counts,omitempty"` // student_id指定時のみ
}

func (j *Justification) toDTO() JustificationResponse {
	return JustificationResponse{
		JustificationID: j.JustificationID,
		StudentID:       j.StudentID,
		Category:        j.Category,
		StartDate:       j.StartDate,
		EndDate:         j.EndDate,
		Reason:          j.Reason,
		EvidenceRef:     j.EvidenceRef,
		Status:          j.Status,
		ReviewerID:      j.ReviewerID,
		ReviewComment:   j.ReviewComment,
		ReconciledCount: j.ReconciledCount,
		SubmittedAt:     j.SubmittedAt,
		DecidedAt:       j.DecidedAt,
	}
}
