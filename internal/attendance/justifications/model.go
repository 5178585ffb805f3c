package justifications

import "time"

// ===== Justification状態 =====
// PENDING → APPROVED / PENDING → REJECTED の一方向のみ。判定済みの再判定はない。
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// ===== 事由カテゴリ =====
const (
	CategoryMedical        = "MEDICAL"
	CategoryAdministrative = "ADMINISTRATIVE"
	CategoryFamily         = "FAMILY"
	CategoryOther          = "OTHER"
)

// 遡って申請できる上限（日）
const retentionDays = 180

// Justification は absence_justifications テーブルの1行を表す
type Justification struct {
	JustificationID string // ULID
	StudentID       int64
	Category        string
	StartDate       string // YYYY-MM-DD
	EndDate         string // YYYY-MM-DD
	Reason          string
	EvidenceRef     *string
	Status          string
	ReviewerID      *string
	ReviewComment   *string
	ReconciledCount int
	SubmittedAt     time.Time
	DecidedAt       *time.Time
}

func validCategory(c string) bool {
	switch c {
	case CategoryMedical, CategoryAdministrative, CategoryFamily, CategoryOther:
		return true
	default:
		return false
	}
}
