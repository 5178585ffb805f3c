package sheets

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CreateSheetRequest struct {
	SessionID    int64   `json:"session_id" binding:"required"`
	SheetDate    string  `json:"sheet_date" binding:"required"` // YYYY-MM-DD
	StartTime    string  `json:"start_time" binding:"required"` // HH:MM
	EndTime      string  `json:"end_time" binding:"required"`   // HH:MM
	Observations *string `json:"observations,omitempty"`
}

type SheetResponse struct {
	SheetID      int64      `json:"sheet_id"`
	SessionID    int64      `json:"session_id"`
	SheetDate    string     `json:"sheet_date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	Status       string     `json:"status"`
	Observations *string    `json:"observations,omitempty"`
	Aggregates   Aggregates `json:"aggregates"`
	Rate         float64    `json:"attendance_rate"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type RecordResponse struct {
	RecordID    int64   `json:"record_id"`
	SheetID     int64   `json:"sheet_id"`
	StudentID   int64   `json:"student_id"`
	Status      string  `json:"status"`
	ArrivalTime *string `json:"arrival_time,omitempty"`
	MinutesLate int     `json:"minutes_late"`
	Remark      *string `json:"remark,omitempty"`
	EvidenceRef *string `json:"evidence_ref,omitempty"`
}

type SheetDetailResponse struct {
	Sheet   SheetResponse    `json:"sheet"`
	Records []RecordResponse `json:"records"`
}

type BatchEntry struct {
	StudentID   int64   `json:"student_id" binding:"required"`
	Status      string  `json:"status" binding:"required"`
	ArrivalTime *string `json:"arrival_time,omitempty"` // LATE のとき必須
	Remark      *string `json:"remark,omitempty"`
	EvidenceRef *string `json:"evidence_ref,omitempty"`
}

type BatchUpdateRequest struct {
	Entries []BatchEntry `json:"entries" binding:"required"`
}

type SkippedEntry struct {
	StudentID int64  `json:"student_id"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

type BatchUpdateResponse struct {
	Applied    int            `json:"applied"`
	Skipped    []SkippedEntry `json:"skipped"`
	Aggregates Aggregates     `json:"aggregates"`
	Rate       float64        `json:"attendance_rate"`
}

type StatisticsResponse struct {
	SheetID    int64      `json:"sheet_id"`
	Status     string     `json:"status"`
	Aggregates Aggregates `json:"aggregates"`
	Total      int        `json:"total"`
	Rate       float64    `json:"attendance_rate"`
}

// 一覧取得用の検索条件
type SheetFilter struct {
	SessionID *int64
	Date      *string
	Status    *string
	From      *string
	To        *string
}

type Page struct {
	Limit  int
	Offset int
	Order  string // asc / desc（sheet_date基準）
}

type SheetListResponse struct {
	Sheets []SheetResponse `json:"sheets"`
	Total  int64           `json:"total"`
}

type StudentRecordResponse struct {
	RecordResponse
	SessionID   int64  `json:"session_id"`
	SheetDate   string `json:"sheet_date"`
	SheetStatus string `json:"sheet_status"`
}

type StudentRecordStats struct {
	TotalSessions    int     `json:"total_sessions"`
	Present          int     `json:"present"`
	Absent           int     `json:"absent"`
	Late             int     `json:"late"`
	JustifiedAbsent  int     `json:"justified_absent"`
	Rate             float64 `json:"attendance_rate"`
}

type StudentRecordsResponse struct {
	StudentID int64                   `json:"student_id"`
	Records   []StudentRecordResponse `json:"records"`
	Stats     StudentRecordStats      `json:"stats"`
}

func (s *Sheet) toDTO() SheetResponse {
	return SheetResponse{
		SheetID:      s.SheetID,
		SessionID:    s.SessionID,
		SheetDate:    s.SheetDate,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Status:       s.Status,
		Observations: s.Observations,
		Aggregates:   s.Aggregates,
		Rate:         attendanceRate(s.Aggregates.Present, s.Aggregates.Total()),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func (r *Record) toDTO(startTime string) RecordResponse {
	minutes := 0
	if r.Status == StatusLate {
		minutes = minutesLate(startTime, r.ArrivalTime)
	}
	return RecordResponse{
		RecordID:    r.RecordID,
		SheetID:     r.SheetID,
		StudentID:   r.StudentID,
		Status:      r.Status,
		ArrivalTime: r.ArrivalTime,
		MinutesLate: minutes,
		Remark:      r.Remark,
		EvidenceRef: r.EvidenceRef,
	}
}
