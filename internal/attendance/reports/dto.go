package reports

// ===== 集計レポートDTO =====

type SessionOverview struct {
	SessionID       int64   `json:"session_id"`
	SheetsTotal     int     `json:"sheets_total"`
	SheetsClosed    int     `json:"sheets_closed"`
	SheetsCancelled int     `json:"sheets_cancelled"`
	Present         int     `json:"present"`
	Absent          int     `json:"absent"`
	Late            int     `json:"late"`
	Justified       int     `json:"justified"`
	Rate            float64 `json:"attendance_rate"`
}

type StudentAssiduity struct {
	StudentID int64   `json:"student_id"`
	Sessions  int     `json:"sessions"`
	Present   int     `json:"present"`
	Rate      float64 `json:"attendance_rate"`
	Band      string  `json:"band"` // EXCELLENT / BON / MOYEN / FAIBLE
}

type StudentLateness struct {
	StudentID      int64   `json:"student_id"`
	LateCount      int     `json:"late_count"`
	AvgMinutesLate float64 `json:"avg_minutes_late"`
	MaxMinutesLate int     `json:"max_minutes_late"`
}

type LatenessReport struct {
	SessionID int64             `json:"session_id"`
	LateTotal int               `json:"late_total"`
	Students  []StudentLateness `json:"students"`
}

type TurnaroundReport struct {
	Decided        int     `json:"decided"`
	Approved       int     `json:"approved"`
	Rejected       int     `json:"rejected"`
	PendingCount   int     `json:"pending"`
	ValidationRate float64 `json:"validation_rate"`       // approved / decided × 100
	AvgDays        float64 `json:"avg_days_to_decision"`
}
