package sheets

import (
	"math"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// 未来日の作成を許す上限（日）
	maxFutureDays = 30
)

// ===== シート状態 =====
// OPEN → CLOSED / OPEN → CANCELLED の一方向のみ。終端状態からの復帰はない。
const (
	SheetStatusOpen      = "OPEN"
	SheetStatusClosed    = "CLOSED"
	SheetStatusCancelled = "CANCELLED"
)

// ===== 出欠状態 =====
// JUSTIFIED_ABSENT は Justification の承認経由でのみ到達する。
const (
	StatusPresent         = "PRESENT"
	StatusAbsent          = "ABSENT"
	StatusLate            = "LATE"
	StatusJustifiedAbsent = "JUSTIFIED_ABSENT"
)

// Sheet は attendance_sheets テーブルの1行を表す
type Sheet struct {
	SheetID      int64
	SessionID    int64
	SheetDate    string // YYYY-MM-DD
	StartTime    string // HH:MM
	EndTime      string // HH:MM
	Status       string
	Observations *string
	Aggregates   Aggregates
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Record は presence_records テーブルの1行を表す
type Record struct {
	RecordID    int64
	SheetID     int64
	StudentID   int64
	Status      string
	ArrivalTime *string // HH:MM。LATE のときのみ意味を持つ
	Remark      *string
	EvidenceRef *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StudentRecord はシート情報込みの学生別出欠行
type StudentRecord struct {
	Record
	SessionID   int64
	SheetDate   string
	SheetStatus string
	StartTime   string
}

// AbsenceCandidate は Justification 照合対象の欠席行
type AbsenceCandidate struct {
	RecordID    int64
	SheetID     int64
	SheetDate   string
	SheetStatus string
}

// Aggregates はシート集計のキャッシュ投影。
// 常に所有レコードから再計算され、直接書き込みの対象にはならない。
type Aggregates struct {
	Present   int `json:"present"`
	Absent    int `json:"absent"`
	Late      int `json:"late"`
	Justified int `json:"justified"`
}

func (a Aggregates) Total() int {
	return a.Present + a.Absent + a.Late + a.Justified
}

// computeAggregates: レコード群から集計を取り直す
func computeAggregates(recs []Record) Aggregates {
	var agg Aggregates
	for i := range recs {
		switch recs[i].Status {
		case StatusPresent:
			agg.Present++
		case StatusAbsent:
			agg.Absent++
		case StatusLate:
			agg.Late++
		case StatusJustifiedAbsent:
			agg.Justified++
		}
	}
	return agg
}

// attendanceRate: 出席率(%)を小数2桁で返す
func attendanceRate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

func validMarkStatus(s string) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// parseClock: "HH:MM" または "HH:MM:SS"
func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse(ClockLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}

// minutesLate: 到着 - 開始（分）。負値は0に丸める
func minutesLate(startTime string, arrival *string) int {
	if arrival == nil {
		return 0
	}
	start, err := parseClock(startTime)
	if err != nil {
		return 0
	}
	arr, err := parseClock(*arrival)
	if err != nil {
		return 0
	}
	diff := int(arr.Sub(start).Minutes())
	if diff < 0 {
		return 0
	}
	return diff
}
