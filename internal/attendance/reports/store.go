package reports

import (
	"context"
	"database/sql"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// rawAssiduity: バンド判定前の学生別集計行
type rawAssiduity struct {
	StudentID int64
	Sessions  int
	Present   int
}

// SessionOverview: 取消済みシートはカウントには出すが出欠集計からは除外する
func (s *Store) SessionOverview(ctx context.Context, sessionID int64, from, to string) (*SessionOverview, error) {
	var ov SessionOverview
	ov.SessionID = sessionID

	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*),
				COALESCE(SUM(status = 'CLOSED'), 0),
				COALESCE(SUM(status = 'CANCELLED'), 0),
				COALESCE(SUM(CASE WHEN status <> 'CANCELLED' THEN agg_present ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status <> 'CANCELLED' THEN agg_absent ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status <> 'CANCELLED' THEN agg_late ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN status <> 'CANCELLED' THEN agg_justified ELSE 0 END), 0)
			FROM attendance_sheets
			WHERE session_id = ? AND sheet_date BETWEEN ? AND ?`,
			sessionID, from, to,
		).Scan(&ov.SheetsTotal, &ov.SheetsClosed, &ov.SheetsCancelled,
			&ov.Present, &ov.Absent, &ov.Late, &ov.Justified)
		return err
	})
	if err != nil {
		return nil, apperr.FromDB(err, "failed to build session overview")
	}
	return &ov, nil
}

// Assiduity: 学生別の出席集計。取消済みシートの行は含めない
func (s *Store) Assiduity(ctx context.Context, sessionID int64, from, to string) ([]rawAssiduity, error) {
	var out []rawAssiduity

	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT r.student_id,
				COUNT(*),
				COALESCE(SUM(r.status = 'PRESENT'), 0)
			FROM presence_records r
			JOIN attendance_sheets s ON s.sheet_id = r.sheet_id
			WHERE s.session_id = ?
			  AND s.status <> 'CANCELLED'
			  AND s.sheet_date BETWEEN ? AND ?
			GROUP BY r.student_id
			ORDER BY r.student_id`,
			sessionID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ra rawAssiduity
			if err := rows.Scan(&ra.StudentID, &ra.Sessions, &ra.Present); err != nil {
				return err
			}
			out = append(out, ra)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.FromDB(err, "failed to build assiduity report")
	}
	return out, nil
}

// Lateness: 学生別のLATE件数・平均/最大遅刻分数
func (s *Store) Lateness(ctx context.Context, sessionID int64, from, to string) (*LatenessReport, error) {
	rep := &LatenessReport{SessionID: sessionID}

	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT r.student_id,
				COUNT(*),
				AVG(GREATEST(TIMESTAMPDIFF(MINUTE,
					STR_TO_DATE(s.start_time, '%H:%i'),
					STR_TO_DATE(r.arrival_time, '%H:%i')), 0)),
				MAX(GREATEST(TIMESTAMPDIFF(MINUTE,
					STR_TO_DATE(s.start_time, '%H:%i'),
					STR_TO_DATE(r.arrival_time, '%H:%i')), 0))
			FROM presence_records r
			JOIN attendance_sheets s ON s.sheet_id = r.sheet_id
			WHERE s.session_id = ?
			  AND s.status <> 'CANCELLED'
			  AND s.sheet_date BETWEEN ? AND ?
			  AND r.status = 'LATE'
			  AND r.arrival_time IS NOT NULL
			GROUP BY r.student_id
			ORDER BY r.student_id`,
			sessionID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var sl StudentLateness
			var avg sql.NullFloat64
			if err := rows.Scan(&sl.StudentID, &sl.LateCount, &avg, &sl.MaxMinutesLate); err != nil {
				return err
			}
			if avg.Valid {
				sl.AvgMinutesLate = avg.Float64
			}
			rep.LateTotal += sl.LateCount
			rep.Students = append(rep.Students, sl)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperr.FromDB(err, "failed to build lateness report")
	}
	return rep, nil
}

// Turnaround: 申請から判定までの平均日数と承認率
func (s *Store) Turnaround(ctx context.Context, from, to string) (*TurnaroundReport, error) {
	rep := &TurnaroundReport{}

	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var avg sql.NullFloat64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(status <> 'PENDING'), 0),
				COALESCE(SUM(status = 'APPROVED'), 0),
				COALESCE(SUM(status = 'REJECTED'), 0),
				COALESCE(SUM(status = 'PENDING'), 0),
				AVG(CASE WHEN decided_at IS NOT NULL
					THEN TIMESTAMPDIFF(MINUTE, submitted_at, decided_at) / 1440.0 END)
			FROM absence_justifications
			WHERE submitted_at >= ? AND submitted_at < DATE_ADD(?, INTERVAL 1 DAY)`,
			from, to,
		).Scan(&rep.Decided, &rep.Approved, &rep.Rejected, &rep.PendingCount, &avg)
		if err != nil {
			return err
		}
		if avg.Valid {
			rep.AvgDays = avg.Float64
		}
		if rep.Decided > 0 {
			rep.ValidationRate = validationRate(rep.Approved, rep.Decided)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "failed to build turnaround report")
	}
	return rep, nil
}
