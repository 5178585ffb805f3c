package sheets

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/db"
)

type MySQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *MySQLStore {
	return &MySQLStore{db: conn}
}

const sheetColumns = `sheet_id, session_id, sheet_date, start_time, end_time, status,
	observations, agg_present, agg_absent, agg_late, agg_justified, created_at, updated_at`

const recordColumns = `record_id, sheet_id, student_id, status, arrival_time, remark,
	evidence_ref, created_at, updated_at`

func scanSheet(row interface{ Scan(...any) error }) (*Sheet, error) {
	var sh Sheet
	err := row.Scan(
		&sh.SheetID, &sh.SessionID, &sh.SheetDate, &sh.StartTime, &sh.EndTime, &sh.Status,
		&sh.Observations,
		&sh.Aggregates.Present, &sh.Aggregates.Absent, &sh.Aggregates.Late, &sh.Aggregates.Justified,
		&sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var r Record
	err := rows.Scan(
		&r.RecordID, &r.SheetID, &r.StudentID, &r.Status, &r.ArrivalTime, &r.Remark,
		&r.EvidenceRef, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// ===== シート作成 =====

// InsertSheet: シート行と名簿分のABSENTレコードを1Txで作る。
// (session_id, sheet_date) の UNIQUE に当たったら CONFLICT。
func (s *MySQLStore) InsertSheet(ctx context.Context, sh *Sheet, roster []int64) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_sheets
				(session_id, sheet_date, start_time, end_time, status, observations, agg_absent)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sh.SessionID, sh.SheetDate, sh.StartTime, sh.EndTime, sh.Status, sh.Observations, len(roster),
		)
		if err != nil {
			if db.IsDuplicateKey(err) {
				return apperr.ErrConflict(fmt.Sprintf("sheet already exists for session %d on %s", sh.SessionID, sh.SheetDate))
			}
			return err
		}
		sheetID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sh.SheetID = sheetID

		if len(roster) == 0 {
			return nil
		}

		// bulk insert（名簿全員をABSENTで初期化）
		sb := strings.Builder{}
		sb.WriteString(`INSERT INTO presence_records (sheet_id, student_id, status) VALUES `)
		args := make([]any, 0, len(roster)*3)
		for i, studentID := range roster {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, sheetID, studentID, StatusAbsent)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return apperr.FromDB(err, "failed to create sheet")
	}
	return nil
}

// ===== シート単位Tx =====

type mysqlSheetTx struct {
	ctx   context.Context
	tx    db.DBTX
	sheet *Sheet
}

// WithSheetTx: シート行を FOR UPDATE で掴んでから fn を回す。
// 見つからなければ NOT_FOUND、ロック待ちタイムアウトは UNAVAILABLE へ寄せる。
func (s *MySQLStore) WithSheetTx(ctx context.Context, sheetID int64, fn func(tx SheetTx) error) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+sheetColumns+`
			FROM attendance_sheets
			WHERE sheet_id = ?
			FOR UPDATE`, sheetID)
		sh, err := scanSheet(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperr.ErrNotFound(fmt.Sprintf("sheet %d not found", sheetID))
			}
			return err
		}
		return fn(&mysqlSheetTx{ctx: ctx, tx: tx, sheet: sh})
	})
	if err != nil {
		return apperr.FromDB(err, "sheet transaction failed")
	}
	return nil
}

func (t *mysqlSheetTx) Sheet() *Sheet { return t.sheet }

func (t *mysqlSheetTx) Records() ([]Record, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT `+recordColumns+`
		FROM presence_records
		WHERE sheet_id = ?
		ORDER BY student_id`, t.sheet.SheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *mysqlSheetTx) UpdateRecord(rec *Record) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE presence_records
		SET status = ?, arrival_time = ?, remark = ?, evidence_ref = ?
		WHERE record_id = ?`,
		rec.Status, rec.ArrivalTime, rec.Remark, rec.EvidenceRef, rec.RecordID,
	)
	return err
}

func (t *mysqlSheetTx) SetStatus(status string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE attendance_sheets SET status = ? WHERE sheet_id = ?`,
		status, t.sheet.SheetID,
	)
	return err
}

func (t *mysqlSheetTx) SetAggregates(agg Aggregates) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE attendance_sheets
		SET agg_present = ?, agg_absent = ?, agg_late = ?, agg_justified = ?
		WHERE sheet_id = ?`,
		agg.Present, agg.Absent, agg.Late, agg.Justified, t.sheet.SheetID,
	)
	return err
}

// ===== 読み取り系 =====

func (s *MySQLStore) GetSheet(ctx context.Context, sheetID int64) (*Sheet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sheetColumns+`
		FROM attendance_sheets
		WHERE sheet_id = ?`, sheetID)
	sh, err := scanSheet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound(fmt.Sprintf("sheet %d not found", sheetID))
		}
		return nil, apperr.FromDB(err, "failed to get sheet")
	}
	return sh, nil
}

func (s *MySQLStore) GetSheetDetail(ctx context.Context, sheetID int64) (*Sheet, []Record, error) {
	var sh *Sheet
	var recs []Record

	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+sheetColumns+`
			FROM attendance_sheets
			WHERE sheet_id = ?`, sheetID)
		got, err := scanSheet(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperr.ErrNotFound(fmt.Sprintf("sheet %d not found", sheetID))
			}
			return err
		}
		sh = got

		rows, err := tx.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM presence_records
			WHERE sheet_id = ?
			ORDER BY student_id`, sheetID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				return err
			}
			recs = append(recs, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, apperr.FromDB(err, "failed to get sheet detail")
	}
	return sh, recs, nil
}

func (s *MySQLStore) ListSheets(ctx context.Context, f SheetFilter, p Page) ([]Sheet, int64, error) {
	where := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if f.SessionID != nil {
		where = append(where, "session_id = ?")
		args = append(args, *f.SessionID)
	}
	if f.Date != nil {
		where = append(where, "sheet_date = ?")
		args = append(args, *f.Date)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.From != nil {
		where = append(where, "sheet_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "sheet_date <= ?")
		args = append(args, *f.To)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_sheets`+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "failed to count sheets")
	}

	query := `SELECT ` + sheetColumns + ` FROM attendance_sheets` + cond +
		` ORDER BY sheet_date ` + order + `, sheet_id ` + order + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "failed to list sheets")
	}
	defer rows.Close()

	var out []Sheet
	for rows.Next() {
		sh, err := scanSheet(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "failed to scan sheet")
		}
		out = append(out, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromDB(err, "failed to list sheets")
	}
	return out, total, nil
}

// ListRecordsForStudent: 取消済みシートの行は返さない
func (s *MySQLStore) ListRecordsForStudent(ctx context.Context, studentID int64, from, to *string) ([]StudentRecord, error) {
	where := []string{"r.student_id = ?", "s.status <> ?"}
	args := []any{studentID, SheetStatusCancelled}

	if from != nil {
		where = append(where, "s.sheet_date >= ?")
		args = append(args, *from)
	}
	if to != nil {
		where = append(where, "s.sheet_date <= ?")
		args = append(args, *to)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.record_id, r.sheet_id, r.student_id, r.status, r.arrival_time, r.remark,
			r.evidence_ref, r.created_at, r.updated_at,
			s.session_id, s.sheet_date, s.status, s.start_time
		FROM presence_records r
		JOIN attendance_sheets s ON s.sheet_id = r.sheet_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY s.sheet_date, s.start_time, r.record_id`, args...)
	if err != nil {
		return nil, apperr.FromDB(err, "failed to list student records")
	}
	defer rows.Close()

	var out []StudentRecord
	for rows.Next() {
		var sr StudentRecord
		err := rows.Scan(
			&sr.RecordID, &sr.SheetID, &sr.StudentID, &sr.Status, &sr.ArrivalTime, &sr.Remark,
			&sr.EvidenceRef, &sr.CreatedAt, &sr.UpdatedAt,
			&sr.SessionID, &sr.SheetDate, &sr.SheetStatus, &sr.StartTime,
		)
		if err != nil {
			return nil, apperr.FromDB(err, "failed to scan student record")
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromDB(err, "failed to list student records")
	}
	return out, nil
}

// ===== Justification照合サポート =====
// 承認Txの中から呼ばれるパッケージ関数群。Txの所有者は呼び出し側。

// AbsenceCandidatesTx: 学生の指定期間内の ABSENT 行をシート情報込みで返す。
// シート状態での絞り込みは呼び出し側のルールに任せる。
func AbsenceCandidatesTx(ctx context.Context, tx db.DBTX, studentID int64, from, to string) ([]AbsenceCandidate, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT r.record_id, r.sheet_id, s.sheet_date, s.status
		FROM presence_records r
		JOIN attendance_sheets s ON s.sheet_id = r.sheet_id
		WHERE r.student_id = ?
		  AND r.status = ?
		  AND s.sheet_date BETWEEN ? AND ?
		ORDER BY s.sheet_date, r.record_id
		FOR UPDATE`,
		studentID, StatusAbsent, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AbsenceCandidate
	for rows.Next() {
		var c AbsenceCandidate
		if err := rows.Scan(&c.RecordID, &c.SheetID, &c.SheetDate, &c.SheetStatus); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FlipJustifiedTx: ABSENT → JUSTIFIED_ABSENT の一括遷移。
// status条件付きUPDATEなので既に遷移済みの行には効かない。
func FlipJustifiedTx(ctx context.Context, tx db.DBTX, recordIDs []int64) (int64, error) {
	if len(recordIDs) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(recordIDs)), ", ")
	args := make([]any, 0, len(recordIDs)+2)
	args = append(args, StatusJustifiedAbsent, StatusAbsent)
	for _, id := range recordIDs {
		args = append(args, id)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE presence_records
		SET status = ?
		WHERE status = ? AND record_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecomputeAggregatesTx: 指定シートの集計をレコードから取り直す
func RecomputeAggregatesTx(ctx context.Context, tx db.DBTX, sheetID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE attendance_sheets s
		SET s.agg_present = (SELECT COUNT(*) FROM presence_records WHERE sheet_id = s.sheet_id AND status = ?),
			s.agg_absent = (SELECT COUNT(*) FROM presence_records WHERE sheet_id = s.sheet_id AND status = ?),
			s.agg_late = (SELECT COUNT(*) FROM presence_records WHERE sheet_id = s.sheet_id AND status = ?),
			s.agg_justified = (SELECT COUNT(*) FROM presence_records WHERE sheet_id = s.sheet_id AND status = ?)
		WHERE s.sheet_id = ?`,
		StatusPresent, StatusAbsent, StatusLate, StatusJustifiedAbsent, sheetID)
	return err
}
