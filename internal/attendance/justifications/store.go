package justifications

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CAMPUS-backend/internal/attendance/sheets"
	"CAMPUS-backend/internal/platform/apperr"
	"CAMPUS-backend/internal/platform/db"
)

type MySQLStore struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *MySQLStore {
	return &MySQLStore{db: conn}
}

const justificationColumns = `justification_id, student_id, category, start_date, end_date,
	reason, evidence_ref, status, reviewer_id, review_comment, reconciled_count,
	submitted_at, decided_at`

func scanJustification(row interface{ Scan(...any) error }) (*Justification, error) {
	var j Justification
	err := row.Scan(
		&j.JustificationID, &j.StudentID, &j.Category, &j.StartDate, &j.EndDate,
		&j.Reason, &j.EvidenceRef, &j.Status, &j.ReviewerID, &j.ReviewComment, &j.ReconciledCount,
		&j.SubmittedAt, &j.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *MySQLStore) Insert(ctx context.Context, j *Justification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO absence_justifications
			(justification_id, student_id, category, start_date, end_date, reason, evidence_ref, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.JustificationID, j.StudentID, j.Category, j.StartDate, j.EndDate,
		j.Reason, j.EvidenceRef, j.Status, j.SubmittedAt,
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return apperr.ErrConflict("justification id already exists")
		}
		return apperr.FromDB(err, "failed to submit justification")
	}
	return nil
}

func (s *MySQLStore) Get(ctx context.Context, id string) (*Justification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+justificationColumns+`
		FROM absence_justifications
		WHERE justification_id = ?`, id)
	j, err := scanJustification(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound(fmt.Sprintf("justification %s not found", id))
		}
		return nil, apperr.FromDB(err, "failed to get justification")
	}
	return j, nil
}

func (s *MySQLStore) List(ctx context.Context, f Filter, p Page) ([]Justification, int64, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if f.StudentID != nil {
		where = append(where, "student_id = ?")
		args = append(args, *f.StudentID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *f.Category)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM absence_justifications`+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "failed to count justifications")
	}

	// ULIDなのでID順 = 提出順
	order := "DESC"
	if strings.EqualFold(p.Order, "asc") {
		order = "ASC"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+justificationColumns+` FROM absence_justifications`+cond+
			` ORDER BY justification_id `+order+` LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "failed to list justifications")
	}
	defer rows.Close()

	var out []Justification
	for rows.Next() {
		j, err := scanJustification(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "failed to scan justification")
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromDB(err, "failed to list justifications")
	}
	return out, total, nil
}

// CountsByStudent: 学生単位のステータス内訳
func (s *MySQLStore) CountsByStudent(ctx context.Context, studentID int64) (*StatusCounts, error) {
	var c StatusCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(status = 'PENDING'), 0),
			COALESCE(SUM(status = 'APPROVED'), 0),
			COALESCE(SUM(status = 'REJECTED'), 0)
		FROM absence_justifications
		WHERE student_id = ?`, studentID,
	).Scan(&c.Pending, &c.Approved, &c.Rejected)
	if err != nil {
		return nil, apperr.FromDB(err, "failed to count justifications by student")
	}
	return &c, nil
}

// ===== 判定Tx =====

type mysqlDecisionTx struct {
	ctx context.Context
	tx  db.DBTX
	j   *Justification
}

// WithDecisionTx: Justification行を FOR UPDATE で掴んでから fn を回す
func (s *MySQLStore) WithDecisionTx(ctx context.Context, id string, fn func(tx DecisionTx) error) error {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx, `
			SELECT `+justificationColumns+`
			FROM absence_justifications
			WHERE justification_id = ?
			FOR UPDATE`, id)
		j, err := scanJustification(row)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperr.ErrNotFound(fmt.Sprintf("justification %s not found", id))
			}
			return err
		}
		return fn(&mysqlDecisionTx{ctx: ctx, tx: tx, j: j})
	})
	if err != nil {
		return apperr.FromDB(err, "justification transaction failed")
	}
	return nil
}

func (t *mysqlDecisionTx) Justification() *Justification { return t.j }

func (t *mysqlDecisionTx) MarkDecided(status, reviewerID string, comment *string, decidedAt time.Time, reconciled int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE absence_justifications
		SET status = ?, reviewer_id = ?, review_comment = ?, decided_at = ?, reconciled_count = ?
		WHERE justification_id = ?`,
		status, reviewerID, comment, decidedAt, reconciled, t.j.JustificationID,
	)
	return err
}

func (t *mysqlDecisionTx) AbsenceCandidates(studentID int64, from, to string) ([]sheets.AbsenceCandidate, error) {
	return sheets.AbsenceCandidatesTx(t.ctx, t.tx, studentID, from, to)
}

func (t *mysqlDecisionTx) FlipJustified(recordIDs []int64) (int64, error) {
	return sheets.FlipJustifiedTx(t.ctx, t.tx, recordIDs)
}

func (t *mysqlDecisionTx) RecomputeAggregates(sheetID int64) error {
	return sheets.RecomputeAggregatesTx(t.ctx, t.tx, sheetID)
}
