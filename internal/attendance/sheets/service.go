package sheets

import (
	"context"
	"fmt"
	"time"

	"CAMPUS-backend/internal/platform/apperr"
)

// ===== インターフェース群 =====

// RosterProvider: シート作成時に在籍学生ID一覧を引く（外部コラボレータ）。
// 同一 (session, date) に対して決定的な並びを返すこと。
type RosterProvider interface {
	ListEnrolled(ctx context.Context, sessionID int64, date string) ([]int64, error)
}

// Store: 永続化境界。mysql実装は store.go、テストはインメモリ実装を使う。
type Store interface {
	// InsertSheet: シート作成＋名簿分のABSENTレコード一括作成を1Txで行う。
	// (session, date) 重複は apperr CONFLICT を返す。
	InsertSheet(ctx context.Context, sh *Sheet, roster []int64) error

	// WithSheetTx: シート行をロックした1Txの中で fn を実行する。
	// 同一シートへの並行更新はここで直列化される。
	WithSheetTx(ctx context.Context, sheetID int64, fn func(tx SheetTx) error) error

	GetSheet(ctx context.Context, sheetID int64) (*Sheet, error)
	GetSheetDetail(ctx context.Context, sheetID int64) (*Sheet, []Record, error)
	ListSheets(ctx context.Context, f SheetFilter, p Page) ([]Sheet, int64, error)
	ListRecordsForStudent(ctx context.Context, studentID int64, from, to *string) ([]StudentRecord, error)
}

// SheetTx: ロック済みシートに対するTx内操作。
// レコードの状態遷移は UpdateRecord の一本道のみ（JUSTIFIED_ABSENT も含めて）。
type SheetTx interface {
	Sheet() *Sheet
	Records() ([]Record, error)
	UpdateRecord(rec *Record) error
	SetStatus(status string) error
	SetAggregates(agg Aggregates) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// ===== Service本体 =====

type Service struct {
	store  Store
	roster RosterProvider
	clock  Clock
}

func NewService(store Store, roster RosterProvider) *Service {
	return &Service{store: store, roster: roster, clock: realClock{}}
}

// シート作成。名簿を引いて全員ABSENTで初期化する
func (s *Service) CreateSheet(ctx context.Context, req CreateSheetRequest) (*SheetResponse, error) {
	date, err := time.Parse(DateLayout, req.SheetDate)
	if err != nil {
		return nil, apperr.ErrInvalid("sheet_date must be YYYY-MM-DD")
	}
	// 1ヶ月より先の日付は認めない
	if date.After(s.clock.Now().AddDate(0, 0, maxFutureDays)) {
		return nil, apperr.ErrInvalid("sheet_date must not be more than 30 days in the future")
	}

	start, err := parseClock(req.StartTime)
	if err != nil {
		return nil, apperr.ErrInvalid("start_time must be HH:MM")
	}
	end, err := parseClock(req.EndTime)
	if err != nil {
		return nil, apperr.ErrInvalid("end_time must be HH:MM")
	}
	if !end.After(start) {
		return nil, apperr.ErrInvalid("end_time must be after start_time")
	}

	roster, err := s.roster.ListEnrolled(ctx, req.SessionID, req.SheetDate)
	if err != nil {
		return nil, err
	}

	sh := &Sheet{
		SessionID:    req.SessionID,
		SheetDate:    req.SheetDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       SheetStatusOpen,
		Observations: req.Observations,
		Aggregates:   Aggregates{Absent: len(roster)},
	}
	if err := s.store.InsertSheet(ctx, sh, roster); err != nil {
		return nil, err
	}

	resp := sh.toDTO()
	return &resp, nil
}

// 一括マーク。シートがOPENでなければ丸ごと拒否、エントリ単位の不備はスキップ扱い。
// 集計の取り直しは全エントリ適用後に1回だけ
func (s *Service) BatchUpdate(ctx context.Context, sheetID int64, req BatchUpdateRequest) (*BatchUpdateResponse, error) {
	var resp *BatchUpdateResponse

	err := s.store.WithSheetTx(ctx, sheetID, func(tx SheetTx) error {
		sh := tx.Sheet()
		if sh.Status != SheetStatusOpen {
			return apperr.ErrInvalidState(fmt.Sprintf("sheet %d is %s", sheetID, sh.Status))
		}

		recs, err := tx.Records()
		if err != nil {
			return err
		}
		byStudent := make(map[int64]*Record, len(recs))
		for i := range recs {
			byStudent[recs[i].StudentID] = &recs[i]
		}

		applied := 0
		skipped := make([]SkippedEntry, 0)

		for _, e := range req.Entries {
			rec, ok := byStudent[e.StudentID]
			if !ok {
				skipped = append(skipped, SkippedEntry{
					StudentID: e.StudentID,
					Reason:    string(apperr.CodeNotFound),
					Message:   "no record for this student on this sheet",
				})
				continue
			}

			if e.Status == StatusJustifiedAbsent {
				// 承認済みJustificationの照合経由でのみ遷移できる
				skipped = append(skipped, SkippedEntry{
					StudentID: e.StudentID,
					Reason:    string(apperr.CodeInvalidArgument),
					Message:   "JUSTIFIED_ABSENT requires an approved justification",
				})
				continue
			}
			if !validMarkStatus(e.Status) {
				skipped = append(skipped, SkippedEntry{
					StudentID: e.StudentID,
					Reason:    string(apperr.CodeInvalidArgument),
					Message:   "invalid status: " + e.Status,
				})
				continue
			}
			if e.Status == StatusLate {
				if e.ArrivalTime == nil || *e.ArrivalTime == "" {
					skipped = append(skipped, SkippedEntry{
						StudentID: e.StudentID,
						Reason:    string(apperr.CodeInvalidArgument),
						Message:   "arrival_time is required for LATE",
					})
					continue
				}
				if _, err := parseClock(*e.ArrivalTime); err != nil {
					skipped = append(skipped, SkippedEntry{
						StudentID: e.StudentID,
						Reason:    string(apperr.CodeInvalidArgument),
						Message:   "arrival_time must be HH:MM",
					})
					continue
				}
			}

			rec.Status = e.Status
			if e.Status == StatusLate {
				rec.ArrivalTime = e.ArrivalTime
			} else {
				rec.ArrivalTime = nil
			}
			if e.Remark != nil {
				rec.Remark = e.Remark
			}
			if e.EvidenceRef != nil {
				rec.EvidenceRef = e.EvidenceRef
			}

			if err := tx.UpdateRecord(rec); err != nil {
				return err
			}
			applied++
		}

		agg := computeAggregates(recs)
		if err := tx.SetAggregates(agg); err != nil {
			return err
		}

		resp = &BatchUpdateResponse{
			Applied:    applied,
			Skipped:    skipped,
			Aggregates: agg,
			Rate:       attendanceRate(agg.Present, agg.Total()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// 締め。最終集計を取り直してからCLOSEDへ。二度目は明示的にエラー
func (s *Service) Close(ctx context.Context, sheetID int64) (*SheetResponse, error) {
	var resp *SheetResponse

	err := s.store.WithSheetTx(ctx, sheetID, func(tx SheetTx) error {
		sh := tx.Sheet()
		if sh.Status != SheetStatusOpen {
			return apperr.ErrInvalidState(fmt.Sprintf("sheet %d is already %s", sheetID, sh.Status))
		}

		recs, err := tx.Records()
		if err != nil {
			return err
		}
		agg := computeAggregates(recs)
		if err := tx.SetAggregates(agg); err != nil {
			return err
		}
		if err := tx.SetStatus(SheetStatusClosed); err != nil {
			return err
		}

		sh.Aggregates = agg
		sh.Status = SheetStatusClosed
		r := sh.toDTO()
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// 取消。OPENからのみ。レコードは保持されるが以後の集計からは除外される
func (s *Service) Cancel(ctx context.Context, sheetID int64) (*SheetResponse, error) {
	var resp *SheetResponse

	err := s.store.WithSheetTx(ctx, sheetID, func(tx SheetTx) error {
		sh := tx.Sheet()
		if sh.Status != SheetStatusOpen {
			return apperr.ErrInvalidState(fmt.Sprintf("sheet %d is %s", sheetID, sh.Status))
		}
		if err := tx.SetStatus(SheetStatusCancelled); err != nil {
			return err
		}
		sh.Status = SheetStatusCancelled
		r := sh.toDTO()
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// シート単位の統計。取消済みシートは有効レコード0件として扱う
func (s *Service) Statistics(ctx context.Context, sheetID int64) (*StatisticsResponse, error) {
	sh, err := s.store.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sh.Status == SheetStatusCancelled {
		return &StatisticsResponse{SheetID: sh.SheetID, Status: sh.Status}, nil
	}
	total := sh.Aggregates.Total()
	return &StatisticsResponse{
		SheetID:    sh.SheetID,
		Status:     sh.Status,
		Aggregates: sh.Aggregates,
		Total:      total,
		Rate:       attendanceRate(sh.Aggregates.Present, total),
	}, nil
}

func (s *Service) GetSheet(ctx context.Context, sheetID int64) (*SheetDetailResponse, error) {
	sh, recs, err := s.store.GetSheetDetail(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	out := make([]RecordResponse, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDTO(sh.StartTime))
	}
	return &SheetDetailResponse{Sheet: sh.toDTO(), Records: out}, nil
}

func (s *Service) ListSheets(ctx context.Context, f SheetFilter, p Page) (*SheetListResponse, error) {
	// 日付系フィルタは学生別一覧と同じ基準で弾く（黙って0件にしない）
	for name, v := range map[string]*string{"date": f.Date, "from": f.From, "to": f.To} {
		if v == nil {
			continue
		}
		if _, err := time.Parse(DateLayout, *v); err != nil {
			return nil, apperr.ErrInvalid(name + " must be YYYY-MM-DD")
		}
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	rows, total, err := s.store.ListSheets(ctx, f, p)
	if err != nil {
		return nil, err
	}
	out := make([]SheetResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return &SheetListResponse{Sheets: out, Total: total}, nil
}

// 学生別の出欠一覧＋集計。取消済みシートの行は含まれない
func (s *Service) ListRecordsForStudent(ctx context.Context, studentID int64, from, to *string) (*StudentRecordsResponse, error) {
	if from != nil {
		if _, err := time.Parse(DateLayout, *from); err != nil {
			return nil, apperr.ErrInvalid("from must be YYYY-MM-DD")
		}
	}
	if to != nil {
		if _, err := time.Parse(DateLayout, *to); err != nil {
			return nil, apperr.ErrInvalid("to must be YYYY-MM-DD")
		}
	}

	rows, err := s.store.ListRecordsForStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]StudentRecordResponse, 0, len(rows))
	var stats StudentRecordStats
	for i := range rows {
		r := &rows[i]
		out = append(out, StudentRecordResponse{
			RecordResponse: r.Record.toDTO(r.StartTime),
			SessionID:      r.SessionID,
			SheetDate:      r.SheetDate,
			SheetStatus:    r.SheetStatus,
		})
		switch r.Status {
		case StatusPresent:
			stats.Present++
		case StatusAbsent:
			stats.Absent++
		case StatusLate:
			stats.Late++
		case StatusJustifiedAbsent:
			stats.JustifiedAbsent++
		}
	}
	stats.TotalSessions = len(rows)
	stats.Rate = attendanceRate(stats.Present, stats.TotalSessions)

	return &StudentRecordsResponse{StudentID: studentID, Records: out, Stats: stats}, nil
}
