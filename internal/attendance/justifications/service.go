package justifications

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"CAMPUS-backend/internal/attendance/sheets"
	"CAMPUS-backend/internal/platform/apperr"
)

// ===== インターフェース群 =====

type Store interface {
	Insert(ctx context.Context, j *Justification) error
	Get(ctx context.Context, id string) (*Justification, error)
	List(ctx context.Context, f Filter, p Page) ([]Justification, int64, error)
	CountsByStudent(ctx context.Context, studentID int64) (*StatusCounts, error)

	// WithDecisionTx: Justification行をロックした1Txの中で fn を実行する。
	// 照合（レコード遷移と集計の取り直し）も同じTxに同居させる。
	WithDecisionTx(ctx context.Context, id string, fn func(tx DecisionTx) error) error
}

// DecisionTx: ロック済みJustificationに対するTx内操作
type DecisionTx interface {
	Justification() *Justification
	MarkDecided(status, reviewerID string, comment *string, decidedAt time.Time, reconciled int) error
	AbsenceCandidates(studentID int64, from, to string) ([]sheets.AbsenceCandidate, error)
	FlipJustified(recordIDs []int64) (int64, error)
	RecomputeAggregates(sheetID int64) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	New() string
}

type ulidGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGen() IDGen {
	return &ulidGen{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (g *ulidGen) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// ===== Service本体 =====

type Service struct {
	store Store
	clock Clock
	idgen IDGen
}

func NewService(store Store) *Service {
	return &Service{store: store, clock: realClock{}, idgen: NewULIDGen()}
}

// 申請。保持期間(180日)より前に遡る申請と未来日終端の申請は弾く
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*JustificationResponse, error) {
	if !validCategory(req.Category) {
		return nil, apperr.ErrInvalid("category must be MEDICAL, ADMINISTRATIVE, FAMILY or OTHER")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperr.ErrInvalid("reason must not be empty")
	}

	start, err := time.Parse(sheets.DateLayout, req.StartDate)
	if err != nil {
		return nil, apperr.ErrInvalid("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(sheets.DateLayout, req.EndDate)
	if err != nil {
		return nil, apperr.ErrInvalid("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, apperr.ErrInvalid("end_date must not be before start_date")
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(today.AddDate(0, 0, -retentionDays)) {
		return nil, apperr.ErrInvalid("start_date is beyond the 180-day retention window")
	}
	if end.After(today) {
		return nil, apperr.ErrInvalid("end_date must not be in the future")
	}

	j := &Justification{
		JustificationID: s.idgen.New(),
		StudentID:       req.StudentID,
		Category:        req.Category,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Reason:          req.Reason,
		EvidenceRef:     req.EvidenceRef,
		Status:          StatusPending,
		SubmittedAt:     now,
	}
	if err := s.store.Insert(ctx, j); err != nil {
		return nil, err
	}

	resp := j.toDTO()
	return &resp, nil
}

// 承認。同一Txで対象期間のABSENT行をJUSTIFIED_ABSENTへ照合し、
// 影響したシートの集計を取り直す。取消済みシートの行は対象外。
func (s *Service) Approve(ctx context.Context, id, reviewerID string, comment *string) (*JustificationResponse, error) {
	var resp *JustificationResponse

	err := s.store.WithDecisionTx(ctx, id, func(tx DecisionTx) error {
		j := tx.Justification()
		if j.Status != StatusPending {
			return apperr.ErrInvalidState(fmt.Sprintf("justification %s is already %s", id, j.Status))
		}

		candidates, err := tx.AbsenceCandidates(j.StudentID, j.StartDate, j.EndDate)
		if err != nil {
			return err
		}

		recordIDs := make([]int64, 0, len(candidates))
		sheetIDs := make([]int64, 0, len(candidates))
		seen := make(map[int64]struct{}, len(candidates))
		for _, c := range candidates {
			if c.SheetStatus == sheets.SheetStatusCancelled {
				continue
			}
			recordIDs = append(recordIDs, c.RecordID)
			if _, ok := seen[c.SheetID]; !ok {
				seen[c.SheetID] = struct{}{}
				sheetIDs = append(sheetIDs, c.SheetID)
			}
		}

		flipped, err := tx.FlipJustified(recordIDs)
		if err != nil {
			return err
		}
		for _, sheetID := range sheetIDs {
			if err := tx.RecomputeAggregates(sheetID); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		if err := tx.MarkDecided(StatusApproved, reviewerID, comment, now, int(flipped)); err != nil {
			return err
		}

		j.Status = StatusApproved
		j.ReviewerID = &reviewerID
		j.ReviewComment = comment
		j.ReconciledCount = int(flipped)
		j.DecidedAt = &now
		r := j.toDTO()
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// 却下。コメント必須。レコードには一切触れない
func (s *Service) Reject(ctx context.Context, id, reviewerID string, comment *string) (*JustificationResponse, error) {
	if comment == nil || strings.TrimSpace(*comment) == "" {
		return nil, apperr.ErrInvalid("comment is required when rejecting")
	}

	var resp *JustificationResponse

	err := s.store.WithDecisionTx(ctx, id, func(tx DecisionTx) error {
		j := tx.Justification()
		if j.Status != StatusPending {
			return apperr.ErrInvalidState(fmt.Sprintf("justification %s is already %s", id, j.Status))
		}

		now := s.clock.Now()
		if err := tx.MarkDecided(StatusRejected, reviewerID, comment, now, 0); err != nil {
			return err
		}

		j.Status = StatusRejected
		j.ReviewerID = &reviewerID
		j.ReviewComment = comment
		j.DecidedAt = &now
		r := j.toDTO()
		resp = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*JustificationResponse, error) {
	j, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := j.toDTO()
	return &resp, nil
}

func (s *Service) List(ctx context.Context, f Filter, p Page) (*ListResponse, error) {
	if f.Status != nil {
		switch *f.Status {
		case StatusPending, StatusApproved, StatusRejected:
		default:
			return nil, apperr.ErrInvalid("invalid status filter")
		}
	}
	if f.Category != nil && !validCategory(*f.Category) {
		return nil, apperr.ErrInvalid("invalid category filter")
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

	rows, total, err := s.store.List(ctx, f, p)
	if err != nil {
		return nil, err
	}
	out := make([]JustificationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}

	resp := &ListResponse{Justifications: out, Total: total}
	// 学生単位の問い合わせには内訳も添える
	if f.StudentID != nil {
		counts, err := s.store.CountsByStudent(ctx, *f.StudentID)
		if err != nil {
			return nil, err
		}
		resp.Counts = counts
	}
	return resp, nil
}
