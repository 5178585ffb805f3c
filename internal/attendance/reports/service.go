package reports

import (
	"context"
	"math"
	"time"

	"CAMPUS-backend/internal/platform/apperr"
)

// ===== 皆勤バンド =====
const (
	BandExcellent = "EXCELLENT" // 90%以上
	BandGood      = "BON"       // 75%以上
	BandAverage   = "MOYEN"     // 50%以上
	BandWeak      = "FAIBLE"    // 50%未満
)

func assiduityBand(rate float64) string {
	switch {
	case rate >= 90:
		return BandExcellent
	case rate >= 75:
		return BandGood
	case rate >= 50:
		return BandAverage
	default:
		return BandWeak
	}
}

func rate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}

// validationRate: 判定済みに対する承認の割合(%)
func validationRate(approved, decided int) float64 {
	return rate(approved, decided)
}

type Service struct{ store *Store }

func NewService(store *Store) *Service { return &Service{store: store} }

type DateRange struct {
	From string
	To   string
}

func (r DateRange) validate() error {
	from, err := time.Parse("2006-01-02", r.From)
	if err != nil {
		return apperr.ErrInvalid("from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", r.To)
	if err != nil {
		return apperr.ErrInvalid("to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return apperr.ErrInvalid("to must not be before from")
	}
	return nil
}

func (s *Service) SessionOverview(ctx context.Context, sessionID int64, dr DateRange) (*SessionOverview, error) {
	if err := dr.validate(); err != nil {
		return nil, err
	}
	ov, err := s.store.SessionOverview(ctx, sessionID, dr.From, dr.To)
	if err != nil {
		return nil, err
	}
	total := ov.Present + ov.Absent + ov.Late + ov.Justified
	ov.Rate = rate(ov.Present, total)
	return ov, nil
}

func (s *Service) Assiduity(ctx context.Context, sessionID int64, dr DateRange) ([]StudentAssiduity, error) {
	if err := dr.validate(); err != nil {
		return nil, err
	}
	raw, err := s.store.Assiduity(ctx, sessionID, dr.From, dr.To)
	if err != nil {
		return nil, err
	}

	out := make([]StudentAssiduity, 0, len(raw))
	for _, ra := range raw {
		r := rate(ra.Present, ra.Sessions)
		out = append(out, StudentAssiduity{
			StudentID: ra.StudentID,
			Sessions:  ra.Sessions,
			Present:   ra.Present,
			Rate:      r,
			Band:      assiduityBand(r),
		})
	}
	return out, nil
}

func (s *Service) Lateness(ctx context.Context, sessionID int64, dr DateRange) (*LatenessReport, error) {
	if err := dr.validate(); err != nil {
		return nil, err
	}
	return s.store.Lateness(ctx, sessionID, dr.From, dr.To)
}

func (s *Service) Turnaround(ctx context.Context, dr DateRange) (*TurnaroundReport, error) {
	if err := dr.validate(); err != nil {
		return nil, err
	}
	return s.store.Turnaround(ctx, dr.From, dr.To)
}
