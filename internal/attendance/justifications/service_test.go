package justifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"CAMPUS-backend/internal/attendance/sheets"
	"CAMPUS-backend/internal/platform/apperr"
)

// ===== テスト用インメモリ実装 =====

type fakeSheet struct {
	sheetDate string
	status    string
}

type fakeRecord struct {
	recordID  int64
	sheetID   int64
	studentID int64
	status    string
}

type fakeStore struct {
	justifications map[string]*Justification
	sheets         map[int64]*fakeSheet
	records        map[int64]*fakeRecord
	recomputed     []int64 // RecomputeAggregates呼び出し記録
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		justifications: make(map[string]*Justification),
		sheets:         make(map[int64]*fakeSheet),
		records:        make(map[int64]*fakeRecord),
	}
}

func (f *fakeStore) addSheet(sheetID int64, date, status string) {
	f.sheets[sheetID] = &fakeSheet{sheetDate: date, status: status}
}

func (f *fakeStore) addRecord(recordID, sheetID, studentID int64, status string) {
	f.records[recordID] = &fakeRecord{recordID: recordID, sheetID: sheetID, studentID: studentID, status: status}
}

func (f *fakeStore) Insert(_ context.Context, j *Justification) error {
	if _, ok := f.justifications[j.JustificationID]; ok {
		return apperr.ErrConflict("duplicate id")
	}
	cp := *j
	f.justifications[cp.JustificationID] = &cp
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*Justification, error) {
	j, ok := f.justifications[id]
	if !ok {
		return nil, apperr.ErrNotFound("justification not found")
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, filter Filter, _ Page) ([]Justification, int64, error) {
	var out []Justification
	for _, j := range f.justifications {
		if filter.StudentID != nil && j.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && j.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && j.Category != *filter.Category {
			continue
		}
		out = append(out, *j)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) CountsByStudent(_ context.Context, studentID int64) (*StatusCounts, error) {
	var c StatusCounts
	for _, j := range f.justifications {
		if j.StudentID != studentID {
			continue
		}
		switch j.Status {
		case StatusPending:
			c.Pending++
		case StatusApproved:
			c.Approved++
		case StatusRejected:
			c.Rejected++
		}
	}
	return &c, nil
}

type fakeDecisionTx struct {
	store *fakeStore
	j     *Justification
}

func (f *fakeStore) WithDecisionTx(_ context.Context, id string, fn func(tx DecisionTx) error) error {
	j, ok := f.justifications[id]
	if !ok {
		return apperr.ErrNotFound("justification not found")
	}
	return fn(&fakeDecisionTx{store: f, j: j})
}

func (t *fakeDecisionTx) Justification() *Justification { return t.j }

func (t *fakeDecisionTx) MarkDecided(status, reviewerID string, comment *string, decidedAt time.Time, reconciled int) error {
	t.j.Status = status
	t.j.ReviewerID = &reviewerID
	t.j.ReviewComment = comment
	t.j.DecidedAt = &decidedAt
	t.j.ReconciledCount = reconciled
	return nil
}

func (t *fakeDecisionTx) AbsenceCandidates(studentID int64, from, to string) ([]sheets.AbsenceCandidate, error) {
	var out []sheets.AbsenceCandidate
	for _, r := range t.store.records {
		if r.studentID != studentID || r.status != sheets.StatusAbsent {
			continue
		}
		sh := t.store.sheets[r.sheetID]
		if sh.sheetDate < from || sh.sheetDate > to {
			continue
		}
		out = append(out, sheets.AbsenceCandidate{
			RecordID:    r.recordID,
			SheetID:     r.sheetID,
			SheetDate:   sh.sheetDate,
			SheetStatus: sh.status,
		})
	}
	return out, nil
}

func (t *fakeDecisionTx) FlipJustified(recordIDs []int64) (int64, error) {
	var n int64
	for _, id := range recordIDs {
		r, ok := t.store.records[id]
		if !ok || r.status != sheets.StatusAbsent {
			continue
		}
		r.status = sheets.StatusJustifiedAbsent
		n++
	}
	return n, nil
}

func (t *fakeDecisionTx) RecomputeAggregates(sheetID int64) error {
	t.store.recomputed = append(t.store.recomputed, sheetID)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() string {
	g.n++
	return "01JTEST" + string(rune('A'+g.n-1))
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store)
	svc.clock = fixedClock{now: time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)}
	svc.idgen = &seqIDGen{}
	return svc, store
}

func ptr(s string) *string { return &s }

// ===== Submit =====

func TestSubmit(t *testing.T) {
	svc, _ := newTestService()

	resp, err := svc.Submit(context.Background(), SubmitRequest{
		StudentID: 101,
		Category:  CategoryMedical,
		StartDate: "2026-01-05",
		EndDate:   "2026-01-12",
		Reason:    "hospitalized",
	})
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, resp.Status)
	assert.NotEmpty(t, resp.JustificationID)
	assert.Equal(t, 0, resp.ReconciledCount)
	assert.Nil(t, resp.DecidedAt)
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"unknown category", SubmitRequest{StudentID: 101, Category: "VACATION", StartDate: "2026-01-05", EndDate: "2026-01-06", Reason: "x"}},
		{"empty reason", SubmitRequest{StudentID: 101, Category: CategoryOther, StartDate: "2026-01-05", EndDate: "2026-01-06", Reason: "   "}},
		{"end before start", SubmitRequest{StudentID: 101, Category: CategoryOther, StartDate: "2026-01-06", EndDate: "2026-01-05", Reason: "x"}},
		{"bad start date", SubmitRequest{StudentID: 101, Category: CategoryOther, StartDate: "05/01/2026", EndDate: "2026-01-06", Reason: "x"}},
		// clockは2026-01-20。180日前より古い開始日は弾く
		{"beyond retention", SubmitRequest{StudentID: 101, Category: CategoryOther, StartDate: "2025-07-01", EndDate: "2026-01-06", Reason: "x"}},
		{"future end date", SubmitRequest{StudentID: 101, Category: CategoryOther, StartDate: "2026-01-19", EndDate: "2026-01-25", Reason: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			var api *apperr.APIError
			assert.ErrorAs(t, err, &api)
			assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
		})
	}
}

func TestSubmit_SingleDayRange(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		StudentID: 101,
		Category:  CategoryFamily,
		StartDate: "2026-01-12",
		EndDate:   "2026-01-12",
		Reason:    "funeral",
	})
	assert.NoError(t, err)
}

// ===== Approve / 照合 =====

func submitPending(t *testing.T, svc *Service, studentID int64, from, to string) string {
	t.Helper()
	resp, err := svc.Submit(context.Background(), SubmitRequest{
		StudentID: studentID,
		Category:  CategoryMedical,
		StartDate: from,
		EndDate:   to,
		Reason:    "sick leave",
	})
	assert.NoError(t, err)
	return resp.JustificationID
}

func TestApprove_ReconcilesAbsences(t *testing.T) {
	svc, store := newTestService()

	// 5シート: 期間内CLOSED×2(欠席)、期間内OPEN×1(欠席)、期間内だが出席1、期間外1
	store.addSheet(1, "2026-01-05", sheets.SheetStatusClosed)
	store.addSheet(2, "2026-01-07", sheets.SheetStatusClosed)
	store.addSheet(3, "2026-01-09", sheets.SheetStatusOpen)
	store.addSheet(4, "2026-01-10", sheets.SheetStatusClosed)
	store.addSheet(5, "2026-01-15", sheets.SheetStatusClosed)
	store.addRecord(11, 1, 101, sheets.StatusAbsent)
	store.addRecord(12, 2, 101, sheets.StatusAbsent)
	store.addRecord(13, 3, 101, sheets.StatusAbsent)
	store.addRecord(14, 4, 101, sheets.StatusPresent)
	store.addRecord(15, 5, 101, sheets.StatusAbsent)

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	resp, err := svc.Approve(context.Background(), id, "reviewer-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, resp.Status)
	assert.Equal(t, 3, resp.ReconciledCount)
	assert.Equal(t, "reviewer-1", *resp.ReviewerID)
	assert.NotNil(t, resp.DecidedAt)

	// 期間内のABSENTのみ遷移
	assert.Equal(t, sheets.StatusJustifiedAbsent, store.records[11].status)
	assert.Equal(t, sheets.StatusJustifiedAbsent, store.records[12].status)
	assert.Equal(t, sheets.StatusJustifiedAbsent, store.records[13].status)
	assert.Equal(t, sheets.StatusPresent, store.records[14].status)
	assert.Equal(t, sheets.StatusAbsent, store.records[15].status)

	// 影響シートの集計は取り直される
	assert.ElementsMatch(t, []int64{1, 2, 3}, store.recomputed)
}

func TestApprove_SkipsCancelledSheets(t *testing.T) {
	svc, store := newTestStoreWithCancelled()

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	resp, err := svc.Approve(context.Background(), id, "reviewer-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, resp.ReconciledCount)

	// 取消済みシートの欠席行はABSENTのまま
	assert.Equal(t, sheets.StatusAbsent, store.records[22].status)
	assert.Equal(t, []int64{1}, store.recomputed)
}

func newTestStoreWithCancelled() (*Service, *fakeStore) {
	svc, store := newTestService()
	store.addSheet(1, "2026-01-05", sheets.SheetStatusClosed)
	store.addSheet(2, "2026-01-07", sheets.SheetStatusCancelled)
	store.addRecord(21, 1, 101, sheets.StatusAbsent)
	store.addRecord(22, 2, 101, sheets.StatusAbsent)
	return svc, store
}

func TestApprove_NoMatchingAbsences(t *testing.T) {
	svc, store := newTestService()
	store.addSheet(1, "2026-01-05", sheets.SheetStatusClosed)
	store.addRecord(31, 1, 101, sheets.StatusPresent)

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	// 照合対象ゼロでも承認自体は成立する
	resp, err := svc.Approve(context.Background(), id, "reviewer-1", nil)
	assert.NoError(t, err)
	assert.Equal(t, StatusApproved, resp.Status)
	assert.Equal(t, 0, resp.ReconciledCount)
	assert.Empty(t, store.recomputed)
}

func TestApprove_OnlyTargetStudent(t *testing.T) {
	svc, store := newTestService()
	store.addSheet(1, "2026-01-05", sheets.SheetStatusClosed)
	store.addRecord(41, 1, 101, sheets.StatusAbsent)
	store.addRecord(42, 1, 202, sheets.StatusAbsent)

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	_, err := svc.Approve(context.Background(), id, "reviewer-1", nil)
	assert.NoError(t, err)

	assert.Equal(t, sheets.StatusJustifiedAbsent, store.records[41].status)
	assert.Equal(t, sheets.StatusAbsent, store.records[42].status)
}

func TestApprove_AlreadyDecided(t *testing.T) {
	svc, _ := newTestService()

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	_, err := svc.Approve(context.Background(), id, "reviewer-1", nil)
	assert.NoError(t, err)

	// 再承認も、承認後の却下もINVALID_STATE
	_, err = svc.Approve(context.Background(), id, "reviewer-2", nil)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)

	_, err = svc.Reject(context.Background(), id, "reviewer-2", ptr("too late"))
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)
}

func TestApprove_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Approve(context.Background(), "nonexistent", "reviewer-1", nil)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeNotFound, api.Code)
}

// ===== Reject =====

func TestReject_RequiresComment(t *testing.T) {
	svc, _ := newTestService()

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	_, err := svc.Reject(context.Background(), id, "reviewer-1", nil)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidArgument, api.Code)

	_, err = svc.Reject(context.Background(), id, "reviewer-1", ptr("  "))
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
}

func TestReject_DoesNotTouchRecords(t *testing.T) {
	svc, store := newTestService()
	store.addSheet(1, "2026-01-05", sheets.SheetStatusClosed)
	store.addRecord(51, 1, 101, sheets.StatusAbsent)

	id := submitPending(t, svc, 101, "2026-01-05", "2026-01-12")

	resp, err := svc.Reject(context.Background(), id, "reviewer-1", ptr("evidence missing"))
	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, resp.Status)
	assert.Equal(t, "evidence missing", *resp.ReviewComment)
	assert.Equal(t, 0, resp.ReconciledCount)

	assert.Equal(t, sheets.StatusAbsent, store.records[51].status)
	assert.Empty(t, store.recomputed)
}

// ===== List =====

func TestList_FilterByStatus(t *testing.T) {
	svc, _ := newTestService()

	id1 := submitPending(t, svc, 101, "2026-01-05", "2026-01-06")
	submitPending(t, svc, 102, "2026-01-07", "2026-01-08")

	_, err := svc.Reject(context.Background(), id1, "reviewer-1", ptr("no"))
	assert.NoError(t, err)

	pending := StatusPending
	resp, err := svc.List(context.Background(), Filter{Status: &pending}, Page{})
	assert.NoError(t, err)
	assert.Len(t, resp.Justifications, 1)
	assert.Equal(t, int64(102), resp.Justifications[0].StudentID)
}

func TestList_StudentCounts(t *testing.T) {
	svc, _ := newTestService()

	id1 := submitPending(t, svc, 101, "2026-01-05", "2026-01-06")
	submitPending(t, svc, 101, "2026-01-07", "2026-01-08")
	submitPending(t, svc, 202, "2026-01-07", "2026-01-08")

	_, err := svc.Reject(context.Background(), id1, "reviewer-1", ptr("no evidence"))
	assert.NoError(t, err)

	student := int64(101)
	resp, err := svc.List(context.Background(), Filter{StudentID: &student}, Page{})
	assert.NoError(t, err)
	assert.Len(t, resp.Justifications, 2)
	assert.NotNil(t, resp.Counts)
	assert.Equal(t, StatusCounts{Pending: 1, Rejected: 1}, *resp.Counts)

	// 学生指定なしなら内訳は付かない
	resp, err = svc.List(context.Background(), Filter{}, Page{})
	assert.NoError(t, err)
	assert.Nil(t, resp.Counts)
}

func TestList_InvalidStatusFilter(t *testing.T) {
	svc, _ := newTestService()

	bad := "DECIDED"
	_, err := svc.List(context.Background(), Filter{Status: &bad}, Page{})
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
}
