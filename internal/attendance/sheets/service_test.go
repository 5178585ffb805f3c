package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"CAMPUS-backend/internal/platform/apperr"
)

// ===== テスト用インメモリ実装 =====

type fakeStore struct {
	nextSheetID  int64
	nextRecordID int64
	sheets       map[int64]*Sheet
	records      map[int64][]Record // sheetID -> records
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextSheetID:  1,
		nextRecordID: 1,
		sheets:       make(map[int64]*Sheet),
		records:      make(map[int64][]Record),
	}
}

func (f *fakeStore) InsertSheet(_ context.Context, sh *Sheet, roster []int64) error {
	for _, existing := range f.sheets {
		if existing.SessionID == sh.SessionID && existing.SheetDate == sh.SheetDate {
			return apperr.ErrConflict("sheet already exists")
		}
	}
	sh.SheetID = f.nextSheetID
	f.nextSheetID++
	cp := *sh
	f.sheets[cp.SheetID] = &cp

	recs := make([]Record, 0, len(roster))
	for _, studentID := range roster {
		recs = append(recs, Record{
			RecordID:  f.nextRecordID,
			SheetID:   cp.SheetID,
			StudentID: studentID,
			Status:    StatusAbsent,
		})
		f.nextRecordID++
	}
	f.records[cp.SheetID] = recs
	return nil
}

type fakeSheetTx struct {
	store *fakeStore
	sheet *Sheet
}

func (f *fakeStore) WithSheetTx(_ context.Context, sheetID int64, fn func(tx SheetTx) error) error {
	sh, ok := f.sheets[sheetID]
	if !ok {
		return apperr.ErrNotFound("sheet not found")
	}
	return fn(&fakeSheetTx{store: f, sheet: sh})
}

func (t *fakeSheetTx) Sheet() *Sheet { return t.sheet }

func (t *fakeSheetTx) Records() ([]Record, error) {
	src := t.store.records[t.sheet.SheetID]
	out := make([]Record, len(src))
	copy(out, src)
	return out, nil
}

func (t *fakeSheetTx) UpdateRecord(rec *Record) error {
	recs := t.store.records[t.sheet.SheetID]
	for i := range recs {
		if recs[i].RecordID == rec.RecordID {
			recs[i] = *rec
			return nil
		}
	}
	return errors.New("record not found")
}

func (t *fakeSheetTx) SetStatus(status string) error {
	t.sheet.Status = status
	return nil
}

func (t *fakeSheetTx) SetAggregates(agg Aggregates) error {
	t.sheet.Aggregates = agg
	return nil
}

func (f *fakeStore) GetSheet(_ context.Context, sheetID int64) (*Sheet, error) {
	sh, ok := f.sheets[sheetID]
	if !ok {
		return nil, apperr.ErrNotFound("sheet not found")
	}
	cp := *sh
	return &cp, nil
}

func (f *fakeStore) GetSheetDetail(ctx context.Context, sheetID int64) (*Sheet, []Record, error) {
	sh, err := f.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, nil, err
	}
	src := f.records[sheetID]
	out := make([]Record, len(src))
	copy(out, src)
	return sh, out, nil
}

func (f *fakeStore) ListSheets(_ context.Context, filter SheetFilter, p Page) ([]Sheet, int64, error) {
	var out []Sheet
	for _, sh := range f.sheets {
		if filter.SessionID != nil && sh.SessionID != *filter.SessionID {
			continue
		}
		if filter.Status != nil && sh.Status != *filter.Status {
			continue
		}
		out = append(out, *sh)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) ListRecordsForStudent(_ context.Context, studentID int64, from, to *string) ([]StudentRecord, error) {
	var out []StudentRecord
	for sheetID, recs := range f.records {
		sh := f.sheets[sheetID]
		if sh.Status == SheetStatusCancelled {
			continue
		}
		for _, r := range recs {
			if r.StudentID != studentID {
				continue
			}
			if from != nil && sh.SheetDate < *from {
				continue
			}
			if to != nil && sh.SheetDate > *to {
				continue
			}
			out = append(out, StudentRecord{
				Record:      r,
				SessionID:   sh.SessionID,
				SheetDate:   sh.SheetDate,
				SheetStatus: sh.Status,
				StartTime:   sh.StartTime,
			})
		}
	}
	return out, nil
}

type fakeRoster struct {
	students []int64
}

func (f *fakeRoster) ListEnrolled(context.Context, int64, string) ([]int64, error) {
	return f.students, nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(roster []int64) (*Service, *fakeStore) {
	store := newFakeStore()
	svc := NewService(store, &fakeRoster{students: roster})
	svc.clock = fixedClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	return svc, store
}

func ptr(s string) *string { return &s }

// ===== CreateSheet =====

func TestCreateSheet_SeedsAllAbsent(t *testing.T) {
	svc, store := newTestService([]int64{101, 102, 103})

	resp, err := svc.CreateSheet(context.Background(), CreateSheetRequest{
		SessionID: 1,
		SheetDate: "2026-01-12",
		StartTime: "09:00",
		EndTime:   "10:30",
	})
	assert.NoError(t, err)
	assert.Equal(t, SheetStatusOpen, resp.Status)
	assert.Equal(t, Aggregates{Absent: 3}, resp.Aggregates)
	assert.Equal(t, float64(0), resp.Rate)

	recs := store.records[resp.SheetID]
	assert.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, StatusAbsent, r.Status)
	}
}

func TestCreateSheet_DuplicateSessionDate(t *testing.T) {
	svc, _ := newTestService([]int64{101})

	req := CreateSheetRequest{SessionID: 1, SheetDate: "2026-01-12", StartTime: "09:00", EndTime: "10:30"}
	_, err := svc.CreateSheet(context.Background(), req)
	assert.NoError(t, err)

	_, err = svc.CreateSheet(context.Background(), req)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeConflict, api.Code)
}

func TestCreateSheet_Validation(t *testing.T) {
	svc, _ := newTestService([]int64{101})

	tests := []struct {
		name string
		req  CreateSheetRequest
	}{
		{"bad date", CreateSheetRequest{SessionID: 1, SheetDate: "12/01/2026", StartTime: "09:00", EndTime: "10:30"}},
		{"too far in future", CreateSheetRequest{SessionID: 1, SheetDate: "2026-03-15", StartTime: "09:00", EndTime: "10:30"}},
		{"end before start", CreateSheetRequest{SessionID: 1, SheetDate: "2026-01-12", StartTime: "10:30", EndTime: "09:00"}},
		{"end equals start", CreateSheetRequest{SessionID: 1, SheetDate: "2026-01-12", StartTime: "09:00", EndTime: "09:00"}},
		{"bad start time", CreateSheetRequest{SessionID: 1, SheetDate: "2026-01-12", StartTime: "9am", EndTime: "10:30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSheet(context.Background(), tt.req)
			var api *apperr.APIError
			assert.ErrorAs(t, err, &api)
			assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
		})
	}
}

func TestCreateSheet_FutureWithinLimit(t *testing.T) {
	svc, _ := newTestService([]int64{101})

	// clockは2026-01-10。30日後ちょうどはOK
	_, err := svc.CreateSheet(context.Background(), CreateSheetRequest{
		SessionID: 1, SheetDate: "2026-02-09", StartTime: "09:00", EndTime: "10:30",
	})
	assert.NoError(t, err)
}

// ===== BatchUpdate =====

func createOpenSheet(t *testing.T, svc *Service) int64 {
	t.Helper()
	resp, err := svc.CreateSheet(context.Background(), CreateSheetRequest{
		SessionID: 1, SheetDate: "2026-01-12", StartTime: "09:00", EndTime: "10:30",
	})
	assert.NoError(t, err)
	return resp.SheetID
}

func TestBatchUpdate_AppliesAndAggregates(t *testing.T) {
	svc, _ := newTestService([]int64{101, 102, 103})
	sheetID := createOpenSheet(t, svc)

	resp, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{
			{StudentID: 101, Status: StatusPresent},
			{StudentID: 102, Status: StatusLate, ArrivalTime: ptr("09:15")},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, resp.Applied)
	assert.Empty(t, resp.Skipped)
	assert.Equal(t, Aggregates{Present: 1, Absent: 1, Late: 1}, resp.Aggregates)
	assert.Equal(t, 33.33, resp.Rate)
}

func TestBatchUpdate_SkipsInvalidEntries(t *testing.T) {
	svc, _ := newTestService([]int64{101, 102})
	sheetID := createOpenSheet(t, svc)

	resp, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{
			{StudentID: 101, Status: StatusPresent},
			{StudentID: 999, Status: StatusPresent},                 // 名簿外
			{StudentID: 102, Status: StatusJustifiedAbsent},         // 直接マーク禁止
			{StudentID: 102, Status: StatusLate},                    // arrival_timeなし
			{StudentID: 102, Status: StatusLate, ArrivalTime: ptr("late")}, // arrival_time不正
			{StudentID: 102, Status: "SICK"},                        // 未知のステータス
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, resp.Applied)
	assert.Len(t, resp.Skipped, 5)
	assert.Equal(t, string(apperr.CodeNotFound), resp.Skipped[0].Reason)
	for _, sk := range resp.Skipped[1:] {
		assert.Equal(t, string(apperr.CodeInvalidArgument), sk.Reason)
	}
	// スキップ分は集計に影響しない
	assert.Equal(t, Aggregates{Present: 1, Absent: 1}, resp.Aggregates)
}

func TestBatchUpdate_LastWriteWins(t *testing.T) {
	svc, store := newTestService([]int64{101})
	sheetID := createOpenSheet(t, svc)

	_, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusLate, ArrivalTime: ptr("09:20")}},
	})
	assert.NoError(t, err)

	resp, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	assert.NoError(t, err)
	assert.Equal(t, Aggregates{Present: 1}, resp.Aggregates)

	// PRESENTへ戻したらarrival_timeは消える
	rec := store.records[sheetID][0]
	assert.Equal(t, StatusPresent, rec.Status)
	assert.Nil(t, rec.ArrivalTime)
}

func TestBatchUpdate_RejectedWhenNotOpen(t *testing.T) {
	svc, _ := newTestService([]int64{101})
	sheetID := createOpenSheet(t, svc)

	_, err := svc.Close(context.Background(), sheetID)
	assert.NoError(t, err)

	_, err = svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)
}

func TestBatchUpdate_SheetNotFound(t *testing.T) {
	svc, _ := newTestService([]int64{101})

	_, err := svc.BatchUpdate(context.Background(), 999, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeNotFound, api.Code)
}

// ===== Close / Cancel =====

func TestClose_RefreshesAggregatesAndLocks(t *testing.T) {
	svc, _ := newTestService([]int64{101, 102, 103})
	sheetID := createOpenSheet(t, svc)

	_, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	assert.NoError(t, err)

	resp, err := svc.Close(context.Background(), sheetID)
	assert.NoError(t, err)
	assert.Equal(t, SheetStatusClosed, resp.Status)
	assert.Equal(t, Aggregates{Present: 1, Absent: 2}, resp.Aggregates)
	assert.Equal(t, 33.33, resp.Rate)

	// 二度締めはINVALID_STATE
	_, err = svc.Close(context.Background(), sheetID)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)
}

func TestCancel_OnlyFromOpen(t *testing.T) {
	svc, _ := newTestService([]int64{101})
	sheetID := createOpenSheet(t, svc)

	resp, err := svc.Cancel(context.Background(), sheetID)
	assert.NoError(t, err)
	assert.Equal(t, SheetStatusCancelled, resp.Status)

	// CANCELLEDからの再取消・締めは不可
	_, err = svc.Cancel(context.Background(), sheetID)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)

	_, err = svc.Close(context.Background(), sheetID)
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidState, api.Code)
}

// ===== Statistics =====

func TestStatistics_CancelledSheetIsEmpty(t *testing.T) {
	svc, _ := newTestService([]int64{101, 102})
	sheetID := createOpenSheet(t, svc)

	_, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	assert.NoError(t, err)

	_, err = svc.Cancel(context.Background(), sheetID)
	assert.NoError(t, err)

	stats, err := svc.Statistics(context.Background(), sheetID)
	assert.NoError(t, err)
	assert.Equal(t, SheetStatusCancelled, stats.Status)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, float64(0), stats.Rate)
}

func TestStatistics_ThreeStudents(t *testing.T) {
	svc, _ := newTestService([]int64{101, 102, 103})
	sheetID := createOpenSheet(t, svc)

	_, err := svc.BatchUpdate(context.Background(), sheetID, BatchUpdateRequest{
		Entries: []BatchEntry{
			{StudentID: 101, Status: StatusPresent},
			{StudentID: 102, Status: StatusAbsent},
			{StudentID: 103, Status: StatusLate, ArrivalTime: ptr("09:10")},
		},
	})
	assert.NoError(t, err)

	stats, err := svc.Statistics(context.Background(), sheetID)
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 33.33, stats.Rate)
}

// ===== 学生別一覧 =====

func TestListRecordsForStudent_ExcludesCancelled(t *testing.T) {
	svc, store := newTestService([]int64{101})

	mk := func(date string) int64 {
		resp, err := svc.CreateSheet(context.Background(), CreateSheetRequest{
			SessionID: 1, SheetDate: date, StartTime: "09:00", EndTime: "10:30",
		})
		assert.NoError(t, err)
		// fakeStoreは(session,date)でユニーク判定するためsession側をずらす
		store.sheets[resp.SheetID].SessionID = resp.SheetID
		return resp.SheetID
	}

	s1 := mk("2026-01-05")
	s2 := mk("2026-01-06")

	_, err := svc.BatchUpdate(context.Background(), s1, BatchUpdateRequest{
		Entries: []BatchEntry{{StudentID: 101, Status: StatusPresent}},
	})
	assert.NoError(t, err)

	_, err = svc.Cancel(context.Background(), s2)
	assert.NoError(t, err)

	resp, err := svc.ListRecordsForStudent(context.Background(), 101, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, resp.Records, 1)
	assert.Equal(t, 1, resp.Stats.TotalSessions)
	assert.Equal(t, float64(100), resp.Stats.Rate)
}

func TestListSheets_BadDateFilters(t *testing.T) {
	svc, _ := newTestService(nil)

	bad := "12/01/2026"
	for _, f := range []SheetFilter{
		{Date: &bad},
		{From: &bad},
		{To: &bad},
	} {
		_, err := svc.ListSheets(context.Background(), f, Page{})
		var api *apperr.APIError
		assert.ErrorAs(t, err, &api)
		assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
	}
}

func TestListRecordsForStudent_BadRange(t *testing.T) {
	svc, _ := newTestService(nil)

	bad := "01-05-2026"
	_, err := svc.ListRecordsForStudent(context.Background(), 101, &bad, nil)
	var api *apperr.APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, apperr.CodeInvalidArgument, api.Code)
}
