package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"positionsizer/internal/store"
	"positionsizer/internal/store/model"
)

var _ store.Journal = (*SqliteStore)(nil)

func openTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s, err := NewSqliteStore(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteStore_InsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []*model.CalculationModel{
		{CalcID: "c1", SessionID: "s1", Balance: 1000, StopLossPct: 2, RiskPct: 0.5, CommissionPct: 0.02, PositionSize: 245.1, EstimatedLoss: -5, Status: model.StatusOK, CreatedAt: 1000},
		{CalcID: "c2", SessionID: "s1", Status: model.StatusParseError, Error: "balance: \"abc\"", RequestJSON: datatypes.JSON(`{"balance":"abc"}`), CreatedAt: 2000},
		{CalcID: "c3", SessionID: "s2", Status: model.StatusUndefined, CreatedAt: 3000},
	}
	for _, r := range rows {
		require.NoError(t, s.Insert(ctx, r))
		assert.NotZero(t, r.ID)
	}

	got, err := s.ListRecent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].CalcID)
	assert.JSONEq(t, `{"balance":"abc"}`, string(got[0].RequestJSON))
	assert.Equal(t, 245.1, got[1].PositionSize)

	all, err := s.ListRecent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c3", all[0].CalcID)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ok": 1, "parse_error": 1, "undefined": 1}, counts)
}

func TestSqliteStore_Rejects(t *testing.T) {
	_, err := NewSqliteStore("  ")
	assert.Error(t, err)
	_, err = NewSqliteStoreFromDB(nil)
	assert.Error(t, err)

	s := openTestStore(t)
	assert.Error(t, s.Insert(context.Background(), nil))
}

func TestSqliteStore_DuplicateCalcID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, &model.CalculationModel{CalcID: "dup", Status: model.StatusOK}))
	assert.Error(t, s.Insert(ctx, &model.CalculationModel{CalcID: "dup", Status: model.StatusOK}))
}
