package calculator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"positionsizer/internal/gateway/notifier"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"
	"positionsizer/internal/store/model"
)

type staticChoices sizing.Choices

func (c staticChoices) Choices() sizing.Choices { return sizing.Choices(c) }

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Insert(ctx context.Context, row *model.CalculationModel) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockRecorder) ListRecent(ctx context.Context, sessionID string, limit int) ([]model.CalculationModel, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CalculationModel), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n notifier.Notice) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func newTestService(rec Recorder, n notifier.Notifier) *Service {
	svc := NewService(staticChoices(sizing.DefaultChoices(sizing.RiskVariantStandard)), session.NewStore(time.Hour), rec, n)
	svc.now = func() time.Time { return time.UnixMilli(1714564800000) }
	return svc
}

func TestService_Compute(t *testing.T) {
	svc := newTestService(nil, nil)
	ctx := context.Background()

	t.Run("scenario 1", func(t *testing.T) {
		out, err := svc.Compute(ctx, session.Form{BalanceText: "1000", StopLossText: "2", RiskPercent: 0.5, Commission: "maker"})
		require.NoError(t, err)
		assert.Equal(t, "245.10", out.Display.PositionSize)
		assert.Equal(t, "-5.00", out.Display.EstimatedLoss)
		assert.Equal(t, "245.10", out.CopyText)
		assert.Equal(t, "maker", out.Tier.Name)
		assert.NotEmpty(t, out.CalcID)
	})

	t.Run("scenario 2 by percent", func(t *testing.T) {
		out, err := svc.Compute(ctx, session.Form{BalanceText: "5000", StopLossText: "1", RiskPercent: 1, Commission: "0.05"})
		require.NoError(t, err)
		assert.Equal(t, "4545.45", out.Display.PositionSize)
		assert.Equal(t, "-50.00", out.Display.EstimatedLoss)
	})

	t.Run("defaults", func(t *testing.T) {
		out, err := svc.Compute(ctx, session.Form{BalanceText: "1000", StopLossText: "2"})
		require.NoError(t, err)
		assert.Equal(t, 0.5, out.Input.RiskPercent)
		assert.Equal(t, 0.02, out.Input.CommissionPercent)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Compute(ctx, session.Form{BalanceText: "abc", StopLossText: "2"})
		assert.Equal(t, sizing.KindParse, sizing.Kind(err))
		_, err = svc.Compute(ctx, session.Form{BalanceText: "1000", StopLossText: "2", RiskPercent: 0.75})
		assert.ErrorIs(t, err, sizing.ErrOptionNotOffered)
		_, err = svc.Compute(ctx, session.Form{BalanceText: "1000", StopLossText: "2", Commission: "vip"})
		assert.ErrorIs(t, err, sizing.ErrOptionNotOffered)
		_, err = svc.Compute(ctx, session.Form{BalanceText: "-1", StopLossText: "2"})
		assert.Equal(t, sizing.KindInvalid, sizing.Kind(err))
	})
}

func TestService_Compute_Undefined(t *testing.T) {
	choices := sizing.DefaultChoices(sizing.RiskVariantStandard)
	choices.Commission = append(choices.Commission, sizing.CommissionTier{Name: "free", Label: "Free", Percent: 0})
	svc := NewService(staticChoices(choices), session.NewStore(time.Hour), nil, nil)

	_, err := svc.Compute(context.Background(), session.Form{BalanceText: "1000", StopLossText: "0", Commission: "free"})
	assert.ErrorIs(t, err, sizing.ErrUndefinedResult)
}

func TestService_Calculate(t *testing.T) {
	rec := new(MockRecorder)
	note := new(MockNotifier)
	svc := newTestService(rec, note)
	ctx := context.Background()
	st := svc.NewSession()
	assert.Equal(t, 0.5, st.Form.RiskPercent)
	assert.Equal(t, "maker", st.Form.Commission)

	rec.On("Insert", mock.Anything, mock.MatchedBy(func(row *model.CalculationModel) bool {
		return row.Status == model.StatusOK && row.SessionID == st.ID && row.CreatedAt == 1714564800000
	})).Return(nil).Once()
	note.On("Notify", mock.Anything, mock.MatchedBy(func(n notifier.Notice) bool {
		return n.Level == notifier.LevelSuccess && n.SessionID == st.ID && n.Lines[0] == "Position size: 245.10"
	})).Return(nil).Once()

	out, state, err := svc.Calculate(ctx, st.ID, session.Form{BalanceText: "1000", StopLossText: "2", RiskPercent: 0.5, Commission: "maker"})
	require.NoError(t, err)
	assert.Equal(t, "245.10", out.Display.PositionSize)
	assert.True(t, state.HasResult)

	text, err := svc.CopyText(st.ID)
	require.NoError(t, err)
	assert.Equal(t, "245.10", text)

	rec.On("Insert", mock.Anything, mock.MatchedBy(func(row *model.CalculationModel) bool {
		return row.Status == model.StatusParseError && row.Error != "" && string(row.RequestJSON) != "" && row.CalcID != ""
	})).Return(errors.New("disk full")).Once()
	note.On("Notify", mock.Anything, mock.MatchedBy(func(n notifier.Notice) bool {
		return n.IsError()
	})).Return(errors.New("telegram down")).Once()

	_, state, err = svc.Calculate(ctx, st.ID, session.Form{BalanceText: "abc", StopLossText: "2", RiskPercent: 0.5, Commission: "maker"})
	assert.Equal(t, sizing.KindParse, sizing.Kind(err))
	assert.Equal(t, "245.10", state.Display().PositionSize)
	assert.Equal(t, "abc", state.Form.BalanceText)
	assert.Equal(t, sizing.KindParse, state.ErrorKind)

	text, err = svc.CopyText(st.ID)
	require.NoError(t, err)
	assert.Equal(t, "245.10", text)

	rec.AssertExpectations(t)
	note.AssertExpectations(t)
}

func TestService_CalculateUnknownSession(t *testing.T) {
	svc := newTestService(nil, nil)
	_, _, err := svc.Calculate(context.Background(), "missing", session.Form{})
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = svc.CopyText("missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestService_CopyTextBeforeFirstRun(t *testing.T) {
	svc := newTestService(nil, nil)
	st := svc.NewSession()
	text, err := svc.CopyText(st.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", text)
}

func TestService_History(t *testing.T) {
	svc := newTestService(nil, nil)
	_, err := svc.History(context.Background(), "s", 10)
	assert.ErrorIs(t, err, ErrJournalDisabled)

	rec := new(MockRecorder)
	svc = newTestService(rec, nil)
	rec.On("ListRecent", mock.Anything, "s", 10).Return([]model.CalculationModel{{CalcID: "c1"}}, nil)
	rows, err := svc.History(context.Background(), "s", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "c1", rows[0].CalcID)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, model.StatusOK, Status(nil))
	assert.Equal(t, model.StatusUndefined, Status(sizing.ErrUndefinedResult))
	assert.Equal(t, model.StatusNotOffered, Status(sizing.ErrOptionNotOffered))
	assert.Equal(t, model.StatusInvalid, Status(&sizing.ValidationError{Field: "balance"}))
	assert.Equal(t, model.StatusInternal, Status(errors.New("x")))
}

func newFailingTelegram(t *testing.T) *notifier.Telegram {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	tg := notifier.NewTelegram("TOKEN", "42")
	tg.APIBase = srv.URL
	return tg
}

func TestService_CalculateWithQueuedTelegramDown(t *testing.T) {
	q := notifier.NewQueue(notifier.TelegramNotifier{Sender: newFailingTelegram(t)}, 4, 200*time.Millisecond)
	svc := newTestService(nil, notifier.Multi{notifier.LogNotifier{}, q})
	st := svc.NewSession()

	start := time.Now()
	out, _, err := svc.Calculate(context.Background(), st.ID, session.Form{BalanceText: "1000", StopLossText: "2", RiskPercent: 0.5, Commission: "maker"})
	require.NoError(t, err)
	assert.Equal(t, "245.10", out.Display.PositionSize)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	require.NoError(t, q.Close())
}

func TestService_CalculateRespectsContextWhenTelegramDown(t *testing.T) {
	svc := newTestService(nil, notifier.TelegramNotifier{Sender: newFailingTelegram(t)})
	st := svc.NewSession()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	out, _, err := svc.Calculate(ctx, st.ID, session.Form{BalanceText: "1000", StopLossText: "2", RiskPercent: 0.5, Commission: "maker"})
	require.NoError(t, err)
	assert.Equal(t, "245.10", out.CopyText)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}
