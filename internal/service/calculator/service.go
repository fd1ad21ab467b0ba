// Package calculator ties the sizing formula to the configured choices,
// per-session state, the journal and notifications.
package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"positionsizer/internal/gateway/notifier"
	"positionsizer/internal/logger"
	"positionsizer/internal/session"
	"positionsizer/internal/sizing"
	"positionsizer/internal/store/model"
)

var ErrJournalDisabled = errors.New("journal disabled")

// ChoicesSource yields the currently offered risk and commission choices.
type ChoicesSource interface {
	Choices() sizing.Choices
}

// Recorder is the slice of the journal the service writes to and reads from.
type Recorder interface {
	Insert(ctx context.Context, row *model.CalculationModel) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]model.CalculationModel, error)
}

// Outcome is a successful calculation together with the resolved options.
type Outcome struct {
	CalcID   string                `json:"calc_id"`
	Input    sizing.Input          `json:"input"`
	Tier     sizing.CommissionTier `json:"commission"`
	Result   sizing.Result         `json:"result"`
	Display  sizing.Display        `json:"display"`
	CopyText string                `json:"copy_text"`
}

type Service struct {
	choices  ChoicesSource
	sessions *session.Store
	journal  Recorder
	notifier notifier.Notifier
	now      func() time.Time
}

// NewService wires the collaborators. journal and notify may be nil.
func NewService(choices ChoicesSource, sessions *session.Store, journal Recorder, notify notifier.Notifier) *Service {
	return &Service{
		choices:  choices,
		sessions: sessions,
		journal:  journal,
		notifier: notify,
		now:      time.Now,
	}
}

// Choices returns the currently offered options.
func (s *Service) Choices() sizing.Choices {
	return s.choices.Choices()
}

// Compute resolves the selections, parses the text fields and applies the
// formula. It touches no state.
func (s *Service) Compute(ctx context.Context, form session.Form) (Outcome, error) {
	_, out, err := s.compute(form)
	return out, err
}

func (s *Service) compute(form session.Form) (session.Form, Outcome, error) {
	choices := s.choices.Choices()
	if form.RiskPercent == 0 {
		form.RiskPercent = choices.DefaultRisk
	}
	tier, tierErr := choices.Tier(form.Commission)
	if tierErr == nil {
		form.Commission = tier.Name
	}

	in, err := sizing.ParseInput(form.BalanceText, form.StopLossText, form.RiskPercent, tier.Percent)
	if err != nil {
		return form, Outcome{}, err
	}
	if err := choices.CheckRisk(form.RiskPercent); err != nil {
		return form, Outcome{}, err
	}
	if tierErr != nil {
		return form, Outcome{}, tierErr
	}
	res, err := sizing.Compute(in)
	if err != nil {
		return form, Outcome{Input: in, Tier: tier}, err
	}
	return form, Outcome{
		CalcID:   uuid.NewString(),
		Input:    in,
		Tier:     tier,
		Result:   res,
		Display:  res.Display(),
		CopyText: res.CopyText(),
	}, nil
}

// NewSession opens a session preset to the default selections.
func (s *Service) NewSession() session.State {
	choices := s.choices.Choices()
	return s.sessions.Create(session.Form{
		RiskPercent: choices.DefaultRisk,
		Commission:  choices.DefaultCommission,
	})
}

// Session returns the stored state for id.
func (s *Service) Session(id string) (session.State, error) {
	st, ok := s.sessions.Get(id)
	if !ok {
		return session.State{}, session.ErrNotFound
	}
	return st, nil
}

// Calculate runs Compute for a session, stores the outcome on the session,
// journals the attempt and emits a notice. Journal and notification
// failures are logged only.
func (s *Service) Calculate(ctx context.Context, sessionID string, form session.Form) (Outcome, session.State, error) {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return Outcome{}, session.State{}, session.ErrNotFound
	}
	resolved, out, calcErr := s.compute(form)
	at := s.now()
	st, err := s.sessions.Update(sessionID, func(st *session.State) {
		st.Record(resolved, out.Result, calcErr, at)
	})
	if err != nil {
		return Outcome{}, session.State{}, err
	}

	s.record(ctx, sessionID, form, out, calcErr, at)
	s.notify(ctx, sessionID, out, calcErr, at)

	if calcErr != nil {
		logger.Debugf("[calc] session=%s kind=%s err=%v", sessionID, sizing.Kind(calcErr), calcErr)
		return Outcome{}, st, calcErr
	}
	logger.Infof("[calc] session=%s size=%s loss=%s", sessionID, out.Display.PositionSize, out.Display.EstimatedLoss)
	return out, st, nil
}

// CopyText returns the position size as shown for the session.
func (s *Service) CopyText(sessionID string) (string, error) {
	st, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}
	return st.Result.CopyText(), nil
}

// History lists the journalled attempts of a session, newest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]model.CalculationModel, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	rows, err := s.journal.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return rows, nil
}

func (s *Service) record(ctx context.Context, sessionID string, form session.Form, out Outcome, calcErr error, at time.Time) {
	if s.journal == nil {
		return
	}
	row := &model.CalculationModel{
		CalcID:        out.CalcID,
		SessionID:     sessionID,
		Balance:       out.Input.Balance,
		StopLossPct:   out.Input.StopLossPercent,
		RiskPct:       out.Input.RiskPercent,
		CommissionPct: out.Input.CommissionPercent,
		PositionSize:  out.Result.PositionSize,
		EstimatedLoss: out.Result.EstimatedLoss,
		Status:        Status(calcErr),
		CreatedAt:     at.UnixMilli(),
	}
	if row.CalcID == "" {
		row.CalcID = uuid.NewString()
	}
	if calcErr != nil {
		row.Error = calcErr.Error()
	}
	if raw, err := json.Marshal(form); err == nil {
		row.RequestJSON = datatypes.JSON(raw)
	}
	if err := s.journal.Insert(ctx, row); err != nil {
		logger.Warnf("[calc] journal insert failed session=%s: %v", sessionID, err)
	}
}

func (s *Service) notify(ctx context.Context, sessionID string, out Outcome, calcErr error, at time.Time) {
	if s.notifier == nil {
		return
	}
	n := notifier.Notice{SessionID: sessionID, At: at}
	if calcErr != nil {
		n.Level = notifier.LevelError
		n.Title = "Calculation failed"
		n.Lines = []string{calcErr.Error()}
	} else {
		n.Level = notifier.LevelSuccess
		n.Title = "Position size calculated"
		n.Lines = []string{
			"Position size: " + out.Display.PositionSize,
			"Estimated loss: " + out.Display.EstimatedLoss,
		}
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Warnf("[calc] notify failed session=%s: %v", sessionID, err)
	}
}

// Status maps a calculation error onto the journal status column.
func Status(err error) string {
	switch sizing.Kind(err) {
	case "":
		return model.StatusOK
	case sizing.KindParse:
		return model.StatusParseError
	case sizing.KindInvalid:
		return model.StatusInvalid
	case sizing.KindUndefined:
		return model.StatusUndefined
	case sizing.KindNotOffered:
		return model.StatusNotOffered
	default:
		return model.StatusInternal
	}
}
