package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Rileydk/Pomodoro/internal/errors"
	"github.com/Rileydk/Pomodoro/internal/model"
	"github.com/Rileydk/Pomodoro/internal/session"
)

type SessionService struct {
	engine  *session.Engine
	reports *ReportService
}

type StateView struct {
	model.SessionSnapshot
	Schedule     model.ScheduleConfig `json:"schedule"`
	ReportsStale bool                 `json:"reportsStale"`
	ServerTime   time.Time            `json:"serverTime"`
}

func NewSessionService(engine *session.Engine, reports *ReportService) *SessionService {
	return &SessionService{engine: engine, reports: reports}
}

func (s *SessionService) GetState() *StateView {
	return s.toStateView(s.engine.Snapshot())
}

func (s *SessionService) Start(ctx context.Context) (*StateView, *apperrors.APIError) {
	snapshot, err := s.engine.Start(ctx)
	if err != nil {
		return nil, s.transitionError(err, snapshot)
	}
	return s.toStateView(snapshot), nil
}

func (s *SessionService) Pause(ctx context.Context) (*StateView, *apperrors.APIError) {
	snapshot, err := s.engine.Pause(ctx)
	if err != nil {
		return nil, s.transitionError(err, snapshot)
	}
	return s.toStateView(snapshot), nil
}

func (s *SessionService) Reset(ctx context.Context) *StateView {
	return s.toStateView(s.engine.ResetRound(ctx))
}

func (s *SessionService) Background() *StateView {
	return s.toStateView(s.engine.EnterBackground())
}

func (s *SessionService) Foreground(ctx context.Context) *StateView {
	return s.toStateView(s.engine.EnterForeground(ctx))
}

func (s *SessionService) transitionError(err error, snapshot model.SessionSnapshot) *apperrors.APIError {
	if errors.Is(err, session.ErrInvalidTransition) {
		return apperrors.Conflict("invalid_transition", err.Error(), map[string]interface{}{
			"state": s.toStateView(snapshot),
		})
	}
	return apperrors.Internal("failed to change session state").WithCause(err)
}

func (s *SessionService) toStateView(snapshot model.SessionSnapshot) *StateView {
	view := &StateView{
		SessionSnapshot: snapshot,
		Schedule:        s.engine.Schedule(),
		ServerTime:      time.Now().UTC(),
	}
	if s.reports != nil {
		view.ReportsStale = s.reports.Stale()
	}
	return view
}
