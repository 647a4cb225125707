package app

import (
	"context"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

type OperatorService struct {
	repo port.OperatorRepository
}

func NewOperatorService(repo port.OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

func (s *OperatorService) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *OperatorService) SetState(ctx context.Context, userID, chatID int64, state entity.OperatorState) (*entity.Operator, error) {
	op, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	op.SetState(state)
	if err := s.repo.Save(ctx, op); err != nil {
		return nil, err
	}

	return op, nil
}

// BeginModelSelection ждёт от оператора имя модели следующим сообщением.
func (s *OperatorService) BeginModelSelection(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingModelName)
}

func (s *OperatorService) Cancel(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.StateIdle)
}

// SetAlerts включает или выключает NG-уведомления оператору.
func (s *OperatorService) SetAlerts(ctx context.Context, userID, chatID int64, on bool) (*entity.Operator, error) {
	op, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	op.Alerts = on
	if err := s.repo.Save(ctx, op); err != nil {
		return nil, err
	}

	return op, nil
}

// Subscribers возвращает операторов, ждущих уведомлений.
func (s *OperatorService) Subscribers(ctx context.Context) ([]*entity.Operator, error) {
	return s.repo.Subscribers(ctx)
}
