package port

import (
	"context"

	"connector-vision/internal/domain/entity"
)

// OperatorRepository интерфейс хранилища операторов
type OperatorRepository interface {
	// Get возвращает оператора по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error)

	// Save сохраняет состояние оператора
	Save(ctx context.Context, op *entity.Operator) error

	// UpdateState обновляет состояние оператора
	UpdateState(ctx context.Context, userID int64, state entity.OperatorState) error

	// Subscribers возвращает операторов, подписанных на уведомления
	Subscribers(ctx context.Context) ([]*entity.Operator, error)
}

// SettingsRepository интерфейс хранилища настроек и моделей
type SettingsRepository interface {
	Load() (*entity.InspectionSettings, error)
	Save(settings *entity.InspectionSettings) error
	ModelNames() ([]string, error)
	LoadModel(name string) (*entity.InspectionSettings, error)
	SaveModel(name string, settings *entity.InspectionSettings) error
	DeleteModel(name string) error
}
