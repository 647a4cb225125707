package port

import (
	"context"

	"connector-vision/internal/domain/entity"
)

// AlertNotifier получает смену вердикта OK/NG
type AlertNotifier interface {
	// NotifyNG вызывается при переходе OK -> NG
	NotifyNG(ctx context.Context, outcome *entity.InspectionOutcome) error

	// NotifyRecovered вызывается при переходе NG -> OK
	NotifyRecovered(ctx context.Context, outcome *entity.InspectionOutcome) error
}

// OutcomeRecorder принимает каждый результат (метрики)
type OutcomeRecorder interface {
	Record(outcome *entity.InspectionOutcome)
}
