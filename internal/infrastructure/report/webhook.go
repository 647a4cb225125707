package report

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

const (
	defaultTimeout = 5 * time.Second

	EventNG        = "ng"
	EventRecovered = "recovered"
)

// Event: тело запроса к внешней системе линии.
type Event struct {
	Event       string                  `json:"event"`
	OutcomeID   string                  `json:"outcome_id"`
	Verdict     string                  `json:"verdict"`
	MaxGapWidth float64                 `json:"max_gap_width"`
	Lines       []entity.GapMeasurement `json:"lines"`
	Note        string                  `json:"note,omitempty"`
	Model       string                  `json:"model,omitempty"`
	Timestamp   int64                   `json:"timestamp"`
}

// Ack: ответ внешней системы.
type Ack struct {
	Accepted bool `json:"accepted"`
}

// WebhookReporter отправляет смену вердикта POST-запросом в JSON.
type WebhookReporter struct {
	url    string
	model  func() string
	client *resty.Client
	logger *zap.Logger
}

var _ port.AlertNotifier = (*WebhookReporter)(nil)

// NewWebhookReporter создаёт репортер. model возвращает имя текущей модели (может быть nil).
func NewWebhookReporter(url string, model func() string, logger *zap.Logger) *WebhookReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookReporter{
		url:    url,
		model:  model,
		client: resty.New().SetTimeout(defaultTimeout),
		logger: logger,
	}
}

// NotifyNG сообщает о переходе в NG.
func (w *WebhookReporter) NotifyNG(ctx context.Context, outcome *entity.InspectionOutcome) error {
	return w.post(ctx, EventNG, outcome)
}

// NotifyRecovered сообщает о возврате в OK.
func (w *WebhookReporter) NotifyRecovered(ctx context.Context, outcome *entity.InspectionOutcome) error {
	return w.post(ctx, EventRecovered, outcome)
}

func (w *WebhookReporter) post(ctx context.Context, event string, outcome *entity.InspectionOutcome) error {
	body := Event{
		Event:       event,
		OutcomeID:   outcome.ID,
		Verdict:     outcome.Verdict(),
		MaxGapWidth: outcome.MaxGapWidth,
		Lines:       outcome.Lines,
		Note:        outcome.Note,
		Timestamp:   time.Now().Unix(),
	}
	if w.model != nil {
		body.Model = w.model()
	}

	var ack Ack
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&ack).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	w.logger.Debug("webhook delivered",
		zap.String("event", event),
		zap.String("outcome_id", outcome.ID),
		zap.Bool("accepted", ack.Accepted),
	)
	return nil
}
