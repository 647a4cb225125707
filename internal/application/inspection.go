package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
	"connector-vision/internal/infrastructure/vision"
)

var (
	// ErrBusy: предыдущая инспекция ещё не закончилась, тик пропущен.
	ErrBusy = errors.New("inspection already in progress")
	// ErrNoFrame: камера ещё не дала ни одного кадра.
	ErrNoFrame = errors.New("no frame available")
)

// PropertyApplier применяет свойства камеры из профиля модели.
type PropertyApplier interface {
	ApplyProperties(p entity.CameraProperties) error
}

// PropertyReader читает текущие свойства камеры для сохранения в профиль.
type PropertyReader interface {
	ReadProperties() (entity.CameraProperties, error)
}

// InspectionService гоняет движок по снимкам камеры и раздаёт результаты.
// Гарантирует один Inspect в полёте и не пускает ResetSmoothing параллельно с ним.
type InspectionService struct {
	frames    port.FrameProvider
	inspector port.GapInspector
	repo      port.SettingsRepository
	logger    *zap.Logger

	renderer  port.DiagnosticRenderer
	recorder  port.OutcomeRecorder
	notifiers []port.AlertNotifier
	camera    PropertyApplier

	inspectMu sync.Mutex
	inFlight  atomic.Bool
	rendering atomic.Bool

	mu       sync.RWMutex
	settings *entity.InspectionSettings
	latest   *entity.InspectionOutcome
	stats    entity.InspectionStats
	failing  bool

	subMu   sync.Mutex
	subs    map[int]chan *entity.InspectionOutcome
	nextSub int

	notifyMu   sync.Mutex
	notifyTail chan struct{}
	notifyWG   sync.WaitGroup
}

// ServiceOption подключает необязательных участников.
type ServiceOption func(*InspectionService)

// WithRenderer включает отрисовку диагностики.
func WithRenderer(r port.DiagnosticRenderer) ServiceOption {
	return func(s *InspectionService) {
		s.renderer = r
		s.rendering.Store(r != nil)
	}
}

// WithRecorder подключает метрики.
func WithRecorder(r port.OutcomeRecorder) ServiceOption {
	return func(s *InspectionService) { s.recorder = r }
}

// WithNotifier добавляет получателя смены вердикта.
func WithNotifier(n port.AlertNotifier) ServiceOption {
	return func(s *InspectionService) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithCamera позволяет применять свойства камеры при смене модели.
func WithCamera(c PropertyApplier) ServiceOption {
	return func(s *InspectionService) { s.camera = c }
}

// WithLogger задаёт логгер.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *InspectionService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewInspectionService создаёт сервис инспекции с текущими настройками.
func NewInspectionService(frames port.FrameProvider, inspector port.GapInspector, repo port.SettingsRepository, settings *entity.InspectionSettings, opts ...ServiceOption) *InspectionService {
	if settings == nil {
		settings = entity.DefaultSettings()
	}
	s := &InspectionService{
		frames:    frames,
		inspector: inspector,
		repo:      repo,
		logger:    zap.NewNop(),
		settings:  settings,
		subs:      make(map[int]chan *entity.InspectionOutcome),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run запускает инспекцию по тикеру до отмены ctx.
func (s *InspectionService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("inspection loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.notifyWG.Wait()
			s.logger.Info("inspection loop stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrNoFrame) {
				s.logger.Warn("inspection failed", zap.Error(err))
			}
		}
	}
}

// RunOnce берёт снимок и проверяет его. Если проверка уже идёт, возвращает ErrBusy.
func (s *InspectionService) RunOnce(ctx context.Context) (*entity.InspectionOutcome, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.inFlight.Store(false)

	frame, ok := s.frames.Snapshot()
	if !ok {
		return nil, ErrNoFrame
	}

	// конфигурация читается под inspectMu: смена модели не вклинится между чтением и Inspect
	s.inspectMu.Lock()
	cfg := s.Configuration()
	outcome := s.inspector.Inspect(frame, cfg)
	s.inspectMu.Unlock()

	if s.rendering.Load() {
		images, err := s.renderer.Render(frame, cfg, outcome)
		switch {
		case errors.Is(err, vision.ErrRenderingDisabled):
			s.rendering.Store(false)
			s.logger.Info("diagnostic rendering disabled", zap.Error(err))
		case err != nil:
			s.logger.Warn("render diagnostics", zap.Error(err))
		default:
			outcome.Diagnostics = images
		}
	}

	s.publish(ctx, outcome)
	return outcome, nil
}

func (s *InspectionService) publish(ctx context.Context, outcome *entity.InspectionOutcome) {
	s.mu.Lock()
	s.latest = outcome
	s.stats.Total++
	if outcome.Pass {
		s.stats.OK++
	} else {
		s.stats.NG++
	}
	wasFailing := s.failing
	s.failing = !outcome.Pass
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.Record(outcome)
	}

	switch {
	case !wasFailing && !outcome.Pass:
		s.logger.Warn("verdict changed to NG",
			zap.String("outcome_id", outcome.ID),
			zap.Float64("max_gap", outcome.MaxGapWidth),
			zap.String("note", outcome.Note),
		)
		s.notify(ctx, outcome, port.AlertNotifier.NotifyNG)
	case wasFailing && outcome.Pass:
		s.logger.Info("verdict recovered", zap.String("outcome_id", outcome.ID))
		s.notify(ctx, outcome, port.AlertNotifier.NotifyRecovered)
	}

	s.subMu.Lock()
	for _, ch := range s.subs {
		offerLatest(ch, outcome)
	}
	s.subMu.Unlock()
}

// notify раздаёт событие получателям в фоне, чтобы не тормозить цикл.
// Доставки выстроены в цепочку: порядок NG/recovered сохраняется.
func (s *InspectionService) notify(ctx context.Context, outcome *entity.InspectionOutcome, call func(port.AlertNotifier, context.Context, *entity.InspectionOutcome) error) {
	s.notifyMu.Lock()
	notifiers := s.notifiers
	if len(notifiers) == 0 {
		s.notifyMu.Unlock()
		return
	}
	prev := s.notifyTail
	done := make(chan struct{})
	s.notifyTail = done
	s.notifyMu.Unlock()

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		for _, n := range notifiers {
			if err := call(n, ctx, outcome); err != nil {
				s.logger.Warn("alert delivery failed", zap.Error(err))
			}
		}
	}()
}

// AddNotifier подключает получателя после создания сервиса (бот создаётся позже).
func (s *InspectionService) AddNotifier(n port.AlertNotifier) {
	if n == nil {
		return
	}
	s.notifyMu.Lock()
	s.notifiers = append(s.notifiers[:len(s.notifiers):len(s.notifiers)], n)
	s.notifyMu.Unlock()
}

// WaitNotifications ждёт завершения отправки уведомлений.
func (s *InspectionService) WaitNotifications() {
	s.notifyWG.Wait()
}

// offerLatest кладёт значение в канал ёмкостью 1, вытесняя непрочитанное.
func offerLatest(ch chan *entity.InspectionOutcome, v *entity.InspectionOutcome) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Subscribe возвращает поток результатов (только последний) и функцию отписки.
func (s *InspectionService) Subscribe() (<-chan *entity.InspectionOutcome, func()) {
	ch := make(chan *entity.InspectionOutcome, 1)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// ResetSmoothing сбрасывает сглаживание, дождавшись текущей проверки.
func (s *InspectionService) ResetSmoothing() {
	s.inspectMu.Lock()
	defer s.inspectMu.Unlock()
	s.inspector.ResetSmoothing()
}

// ActivateModel переключает параметры инспекции на профиль модели.
// Выбор камеры сохраняется, сглаживание сбрасывается, настройки записываются.
func (s *InspectionService) ActivateModel(name string) (*entity.InspectionSettings, error) {
	model, err := s.repo.LoadModel(name)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}

	s.inspectMu.Lock()
	s.mu.Lock()
	s.settings.CopyInspectionParametersFrom(model)
	s.settings.CurrentModelName = name
	s.failing = false
	snapshot := s.cloneSettingsLocked()
	s.mu.Unlock()
	s.inspector.ResetSmoothing()
	s.inspectMu.Unlock()

	if err := s.repo.Save(snapshot); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	if s.camera != nil && !snapshot.Camera.IsZero() {
		if err := s.camera.ApplyProperties(snapshot.Camera); err != nil {
			s.logger.Warn("apply camera properties", zap.Error(err))
		}
	}

	s.logger.Info("model activated",
		zap.String("model", name),
		zap.Int("lines", len(snapshot.MeasurementLines)),
		zap.Stringer("edge_mode", snapshot.EdgeDetectionMode),
	)
	return snapshot, nil
}

// SaveModel сохраняет текущие параметры под именем name и делает модель активной.
// Если камера умеет отдавать свойства, в профиль попадают их живые значения.
func (s *InspectionService) SaveModel(name string) (*entity.InspectionSettings, error) {
	var live *entity.CameraProperties
	if r, ok := s.camera.(PropertyReader); ok {
		props, err := r.ReadProperties()
		if err != nil {
			s.logger.Warn("read camera properties", zap.Error(err))
		} else {
			live = &props
		}
	}

	s.mu.Lock()
	snapshot := s.cloneSettingsLocked()
	if live != nil {
		snapshot.Camera = *live
	}
	s.mu.Unlock()

	if err := s.repo.SaveModel(name, snapshot); err != nil {
		return nil, fmt.Errorf("save model %q: %w", name, err)
	}

	s.mu.Lock()
	s.settings.CurrentModelName = name
	s.settings.Camera = snapshot.Camera
	snapshot = s.cloneSettingsLocked()
	s.mu.Unlock()

	if err := s.repo.Save(snapshot); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("model saved", zap.String("model", name))
	return snapshot, nil
}

// DeleteModel удаляет профиль. Если он был активным, настройки остаются, но без имени модели.
func (s *InspectionService) DeleteModel(name string) error {
	if err := s.repo.DeleteModel(name); err != nil {
		return fmt.Errorf("delete model %q: %w", name, err)
	}

	s.mu.Lock()
	wasCurrent := s.settings.CurrentModelName == name
	if wasCurrent {
		s.settings.CurrentModelName = ""
	}
	snapshot := s.cloneSettingsLocked()
	s.mu.Unlock()

	if wasCurrent {
		if err := s.repo.Save(snapshot); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	s.logger.Info("model deleted", zap.String("model", name))
	return nil
}

// ModelNames возвращает список сохранённых моделей.
func (s *InspectionService) ModelNames() ([]string, error) {
	return s.repo.ModelNames()
}

// Configuration возвращает копию текущих параметров инспекции.
func (s *InspectionService) Configuration() entity.InspectionConfiguration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.InspectionConfiguration.Clone()
}

// Settings возвращает копию текущих настроек.
func (s *InspectionService) Settings() *entity.InspectionSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneSettingsLocked()
}

// CurrentModel возвращает имя активной модели.
func (s *InspectionService) CurrentModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.CurrentModelName
}

func (s *InspectionService) cloneSettingsLocked() *entity.InspectionSettings {
	c := *s.settings
	c.InspectionConfiguration = s.settings.InspectionConfiguration.Clone()
	return &c
}

// Latest возвращает последний результат или nil.
func (s *InspectionService) Latest() *entity.InspectionOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Stats возвращает счётчики OK/NG.
func (s *InspectionService) Stats() entity.InspectionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ResetStats обнуляет счётчики.
func (s *InspectionService) ResetStats() {
	s.mu.Lock()
	s.stats = entity.InspectionStats{}
	s.mu.Unlock()
}
