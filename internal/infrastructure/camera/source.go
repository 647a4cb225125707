package camera

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
)

var (
	// ErrDeviceOpen: устройство не открылось ни в одном режиме.
	ErrDeviceOpen = errors.New("failed to open capture device")
	// ErrNotRunning: операция требует запущенной камеры.
	ErrNotRunning = errors.New("camera is not running")
)

const (
	defaultStopTimeout = 2 * time.Second
	defaultFPSWindow   = time.Second
	readRetryDelay     = time.Millisecond
	noDeviceDelay      = 100 * time.Millisecond
)

var _ port.FrameProvider = (*Source)(nil)

// Info описывает текущий режим камеры.
type Info struct {
	DeviceIndex int    `json:"device_index"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Codec       string `json:"codec"`
	Running     bool   `json:"running"`
}

func (i Info) String() string {
	return fmt.Sprintf("%dx%d %s", i.Width, i.Height, i.Codec)
}

// Option настраивает Source.
type Option func(*Source)

// WithLogger задаёт логгер.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProbe подменяет замер скорости (в тестах).
func WithProbe(p ThroughputProbe) Option {
	return func(s *Source) {
		if p != nil {
			s.probe = p
		}
	}
}

// WithCandidates задаёт свою лестницу режимов.
func WithCandidates(modes []port.CaptureMode) Option {
	return func(s *Source) {
		s.candidates = modes
	}
}

// WithFPSWindow задаёт окно усреднения FPS.
func WithFPSWindow(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.fpsWindow = d
		}
	}
}

// WithStopTimeout задаёт, сколько Stop ждёт горутину захвата.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// Source владеет устройством захвата и крутит горутину чтения кадров.
// Последний кадр и кадр для показа лежат в двух буферах под своими мьютексами;
// читатели всегда получают копии.
type Source struct {
	opener      port.DeviceOpener
	probe       ThroughputProbe
	candidates  []port.CaptureMode
	logger      *zap.Logger
	fpsWindow   time.Duration
	stopTimeout time.Duration

	// жизненный цикл
	mu     sync.Mutex
	dev    port.CaptureDevice
	cancel context.CancelFunc
	done   chan struct{}
	info   Info

	latestMu  sync.Mutex
	latest    entity.Frame
	hasLatest bool

	displayMu  sync.Mutex
	display    entity.Frame
	pending    atomic.Bool
	frameReady chan struct{}

	fps        chan float64
	currentFPS atomic.Uint64 // math.Float64bits
}

// NewSource создаёт источник кадров поверх opener.
func NewSource(opener port.DeviceOpener, opts ...Option) *Source {
	s := &Source{
		opener:      opener,
		probe:       MeasureThroughput,
		candidates:  DefaultCandidates(),
		logger:      zap.NewNop(),
		fpsWindow:   defaultFPSWindow,
		stopTimeout: defaultStopTimeout,
		frameReady:  make(chan struct{}, 1),
		fps:         make(chan float64, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start открывает камеру и запускает захват. Если захват уже идёт, он
// сначала останавливается. Ошибка открытия оборачивает ErrDeviceOpen.
func (s *Source) Start(ctx context.Context, deviceIndex int, resolution string) error {
	s.Stop()

	dev, err := s.negotiate(deviceIndex, resolution)
	if err != nil {
		return err
	}

	s.latestMu.Lock()
	s.hasLatest = false
	s.latestMu.Unlock()
	s.pending.Store(false)
	s.currentFPS.Store(0)

	info := Info{
		DeviceIndex: deviceIndex,
		Width:       dev.Width(),
		Height:      dev.Height(),
		Codec:       dev.Codec(),
		Running:     true,
	}
	s.logger.Info("camera started", zap.Int("index", deviceIndex), zap.Stringer("mode", info))

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.dev = dev
	s.cancel = cancel
	s.done = done
	s.info = info
	s.mu.Unlock()

	go s.acquire(loopCtx, dev, done)
	return nil
}

// Stop останавливает захват и закрывает устройство. Повторный вызов
// и вызов до Start ничего не делают.
func (s *Source) Stop() {
	s.mu.Lock()
	cancel, done, dev := s.cancel, s.done, s.dev
	s.cancel, s.done, s.dev = nil, nil, nil
	s.info.Running = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(s.stopTimeout):
		s.logger.Warn("capture goroutine did not stop in time", zap.Duration("timeout", s.stopTimeout))
	}

	if dev != nil {
		if err := dev.Close(); err != nil {
			s.logger.Warn("close capture device", zap.Error(err))
		}
	}
	s.logger.Info("camera stopped")
}

// Running сообщает, идёт ли захват.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Info возвращает текущий режим камеры.
func (s *Source) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Snapshot возвращает копию последнего кадра; false, если кадров ещё не было.
func (s *Source) Snapshot() (entity.Frame, bool) {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()
	if !s.hasLatest || s.latest.Empty() {
		return entity.Frame{}, false
	}
	return s.latest.Clone(), true
}

// FrameReady сигналит о новом кадре для показа. Не больше одного сигнала в очереди.
func (s *Source) FrameReady() <-chan struct{} {
	return s.frameReady
}

// ConsumeDisplayFrame забирает копию кадра для показа и снимает флаг ожидания.
func (s *Source) ConsumeDisplayFrame() (entity.Frame, bool) {
	s.displayMu.Lock()
	frame := s.display.Clone()
	s.displayMu.Unlock()
	s.pending.Store(false)
	return frame, !frame.Empty()
}

// FPSUpdates отдаёт замеры FPS; в канале лежит не больше одного значения.
func (s *Source) FPSUpdates() <-chan float64 {
	return s.fps
}

// CurrentFPS возвращает последний замер.
func (s *Source) CurrentFPS() float64 {
	return float64frombits(s.currentFPS.Load())
}

// acquire: цикл захвата; живёт до отмены ctx.
func (s *Source) acquire(ctx context.Context, dev port.CaptureDevice, done chan struct{}) {
	defer close(done)

	var buf entity.Frame
	frames := 0
	windowStart := time.Now()

	for ctx.Err() == nil {
		if dev == nil {
			sleepCtx(ctx, noDeviceDelay)
			continue
		}
		if !dev.Read(&buf) || buf.Empty() {
			sleepCtx(ctx, readRetryDelay)
			continue
		}
		buf.CapturedAt = time.Now()

		s.latestMu.Lock()
		s.latest.CopyFrom(buf)
		s.hasLatest = true
		s.latestMu.Unlock()

		frames++
		if elapsed := time.Since(windowStart); elapsed >= s.fpsWindow {
			s.publishFPS(float64(frames) / elapsed.Seconds())
			frames = 0
			windowStart = time.Now()
		}

		if s.pending.CompareAndSwap(false, true) {
			s.displayMu.Lock()
			s.display.CopyFrom(buf)
			s.displayMu.Unlock()
			select {
			case s.frameReady <- struct{}{}:
			default:
			}
		}
	}
}

// publishFPS кладёт свежий замер, вытесняя непрочитанный.
func (s *Source) publishFPS(v float64) {
	s.currentFPS.Store(float64bits(v))
	select {
	case s.fps <- v:
		return
	default:
	}
	select {
	case <-s.fps:
	default:
	}
	select {
	case s.fps <- v:
	default:
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
