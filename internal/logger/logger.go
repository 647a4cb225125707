package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
	sugar *zap.SugaredLogger
)

// Init выбирает конфигурацию по режиму: "development" или всё остальное (production).
func Init(mode string) error {
	if mode == "development" || mode == "dev" {
		return InitDevelopment()
	}
	return InitProduction()
}

// InitProduction настраивает JSON-логгер для работы на линии.
func InitProduction() error {
	return build(zap.NewProductionConfig())
}

// InitDevelopment настраивает читаемый консольный логгер.
func InitDevelopment() error {
	return build(zap.NewDevelopmentConfig())
}

func build(cfg zap.Config) error {
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

func setLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	zap.ReplaceGlobals(l)
	if log != nil {
		_ = log.Sync()
	}
	log = l
	sugar = l.Sugar()
}

// Log возвращает *zap.Logger; до Init отдаёт глобальный (noop).
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		return log
	}
	return zap.L()
}

// S возвращает *zap.SugaredLogger.
func S() *zap.SugaredLogger {
	logMu.RLock()
	defer logMu.RUnlock()
	if sugar != nil {
		return sugar
	}
	return zap.S()
}

// Named возвращает дочерний логгер компонента.
func Named(name string) *zap.Logger {
	return Log().Named(name)
}

// Sync сбрасывает буферы.
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}
