package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

const modelSettingsFile = "settings.yaml"

var (
	// ErrModelNotFound: профиль модели отсутствует.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidModelName: имя модели нельзя использовать как имя каталога.
	ErrInvalidModelName = errors.New("invalid model name")
)

// SettingsStore хранит текущие настройки и профили моделей в YAML.
// Профиль модели лежит в <modelsDir>/<name>/settings.yaml.
type SettingsStore struct {
	mu           sync.Mutex
	settingsPath string
	modelsDir    string
}

var _ port.SettingsRepository = (*SettingsStore)(nil)

// NewSettingsStore создаёт хранилище.
func NewSettingsStore(settingsPath, modelsDir string) *SettingsStore {
	return &SettingsStore{settingsPath: settingsPath, modelsDir: modelsDir}
}

// Load читает текущие настройки; если файла нет, настройки по умолчанию.
func (s *SettingsStore) Load() (*entity.InspectionSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := readSettings(s.settingsPath)
	if errors.Is(err, os.ErrNotExist) {
		return entity.DefaultSettings(), nil
	}
	return settings, err
}

// Save записывает текущие настройки.
func (s *SettingsStore) Save(settings *entity.InspectionSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeSettings(s.settingsPath, settings)
}

// ModelNames возвращает имена сохранённых моделей по алфавиту.
func (s *SettingsStore) ModelNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.modelsDir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read models dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.modelsDir, e.Name(), modelSettingsFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadModel читает профиль модели.
func (s *SettingsStore) LoadModel(name string) (*entity.InspectionSettings, error) {
	path, err := s.modelPath(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := readSettings(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return settings, err
}

// SaveModel сохраняет профиль модели, создавая каталог при необходимости.
func (s *SettingsStore) SaveModel(name string, settings *entity.InspectionSettings) error {
	path, err := s.modelPath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	stored := *settings
	stored.CurrentModelName = name
	return writeSettings(path, &stored)
}

// DeleteModel удаляет профиль модели целиком.
func (s *SettingsStore) DeleteModel(name string) error {
	path, err := s.modelPath(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete model %s: %w", name, err)
	}
	return nil
}

func (s *SettingsStore) modelPath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidModelName, name)
	}
	return filepath.Join(s.modelsDir, name, modelSettingsFile), nil
}

func readSettings(path string) (*entity.InspectionSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	settings := entity.DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if settings.MeasurementLines == nil {
		settings.MeasurementLines = []entity.MeasurementLine{}
	}
	return settings, nil
}

// writeSettings пишет через временный файл, чтобы не оставить битый YAML.
func writeSettings(path string, settings *entity.InspectionSettings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
