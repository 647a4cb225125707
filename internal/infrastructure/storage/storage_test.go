package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connector-vision/internal/domain/entity"
)

func newStore(t *testing.T) *SettingsStore {
	dir := t.TempDir()
	return NewSettingsStore(filepath.Join(dir, "inspection_settings.yaml"), filepath.Join(dir, "models"))
}

func sampleSettings() *entity.InspectionSettings {
	s := entity.DefaultSettings()
	s.GapThreshold = 55
	s.GaussianBlurSize = 7
	s.EdgeDetectionMode = entity.EdgeModeFirstAndLast
	s.EnforceMinGap = true
	s.CameraIndex = 1
	s.CameraResolution = "1280x720"
	line := entity.NewMeasurementLine(0.1, 0.25, 0.9, 0.75)
	line.MinGapWidth = 3
	line.MaxGapWidth = 12
	s.MeasurementLines = []entity.MeasurementLine{line}
	focus := 120.0
	s.Camera.Focus = &focus
	return s
}

func TestSettingsStore_LoadMissingReturnsDefaults(t *testing.T) {
	s, err := newStore(t).Load()
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultSettings(), s)
}

func TestSettingsStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	want := sampleSettings()
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsStore_Models(t *testing.T) {
	store := newStore(t)

	names, err := store.ModelNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, store.SaveModel("type-b", sampleSettings()))
	require.NoError(t, store.SaveModel("type-a", entity.DefaultSettings()))

	names, err = store.ModelNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"type-a", "type-b"}, names)

	m, err := store.LoadModel("type-b")
	require.NoError(t, err)
	assert.Equal(t, "type-b", m.CurrentModelName)
	assert.Equal(t, 55.0, m.GapThreshold)
	require.Len(t, m.MeasurementLines, 1)
	assert.Equal(t, 12, m.MeasurementLines[0].MaxGapWidth)

	require.NoError(t, store.DeleteModel("type-b"))
	_, err = store.LoadModel("type-b")
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.ErrorIs(t, store.DeleteModel("type-b"), ErrModelNotFound)
}

func TestSettingsStore_RejectsBadNames(t *testing.T) {
	store := newStore(t)
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, store.SaveModel(name, entity.DefaultSettings()), ErrInvalidModelName, name)
	}
}

func TestMemoryOperatorRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOperatorRepository()

	op, err := repo.Get(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, entity.StateIdle, op.State)

	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateAwaitingModelName))
	op, err = repo.Get(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, entity.StateAwaitingModelName, op.State)

	subs, err := repo.Subscribers(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	op.Alerts = true
	require.NoError(t, repo.Save(ctx, op))
	subs, err = repo.Subscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(100), subs[0].ChatID)
}
