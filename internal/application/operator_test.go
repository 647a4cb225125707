package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/infrastructure/storage"
)

func TestOperatorService_ModelSelectionAndCancel(t *testing.T) {
	repo := storage.NewMemoryOperatorRepository()
	svc := NewOperatorService(repo)
	ctx := context.Background()

	op, err := svc.BeginModelSelection(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingModelName, op.State)

	op, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, op.State)
}

func TestOperatorService_Alerts(t *testing.T) {
	repo := storage.NewMemoryOperatorRepository()
	svc := NewOperatorService(repo)
	ctx := context.Background()

	op, err := svc.SetAlerts(ctx, 2, 20, true)
	require.NoError(t, err)
	require.True(t, op.Alerts)

	subs, err := svc.Subscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	_, err = svc.SetAlerts(ctx, 2, 20, false)
	require.NoError(t, err)
	subs, err = svc.Subscribers(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)
}
