package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/state"
	"github.com/langchou/rentgazer/pkg/ws"
)

func TestDatasetServiceStart(t *testing.T) {
	src := &scriptedSource{snaps: []*dataset.Snapshot{testSnapshot()}}
	hub := &recordingBroadcaster{}
	rentals := &memoryRentals{}

	svc, err := NewDatasetService(zap.NewNop(), src, hub, DatasetOptions{Importer: rentals})
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	snap, err := svc.Store().Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Records, 3)
	assert.Equal(t, state.StateReady, svc.Store().State().CurrentState)

	assert.Equal(t, 1, rentals.imports)
	assert.Len(t, rentals.records, 3)

	assert.Equal(t, []string{
		ws.MsgTypeDatasetState,
		ws.MsgTypeDatasetState,
		ws.MsgTypeDatasetUpdated,
	}, hub.types())

	// 重复启动不会再次加载
	require.NoError(t, svc.Start(context.Background()))
	assert.Equal(t, 1, src.count())
}

func TestDatasetServiceReloadFailureKeepsSnapshot(t *testing.T) {
	src := &scriptedSource{
		snaps: []*dataset.Snapshot{testSnapshot(), nil},
		errs:  []error{nil, errors.New("sheet missing")},
	}
	svc, err := NewDatasetService(zap.NewNop(), src, nil, DatasetOptions{})
	require.NoError(t, err)

	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	_, err = svc.Reload(context.Background())
	require.Error(t, err)

	snap, err := svc.Store().Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Records, 3)

	st := svc.Store().State()
	assert.Equal(t, state.StateFailed, st.CurrentState)
	assert.Contains(t, st.LastError, "sheet missing")
}

func TestDatasetServiceStartsWhenFirstLoadFails(t *testing.T) {
	src := &scriptedSource{
		snaps: []*dataset.Snapshot{nil},
		errs:  []error{errors.New("no such file")},
	}
	svc, err := NewDatasetService(zap.NewNop(), src, nil, DatasetOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	_, err = svc.Store().Snapshot()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)
}

func TestDatasetServiceRejectsBadSchedule(t *testing.T) {
	src := &scriptedSource{snaps: []*dataset.Snapshot{testSnapshot()}}
	_, err := NewDatasetService(zap.NewNop(), src, nil, DatasetOptions{RefreshSchedule: "every now and then"})
	assert.Error(t, err)
}

func TestDatasetServiceScheduledRefresh(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron tick")
	}
	src := &scriptedSource{snaps: []*dataset.Snapshot{testSnapshot()}}
	svc, err := NewDatasetService(zap.NewNop(), src, nil, DatasetOptions{RefreshSchedule: "@every 1s"})
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		return src.count() >= 2
	}, 5*time.Second, 50*time.Millisecond)
}
