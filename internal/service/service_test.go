package service

import (
	"context"
	"sync"
	"time"

	"github.com/langchou/rentgazer/internal/dataset"
	"github.com/langchou/rentgazer/internal/models"
)

var p = models.Int64Ptr

func rental(id int64, channel models.CheckinType, delta, delay *int64) models.RentalRecord {
	r := models.RentalRecord{
		RentalID:              id,
		CarID:                 id * 10,
		CheckinType:           channel,
		State:                 models.StateEnded,
		DelayAtCheckout:       delay,
		TimeDeltaWithPrevious: delta,
	}
	if delta != nil {
		r.PreviousEndedRentalID = p(id - 1)
	}
	return r
}

func testSnapshot() *dataset.Snapshot {
	return &dataset.Snapshot{
		Source:   "test",
		LoadedAt: time.Now(),
		Records: []models.RentalRecord{
			rental(1, models.CheckinConnect, p(-10), p(15)),
			rental(2, models.CheckinMobile, p(5), p(0)),
			rental(3, models.CheckinConnect, p(40), nil),
		},
	}
}

type staticSnapshots struct {
	mu   sync.Mutex
	snap *dataset.Snapshot
}

func (s *staticSnapshots) Snapshot() (*dataset.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, dataset.ErrNotLoaded
	}
	return s.snap, nil
}

func (s *staticSnapshots) set(snap *dataset.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

type message struct {
	Type string
	Data interface{}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []message
}

func (b *recordingBroadcaster) BroadcastMessage(msgType string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message{Type: msgType, Data: data})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Type)
	}
	return out
}

type scriptedSource struct {
	mu    sync.Mutex
	snaps []*dataset.Snapshot
	errs  []error
	calls int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Load(ctx context.Context) (*dataset.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.snaps) {
		i = len(s.snaps) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.snaps[i], nil
}

func (s *scriptedSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memoryRentals struct {
	mu      sync.Mutex
	records []models.RentalRecord
	imports int
}

func (m *memoryRentals) ReplaceAll(ctx context.Context, records []models.RentalRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]models.RentalRecord(nil), records...)
	m.imports++
	return int64(len(records)), nil
}

func (m *memoryRentals) ListAll(ctx context.Context) ([]models.RentalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RentalRecord(nil), m.records...), nil
}
