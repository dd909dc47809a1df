package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/langchou/rentgazer/internal/state"
)

// ErrNotLoaded 数据集尚未加载成功
var ErrNotLoaded = errors.New("dataset not loaded")

// Source 数据来源
type Source interface {
	Name() string
	Load(ctx context.Context) (*Snapshot, error)
}

// FileSource 本地 xlsx/csv 文件
type FileSource struct {
	Path   string
	Loader *Loader
}

// NewFileSource 创建文件数据源
func NewFileSource(path string, loader *Loader) *FileSource {
	return &FileSource{Path: path, Loader: loader}
}

// Name 数据源名称
func (s *FileSource) Name() string {
	return s.Path
}

// Load 读取文件
func (s *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Loader.LoadFile(s.Path)
}

// Store 持有当前快照，加载成功后整体替换
// 读取方拿到的快照不会再被修改；加载失败时保留上一份快照
type Store struct {
	mu      sync.RWMutex
	loadMu  sync.Mutex
	source  Source
	snap    *Snapshot
	gen     uint64
	machine *state.Machine
	logger  *zap.Logger

	listeners []func(*Snapshot)
}

// NewStore 创建数据集存储
func NewStore(source Source, logger *zap.Logger, onStateChange func(from, to string)) *Store {
	return &Store{
		source:  source,
		machine: state.NewMachine(onStateChange),
		logger:  logger,
	}
}

// OnReload 注册快照替换后的回调
func (s *Store) OnReload(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load 从数据源加载并替换快照，同一时刻只有一次加载
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if err := s.machine.BeginLoad(); err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}

	snap, err := s.source.Load(ctx)
	if err != nil {
		s.machine.UpdateState(func(st *state.DatasetState) {
			st.LastError = err.Error()
		})
		if tErr := s.machine.Trigger(state.EventFail); tErr != nil {
			s.logger.Warn("Failed to record dataset failure", zap.Error(tErr))
		}
		s.logger.Error("Failed to load dataset",
			zap.String("source", s.source.Name()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load dataset from %s: %w", s.source.Name(), err)
	}

	s.mu.Lock()
	s.snap = snap
	s.gen++
	gen := s.gen
	listeners := make([]func(*Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.machine.UpdateState(func(st *state.DatasetState) {
		st.Source = snap.Source
		st.Records = len(snap.Records)
		st.Rejected = len(snap.Rejected)
		st.Generation = gen
		st.LastError = ""
	})
	if err := s.machine.Trigger(state.EventLoaded); err != nil {
		s.logger.Warn("Failed to record dataset loaded", zap.Error(err))
	}

	if len(snap.Rejected) > 0 {
		s.logger.Warn("Rejected rows with unrecognized categories",
			zap.String("source", snap.Source),
			zap.Int("rejected", len(snap.Rejected)),
		)
	}
	s.logger.Info("Dataset loaded",
		zap.String("source", snap.Source),
		zap.Int("records", len(snap.Records)),
		zap.Uint64("generation", gen),
	)

	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// Snapshot 当前快照
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNotLoaded
	}
	return s.snap, nil
}

// State 数据集状态
func (s *Store) State() *state.DatasetState {
	return s.machine.GetState()
}

// SourceName 数据源名称
func (s *Store) SourceName() string {
	return s.source.Name()
}
