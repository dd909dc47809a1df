package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 数据集状态常量
const (
	StateEmpty     = "empty"
	StateLoading   = "loading"
	StateReady     = "ready"
	StateReloading = "reloading"
	StateFailed    = "failed"
)

// 事件常量
const (
	EventLoad   = "load"
	EventLoaded = "loaded"
	EventReload = "reload"
	EventFail   = "fail"
)

// DatasetState 数据集状态
type DatasetState struct {
	CurrentState string    `json:"state"`
	Since        time.Time `json:"since"`
	Source       string    `json:"source"`
	Records      int       `json:"records"`
	Rejected     int       `json:"rejected"`
	Generation   uint64    `json:"generation"`
	LastError    string    `json:"last_error,omitempty"`
}

// Machine 数据集生命周期状态机
type Machine struct {
	mu            sync.RWMutex
	fsm           *fsm.FSM
	state         *DatasetState
	onStateChange func(from, to string)
}

// NewMachine 创建状态机
func NewMachine(onStateChange func(from, to string)) *Machine {
	m := &Machine{
		onStateChange: onStateChange,
		state: &DatasetState{
			CurrentState: StateEmpty,
			Since:        time.Now(),
		},
	}

	m.fsm = fsm.NewFSM(
		StateEmpty,
		fsm.Events{
			// 首次加载
			{Name: EventLoad, Src: []string{StateEmpty}, Dst: StateLoading},

			// 已有快照时重新加载，失败后也从这里重试
			{Name: EventReload, Src: []string{StateReady, StateFailed}, Dst: StateReloading},

			{Name: EventLoaded, Src: []string{StateLoading, StateReloading}, Dst: StateReady},
			{Name: EventFail, Src: []string{StateLoading, StateReloading}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onStateChange != nil && e.Src != e.Dst {
					m.onStateChange(e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// CurrentState 获取当前状态
func (m *Machine) CurrentState() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Current()
}

// GetState 获取完整状态
func (m *Machine) GetState() *DatasetState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// 返回副本
	stateCopy := *m.state
	stateCopy.CurrentState = m.fsm.Current()
	return &stateCopy
}

// UpdateState 更新状态数据
func (m *Machine) UpdateState(update func(s *DatasetState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	update(m.state)
}

// Trigger 触发事件
func (m *Machine) Trigger(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	m.state.CurrentState = m.fsm.Current()
	m.state.Since = time.Now()
	return nil
}

// BeginLoad 根据当前状态选择 load 或 reload 事件
func (m *Machine) BeginLoad() error {
	if m.CurrentState() == StateEmpty {
		return m.Trigger(EventLoad)
	}
	return m.Trigger(EventReload)
}

// CanTransition 检查是否可以转换
func (m *Machine) CanTransition(event string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsm.Can(event)
}
