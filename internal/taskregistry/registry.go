// ============================================================================
// AI Demo 任務註冊表 - 任務狀態機實現
// ============================================================================
//
// Package: internal/taskregistry
// 文件: registry.go
// 功能: 管理異步任務的完整生命週期和狀態轉換
//
// 設計理念:
//   1. tasks map - 統一的任務存儲，作為單一真實來源 (Single Source of Truth)
//   2. 每個任務各自持有一把鎖 - 輪詢讀取不會被無關任務的寫入阻塞，
//      多個 worker goroutine 的進度更新透過同一把任務鎖串行化
//   3. map 本身只由一把 RWMutex 保護插入與查找，臨界區極短
//
// 任務狀態轉換 (State Machine):
//   Pending (待處理)
//      ↓ Start()
//   Running (執行中)
//      ↓ Complete() 或 Fail()
//   Completed (已完成) / Failed (已失敗)
//
// 終止語義:
//   - Complete/Fail 各自只生效一次；在終止狀態之後再次呼叫是 no-op
//     而不是錯誤，以容忍完成訊號競爭
//   - 進入終止狀態後任何欄位不再變更，Get 永遠讀到一致的快照
//
// ============================================================================

package taskregistry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Linn0813/ai-demo-service/pkg/types"
)

var (
	// ErrTaskNotFound 任務不存在
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidState 任務狀態不允許此操作
	ErrInvalidState = errors.New("task not in running state")
)

// entry 單個任務條目，task 欄位由 mu 保護
type entry struct {
	mu   sync.Mutex
	task types.Task
}

// snapshot 在持有 entry 鎖的前提下複製一份對外安全的任務副本。
// Result / PartialResult 以 any 存放，約定為寫入後不可變的快照值，
// 因此淺拷貝即可。
func (e *entry) snapshot() types.Task {
	t := e.task
	if e.task.Progress != nil {
		p := *e.task.Progress
		t.Progress = &p
	}
	if e.task.StartedAt != nil {
		ts := *e.task.StartedAt
		t.StartedAt = &ts
	}
	if e.task.CompletedAt != nil {
		ts := *e.task.CompletedAt
		t.CompletedAt = &ts
	}
	return t
}

// Registry 任務註冊表，行程內唯一的共享可變結構
type Registry struct {
	mu    sync.RWMutex
	tasks map[types.TaskID]*entry
}

// NewRegistry 建立空的任務註冊表
func NewRegistry() *Registry {
	return &Registry{
		tasks: make(map[types.TaskID]*entry),
	}
}

// lookup 取得任務條目
func (r *Registry) lookup(id types.TaskID) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return e, nil
}

// Create 建立新任務並立即返回其快照（非阻塞）
func (r *Registry) Create(kind types.TaskKind) types.Task {
	now := time.Now()
	e := &entry{
		task: types.Task{
			ID:        types.TaskID(uuid.NewString()),
			Kind:      kind,
			Status:    types.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	r.mu.Lock()
	r.tasks[e.task.ID] = e
	r.mu.Unlock()

	return e.snapshot()
}

// Get 返回任務當前狀態的不可變副本
func (r *Registry) Get(id types.TaskID) (types.Task, error) {
	e, err := r.lookup(id)
	if err != nil {
		return types.Task{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

// Start 將任務從 Pending 轉為 Running，由擁有該任務的階段在調度時呼叫
func (r *Registry) Start(id types.TaskID) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status != types.StatusPending {
		return ErrInvalidState
	}

	now := time.Now()
	e.task.Status = types.StatusRunning
	e.task.StartedAt = &now
	e.task.UpdatedAt = now
	return nil
}

// UpdateProgress 更新任務進度；任務必須處於 Running 狀態。
// Percent 由 current/total 推導，current 超過 total 時收斂到 total。
func (r *Registry) UpdateProgress(id types.TaskID, p types.Progress) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status != types.StatusRunning {
		return ErrInvalidState
	}

	if p.Total > 0 {
		if p.Current > p.Total {
			p.Current = p.Total
		}
		p.Percent = p.Current * 100 / p.Total
	}

	e.task.Progress = &p
	e.task.UpdatedAt = time.Now()
	return nil
}

// UpdatePartialResult 替換任務的部分結果快照；只允許在 Running 期間呼叫。
// 呼叫方必須傳入此後不再變更的值（每次更新重建快照），
// 以保證輪詢端不會讀到撕裂的寫入。
func (r *Registry) UpdatePartialResult(id types.TaskID, partial any) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status != types.StatusRunning {
		return ErrInvalidState
	}

	e.task.PartialResult = partial
	e.task.UpdatedAt = time.Now()
	return nil
}

// Complete 終止轉換：寫入最終結果並將任務標記為已完成。
// 任務已處於終止狀態時為 no-op（冪等，容忍完成訊號競爭）。
func (r *Registry) Complete(id types.TaskID, result any) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.IsTerminal() {
		return nil
	}

	now := time.Now()
	e.task.Status = types.StatusCompleted
	e.task.Result = result
	e.task.CompletedAt = &now
	e.task.UpdatedAt = now
	return nil
}

// Fail 終止轉換：寫入失敗原因並將任務標記為已失敗。
// 與 Complete 相同，終止之後的再次呼叫為 no-op。
func (r *Registry) Fail(id types.TaskID, errMsg string) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.task.Status.IsTerminal() {
		return nil
	}

	now := time.Now()
	e.task.Status = types.StatusFailed
	e.task.Error = errMsg
	e.task.CompletedAt = &now
	e.task.UpdatedAt = now
	return nil
}

// Stats 取得各狀態任務的統計資訊
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.tasks))
	for _, e := range r.tasks {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	stats := map[string]int{
		"pending":   0,
		"running":   0,
		"completed": 0,
		"failed":    0,
	}
	for _, e := range entries {
		e.mu.Lock()
		stats[string(e.task.Status)]++
		e.mu.Unlock()
	}
	return stats
}

// CleanupOlderThan 清理完成時間早於 maxAge 的終止任務，返回清理數量。
// 任務不會被自動刪除，由呼叫方的保留策略決定何時觸發。
func (r *Registry) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.tasks {
		e.mu.Lock()
		expired := e.task.Status.IsTerminal() &&
			e.task.CompletedAt != nil &&
			e.task.CompletedAt.Before(cutoff)
		e.mu.Unlock()

		if expired {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}
