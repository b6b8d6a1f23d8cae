// internal/infrastructure/memory/todo_repository.go
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"
)

// TodoRepository はプロセス内メモリだけで持つ Todo ストア。
// items と next は同じ mu で守る（採番と insert を分離させない）。
type TodoRepository struct {
	mu    sync.Mutex
	next  uint64
	items map[uint32]domain_todo.Todo
}

var _ domain_todo.Repository = (*TodoRepository)(nil)

func NewTodoRepository() *TodoRepository {
	return &TodoRepository{
		next:  1,
		items: make(map[uint32]domain_todo.Todo),
	}
}

// NewTodoRepositoryWithItems は初期データ入りのストアを作る（テスト・fixture 用）。
// next は既存の最大 ID の次から始めるので、seed 済みの ID が採番で上書きされることはない。
func NewTodoRepositoryWithItems(items ...domain_todo.Todo) *TodoRepository {
	r := NewTodoRepository()
	for _, t := range items {
		r.items[t.ID] = t
		if uint64(t.ID) >= r.next {
			r.next = uint64(t.ID) + 1
		}
	}
	return r
}

func (r *TodoRepository) List(ctx context.Context) ([]domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshotLocked(), nil
}

func (r *TodoRepository) Create(ctx context.Context, text string, status domain_todo.Status) ([]domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next > math.MaxUint32 {
		return nil, domain_todo.ErrIDExhausted
	}

	id := uint32(r.next)
	r.next++

	r.items[id] = domain_todo.Todo{
		ID:     id,
		Text:   text,
		Status: status,
	}
	return r.snapshotLocked(), nil
}

func (r *TodoRepository) Update(ctx context.Context, id uint32, text string, status domain_todo.Status) ([]domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// upsert: 無ければその id で作る。next には触らない。
	r.items[id] = domain_todo.Todo{
		ID:     id,
		Text:   text,
		Status: status,
	}
	return r.snapshotLocked(), nil
}

func (r *TodoRepository) Delete(ctx context.Context, id uint32) ([]domain_todo.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return r.snapshotLocked(), nil
}

// snapshotLocked は mu を保持した状態で呼ぶこと。
// map の順番は保証されないので ID 昇順に並べて返す。
func (r *TodoRepository) snapshotLocked() []domain_todo.Todo {
	todos := make([]domain_todo.Todo, 0, len(r.items))
	for _, t := range r.items {
		todos = append(todos, t)
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos
}
