package worker

import "github.com/keepalive9s/taobao/internal/domain"

// Snapshot — исходное состояние товаров партиции, снятое при Fetch.
//
// Каждая запись ставится ровно один раз и никогда не перезаписывается.
type Snapshot struct {
	states map[int64]domain.ItemState
}

// NewSnapshot создаёт пустой Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{states: make(map[int64]domain.ItemState)}
}

// Record запоминает состояние товара.
// Возвращает false, если товар уже записан (повтор на соседних страницах).
func (s *Snapshot) Record(item domain.Item) bool {
	if _, exists := s.states[item.NumIID]; exists {
		return false
	}
	s.states[item.NumIID] = item.ApproveStatus
	return true
}

// Original возвращает исходное состояние товара.
func (s *Snapshot) Original(numIID int64) (domain.ItemState, bool) {
	state, ok := s.states[numIID]
	return state, ok
}

// Drifted возвращает true, если текущее состояние товара отличается от исходного.
func (s *Snapshot) Drifted(item domain.Item) bool {
	orig, ok := s.states[item.NumIID]
	return ok && orig != item.ApproveStatus
}

// Len возвращает количество записей.
func (s *Snapshot) Len() int {
	return len(s.states)
}
