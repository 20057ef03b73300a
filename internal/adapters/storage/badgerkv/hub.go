package badgerkv

import (
	"sync"

	"github.com/evanschultz/issuedeck/internal/app"
)

// hub fans committed table changes out to subscribers.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[app.Table]map[int]func()
}

func newHub() *hub {
	return &hub{subs: map[app.Table]map[int]func(){}}
}

// subscribe registers fn and returns an idempotent unsubscribe.
func (h *hub) subscribe(table app.Table, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	if h.subs[table] == nil {
		h.subs[table] = map[int]func(){}
	}
	h.subs[table][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[table], id)
		})
	}
}

// publish calls every subscriber of tables. Callbacks run without the lock
// held so they may read the store or unsubscribe.
func (h *hub) publish(tables ...app.Table) {
	h.mu.Lock()
	var fns []func()
	for _, table := range tables {
		for _, fn := range h.subs[table] {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
