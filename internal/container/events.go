package container

import "sync"

type emitter struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func newEmitter() *emitter {
	return &emitter{subs: make(map[int]func(Event))}
}

func (e *emitter) subscribe(fn func(Event)) func() {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.subs {
		fn(ev)
	}
}
