// Package pool предоставляет обобщённый пул объектов T, ограниченных Reset().
// Публикатор телеметрии использует его для переиспользования буферов сжатия:
//
//	buffers := pool.New(func() *bytes.Buffer { return new(bytes.Buffer) })
//	buf := buffers.Get()
//	defer buffers.Put(buf)
package pool

import (
	"sync"
)

// Resettable ограничивает тип тем, у кого есть метод Reset().
type Resettable interface {
	Reset()
}

// Pool хранит объекты типа T, ограниченных Resettable.
// Количество простаивающих объектов ограничено maxIdle, чтобы пул не удерживал
// память после всплеска нагрузки.
type Pool[T Resettable] struct {
	mu      sync.Mutex
	items   []T
	maxIdle int
	Factory func() T
}

// DefaultMaxIdle задаёт максимальное число простаивающих объектов по умолчанию.
const DefaultMaxIdle = 16

// New создаёт новый Pool[T]. Фабрика должна возвращать новый экземпляр T.
func New[T Resettable](factory func() T) *Pool[T] {
	return &Pool[T]{Factory: factory, maxIdle: DefaultMaxIdle}
}

// Get возвращает объект из пула. Если пул пуст, создаёт новый через фабрику.
func (p *Pool[T]) Get() T {
	p.mu.Lock()
	if n := len(p.items); n > 0 {
		v := p.items[n-1]
		var zero T
		p.items[n-1] = zero
		p.items = p.items[:n-1]
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	if p.Factory != nil {
		return p.Factory()
	}
	var zero T
	return zero
}

// Put возвращает объект обратно в пул после вызова Reset().
// Если пул уже хранит maxIdle объектов, объект отбрасывается.
func (p *Pool[T]) Put(v T) {
	v.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) >= p.maxIdle {
		return
	}
	p.items = append(p.items, v)
}

// Idle возвращает число простаивающих объектов.
func (p *Pool[T]) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
