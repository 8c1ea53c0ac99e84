package pool

import (
	"bytes"
	"testing"
)

// TestBufferPoolGetPut проверяет, что возвращённый буфер очищается и переиспользуется.
func TestBufferPoolGetPut(t *testing.T) {
	p := New(func() *bytes.Buffer { return new(bytes.Buffer) })

	buf := p.Get()
	if buf == nil {
		t.Fatal("expected non-nil buffer from pool")
	}
	buf.WriteString(`{"events":[]}`)

	p.Put(buf)

	buf2 := p.Get()
	if buf2 != buf {
		t.Error("expected the same buffer to be reused")
	}
	if buf2.Len() != 0 {
		t.Errorf("expected buffer to be reset, got %d bytes", buf2.Len())
	}
}

// TestPoolEmptyUsesFactory проверяет поведение при пустом пуле.
func TestPoolEmptyUsesFactory(t *testing.T) {
	created := 0
	p := New(func() *bytes.Buffer {
		created++
		return new(bytes.Buffer)
	})

	b1 := p.Get()
	b2 := p.Get()

	if b1 == b2 {
		t.Error("expected different buffers from factory")
	}
	if created != 2 {
		t.Errorf("expected 2 factory calls, got %d", created)
	}
}

// TestPoolMaxIdle проверяет, что пул не хранит больше maxIdle объектов.
func TestPoolMaxIdle(t *testing.T) {
	p := New(func() *bytes.Buffer { return new(bytes.Buffer) })

	for i := 0; i < DefaultMaxIdle+5; i++ {
		p.Put(new(bytes.Buffer))
	}

	if p.Idle() != DefaultMaxIdle {
		t.Errorf("expected %d idle buffers, got %d", DefaultMaxIdle, p.Idle())
	}
}

// TestPoolWithoutFactory проверяет, что без фабрики возвращается нулевое значение.
func TestPoolWithoutFactory(t *testing.T) {
	p := &Pool[*bytes.Buffer]{}

	if got := p.Get(); got != nil {
		t.Errorf("expected nil without factory, got %v", got)
	}
}
