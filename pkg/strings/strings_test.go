package strings

import (
	"fmt"
	"sync"
	"testing"
)

func TestBuilder(t *testing.T) {
	builder := NewBuilder(4)

	builder.WriteString("hello")
	_ = builder.WriteByte(' ')
	builder.WriteRune('é')

	result := builder.String()
	if result != "hello é" {
		t.Errorf("expected 'hello é', got '%s'", result)
	}

	if builder.Len() != 8 {
		t.Errorf("expected length 8, got %d", builder.Len())
	}

	builder.Reset()
	if builder.Len() != 0 {
		t.Errorf("expected length 0 after reset, got %d", builder.Len())
	}
	if result != "hello é" {
		t.Errorf("reset must not change a returned string, got '%s'", result)
	}
}

func TestPooledBuilder(t *testing.T) {
	builder := GetBuilder()
	builder.WriteString("pooled")
	if builder.String() != "pooled" {
		t.Errorf("expected 'pooled', got '%s'", builder.String())
	}
	PutBuilder(builder)

	again := GetBuilder()
	if again.Len() != 0 {
		t.Errorf("expected an empty builder from the pool, got length %d", again.Len())
	}
	PutBuilder(again)
	PutBuilder(nil)
}

func TestIntern(t *testing.T) {
	intern := NewIntern(0)

	a := intern.Get(fmt.Sprint("col", 1))
	b := intern.Get(fmt.Sprint("col", 1))
	if a != b {
		t.Errorf("expected equal strings, got '%s' and '%s'", a, b)
	}
	if intern.Size() != 1 {
		t.Errorf("expected 1 interned string, got %d", intern.Size())
	}

	intern.Clear()
	if intern.Size() != 0 {
		t.Errorf("expected 0 interned strings after clear, got %d", intern.Size())
	}
}

func TestInternLimit(t *testing.T) {
	intern := NewIntern(2)
	for _, s := range []string{"a", "b", "c", "a"} {
		if got := intern.Get(s); got != s {
			t.Errorf("expected '%s', got '%s'", s, got)
		}
	}
	if intern.Size() != 2 {
		t.Errorf("expected 2 interned strings, got %d", intern.Size())
	}
}

func TestInternConcurrent(t *testing.T) {
	intern := NewIntern(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				intern.Get(fmt.Sprint("value", j%10))
			}
		}()
	}
	wg.Wait()
	if intern.Size() != 10 {
		t.Errorf("expected 10 interned strings, got %d", intern.Size())
	}
}
