package pool

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestEachRunsAllTasks(t *testing.T) {
	p := New(4)
	var count int64
	err := p.Each(100, func(i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
	if count != 100 {
		t.Errorf("count = %d, want 100", count)
	}
}

func TestEachPropagatesError(t *testing.T) {
	p := New(2)
	want := errors.New("boom")
	err := p.Each(10, func(i int) error {
		if i == 5 {
			return want
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestSubmitFuture(t *testing.T) {
	f := Submit(func() (int, error) {
		return 42, nil
	})
	v, err := f.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("v = %d, want 42", v)
	}
}
