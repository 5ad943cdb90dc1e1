package queue

import (
	"sync"
	"testing"
)

type tick struct {
	Part string
	Tick uint
}

func TestQueue_New(t *testing.T) {
	q := New[tick]()
	if q.Len() != 0 {
		t.Errorf("expected length 0, got %d", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected Pop on empty queue to report false")
	}
	if got := q.Drain(0); got != nil {
		t.Errorf("expected nil drain, got %v", got)
	}
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[tick]()
	q.Push(tick{"rcs1", 0}, tick{"rcs1", 1})
	q.Push(tick{"rcs2", 0})

	first, ok := q.Pop()
	if !ok || first != (tick{"rcs1", 0}) {
		t.Errorf("expected {rcs1 0}, got %+v (ok=%v)", first, ok)
	}
	if q.Len() != 2 {
		t.Errorf("expected length 2, got %d", q.Len())
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3, 4, 5)

	batch := q.Drain(2)
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Errorf("expected [1 2], got %v", batch)
	}

	rest := q.Drain(0)
	if len(rest) != 3 || rest[0] != 3 {
		t.Errorf("expected [3 4 5], got %v", rest)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_DrainReturnsCopy(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	batch := q.Drain(1)
	batch[0] = 99
	q.Push(3)

	if got := q.Drain(0); got[0] != 2 || got[1] != 3 {
		t.Errorf("expected [2 3], got %v", got)
	}
}

func TestQueue_RequeueGoesToHead(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	failed := q.Drain(0)
	q.Push(3)

	q.Requeue(failed)
	q.Requeue(nil)

	got := q.Drain(0)
	want := []int{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestQueue_BoundedDropsOldest(t *testing.T) {
	q := NewBounded[int](3)
	q.Push(1, 2, 3, 4)
	q.Push(5)

	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", q.Dropped())
	}
	if got := q.Drain(0); got[0] != 3 || got[2] != 5 {
		t.Errorf("expected [3 4 5], got %v", got)
	}

	q.Push(6, 7)
	q.Requeue([]int{1, 2})
	if q.Dropped() != 3 {
		t.Errorf("expected 3 dropped after requeue, got %d", q.Dropped())
	}
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestQueue_ConcurrentPushDrain(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	drained := 0

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(j)
			}
		}()
		go func() {
			defer wg.Done()
			n := len(q.Drain(7))
			mu.Lock()
			drained += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total := drained + q.Len(); total != 1000 {
		t.Errorf("expected 1000 items accounted for, got %d", total)
	}
}
