package locker

import (
	"context"
	"sync"
	"testing"
)

func TestLocalMutualExclusion(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	const workers = 50
	const iterations = 20

	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for range iterations {
				unlock, err := l.Lock(ctx, 1)
				if err != nil {
					t.Errorf("lock: %v", err)
					return
				}
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("got %d increments, want %d", counter, workers*iterations)
	}
}

func TestLocalIndependentClients(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock1, err := l.Lock(ctx, 1)
	if err != nil {
		t.Fatalf("lock client 1: %v", err)
	}
	defer unlock1()

	// Holding client 1 must not block client 2.
	done := make(chan struct{})
	go func() {
		unlock2, err := l.Lock(ctx, 2)
		if err != nil {
			t.Errorf("lock client 2: %v", err)
			return
		}
		unlock2()
		close(done)
	}()

	<-done
}
