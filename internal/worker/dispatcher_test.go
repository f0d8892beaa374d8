package worker

import (
	"sync"
	"testing"
	"time"
)

func TestDispatcherPreservesPerChatOrder(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 4, MaxWorkers: 4, QueueSize: 64})

	var mu sync.Mutex
	got := make([]int, 0, 10)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		err := d.Submit(Job{
			ChatID: 42,
			Run: func() {
				// A small sleep widens the race window if ordering breaks.
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
				wg.Done()
			},
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("chat jobs ran out of order: %v", got)
		}
	}
}

func TestDispatcherRunsChatsConcurrently(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 2, MaxWorkers: 4, QueueSize: 16})

	release := make(chan struct{})
	started := make(chan int64, 2)
	var wg sync.WaitGroup

	for _, chatID := range []int64{1, 2} {
		chatID := chatID
		wg.Add(1)
		if err := d.Submit(Job{ChatID: chatID, Run: func() {
			started <- chatID
			<-release
			wg.Done()
		}}); err != nil {
			t.Fatalf("submit chat %d: %v", chatID, err)
		}
	}

	// Both chats must start while neither has finished.
	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			close(release)
			t.Fatalf("chats did not run concurrently")
		}
	}
	close(release)
	wg.Wait()
}

func TestDispatcherBlocksSecondJobOfBusyChat(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 4, MaxWorkers: 4, QueueSize: 16})

	release := make(chan struct{})
	firstStarted := make(chan struct{})
	secondRan := make(chan struct{})

	if err := d.Submit(Job{ChatID: 7, Run: func() {
		close(firstStarted)
		<-release
	}}); err != nil {
		t.Fatalf("submit first: %v", err)
	}
	<-firstStarted

	if err := d.Submit(Job{ChatID: 7, Run: func() { close(secondRan) }}); err != nil {
		t.Fatalf("submit second: %v", err)
	}

	select {
	case <-secondRan:
		t.Fatalf("second job ran while first was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-secondRan:
	case <-time.After(2 * time.Second):
		t.Fatalf("second job never ran after first completed")
	}
}

func TestSubmitReportsBusyQueue(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})

	// Occupy the only worker, then park the dispatch loop on worker
	// acquisition with a second chat's job.
	_ = d.Submit(Job{ChatID: 1, Run: func() {
		close(started)
		<-block
	}})
	<-started
	_ = d.Submit(Job{ChatID: 2, Run: func() {}})
	time.Sleep(100 * time.Millisecond)

	// Intake capacity is one; the first extra job fills it, the next is
	// rejected.
	var sawBusy bool
	for i := int64(3); i < 10; i++ {
		if err := d.Submit(Job{ChatID: i, Run: func() {}}); err == ErrDispatcherBusy {
			sawBusy = true
			break
		}
	}
	if !sawBusy {
		t.Fatalf("expected ErrDispatcherBusy once the queue filled")
	}
}

func TestCancelChatDropsPendingJobs(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{MinWorkers: 1, MaxWorkers: 1, QueueSize: 16})

	release := make(chan struct{})
	started := make(chan struct{})
	cancelled := make(chan struct{})

	_ = d.Submit(Job{ChatID: 9, Run: func() {
		close(started)
		<-release
	}})
	<-started

	_ = d.Submit(Job{ChatID: 9, Run: func() { close(cancelled) }})
	time.Sleep(50 * time.Millisecond)
	d.CancelChat(9)
	close(release)

	select {
	case <-cancelled:
		t.Fatalf("pending job ran after CancelChat")
	case <-time.After(200 * time.Millisecond):
	}
}
