package eventbus

import (
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Bus wraps the underlying event bus with a bounded worker pool so that
// publishing never blocks the request path. Handlers run on the workers;
// a full queue drops the event rather than stalling the caller.
type Bus struct {
	bus      evbus.Bus
	workChan chan func()
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBus creates a bus backed by workerNum goroutines and starts them.
func NewBus(workerNum int) *Bus {
	if workerNum <= 0 {
		workerNum = 4
	}
	b := &Bus{
		bus:      evbus.New(),
		workChan: make(chan func(), 256),
		stopChan: make(chan struct{}),
	}
	for i := 0; i < workerNum; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		case deliver := <-b.workChan:
			func() {
				defer func() {
					// A panicking subscriber must not take a worker down.
					_ = recover()
				}()
				deliver()
			}()
		}
	}
}

// Publish delivers the event on a worker goroutine. Events published after
// Stop, or while the queue is full, are dropped.
func (b *Bus) Publish(topic string, args ...interface{}) {
	select {
	case b.workChan <- func() { b.bus.Publish(topic, args...) }:
	default:
	}
}

// Subscribe registers fn for the topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// HasCallback reports whether the topic has subscribers.
func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// Stop shuts the workers down. Safe to call more than once.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
	})
}
