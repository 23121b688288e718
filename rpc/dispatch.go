package rpc

import "sync"

// dispatcher runs callbacks one at a time, in the order they were posted, on a
// single goroutine.
type dispatcher struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func newDispatcher(size int) *dispatcher {
	d := &dispatcher{
		queue: make(chan func(), size),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case fn := <-d.queue:
			fn()
		case <-d.done:
			return
		}
	}
}

// post queues fn. It reports false once the dispatcher is closed.
func (d *dispatcher) post(fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.queue <- fn:
		return true
	case <-d.done:
		return false
	}
}

// close stops the dispatcher and waits for the running callback to return.
// Queued callbacks are dropped.
func (d *dispatcher) close() {
	d.once.Do(func() { close(d.done) })
	d.wg.Wait()
}
