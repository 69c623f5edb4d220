package concurrent

import (
	"errors"
	"sync"
	"time"
)

var ErrScheduleTimeout = errors.New("schedule error: timed out")

// Pool is a bounded goroutine pool. At most size goroutines run tasks; tasks queue up to
// queue entries while all of them are busy.
type Pool struct {
	sem  chan struct{}
	work chan func()

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool creates a pool and starts spawn goroutines right away.
func NewPool(size, queue, spawn int) *Pool {
	if spawn <= 0 && queue > 0 {
		panic("dead queue configuration detected")
	}
	if spawn > size {
		panic("spawn > workers")
	}
	p := &Pool{
		sem:    make(chan struct{}, size),
		work:   make(chan func(), queue),
		closed: make(chan struct{}),
	}
	for i := 0; i < spawn; i++ {
		p.sem <- struct{}{}
		go p.worker(func() {})
	}
	return p
}

// Schedule runs task on a pool goroutine, blocking while the pool is saturated.
func (p *Pool) Schedule(task func()) {
	_ = p.schedule(task, nil)
}

// ScheduleTimeout is like Schedule but gives up with ErrScheduleTimeout after timeout.
func (p *Pool) ScheduleTimeout(timeout time.Duration, task func()) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return p.schedule(task, timer.C)
}

func (p *Pool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-p.closed:
		return ErrScheduleTimeout
	default:
	}

	select {
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *Pool) worker(task func()) {
	defer func() { <-p.sem }()

	task()

	for {
		select {
		case task := <-p.work:
			task()
		case <-p.closed:
			return
		}
	}
}

// Close stops idle workers. Tasks already running finish normally.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}
