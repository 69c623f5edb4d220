package concurrent

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	jobs := make([]int, 100)
	for i := range jobs {
		jobs[i] = i
	}

	results := Run(8, jobs, func(job int) int { return job * job })
	require.Len(t, results, len(jobs))

	sort.Ints(results)
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}

func TestWorkerPoolCollectsEveryResult(t *testing.T) {
	wp := NewWorkerPool[string, int](3, 10)
	wp.Start(func(job string) int { return len(job) })

	for _, s := range []string{"a", "bb", "ccc"} {
		wp.AddJob(s)
	}
	wp.Close()
	wp.Wait()

	total := 0
	for r := range wp.CollectResults() {
		total += r
	}
	assert.Equal(t, 6, total)
}

func TestPoolSchedule(t *testing.T) {
	p := NewPool(4, 8, 1)
	defer p.Close()

	var (
		wg    sync.WaitGroup
		count atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		p.Schedule(func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()
	assert.Equal(t, int64(50), count.Load())
}

func TestPoolScheduleTimeout(t *testing.T) {
	p := NewPool(1, 0, 1)
	defer p.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.ScheduleTimeout(time.Second, func() {
		close(started)
		<-release
	}))
	<-started

	err := p.ScheduleTimeout(10*time.Millisecond, func() {})
	assert.ErrorIs(t, err, ErrScheduleTimeout)

	close(release)
}

func TestPoolClosed(t *testing.T) {
	p := NewPool(2, 1, 1)
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.ScheduleTimeout(time.Millisecond, func() {}), ErrScheduleTimeout)
}
