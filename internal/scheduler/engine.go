package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidTriggerTime = errors.New("scheduler: invalid trigger time")
	ErrInvalidKey         = errors.New("scheduler: alarm key is required")
	ErrEngineStopped      = errors.New("scheduler: engine stopped")
)

// Alarm is a named one-shot wakeup.
type Alarm struct {
	Key    string
	FireAt time.Time
}

type queueItem struct {
	alarm Alarm
	index int
}

type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].alarm.FireAt.Before(pq[j].alarm.FireAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// Engine keeps keyed alarms in a heap and emits each on C when it comes due.
// Scheduling an existing key replaces its fire time. Emission never blocks:
// when the buffer is full the alarm is dropped and counted.
type Engine struct {
	mu      sync.Mutex
	queue   priorityQueue
	byKey   map[string]*queueItem
	emitted map[string]time.Time
	out     chan Alarm
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:   make(priorityQueue, 0),
		byKey:   make(map[string]*queueItem),
		emitted: make(map[string]time.Time),
		out:     make(chan Alarm, bufferSize),
		wakeup:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Alarm {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(a Alarm) error {
	if a.Key == "" {
		return ErrInvalidKey
	}
	if a.FireAt.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrEngineStopped
	}

	if item, ok := e.byKey[a.Key]; ok {
		item.alarm = a
		heap.Fix(&e.queue, item.index)
	} else {
		item := &queueItem{alarm: a}
		heap.Push(&e.queue, item)
		e.byKey[a.Key] = item
	}
	e.signalWakeup()
	return nil
}

// Cancel removes a pending alarm. Unknown keys are not an error.
func (e *Engine) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(&e.queue, item.index)
	delete(e.byKey, key)
	e.signalWakeup()
	return true
}

// Pending returns the alarms not yet emitted, soonest first.
func (e *Engine) Pending() []Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Alarm, 0, len(e.queue))
	for _, item := range e.queue {
		out = append(out, item.alarm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Emitted reports the fire time of an alarm the engine has already popped
// and not yet been told to Forget.
func (e *Engine) Emitted(key string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	at, ok := e.emitted[key]
	return at, ok
}

func (e *Engine) Forget(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.emitted, key)
}

// forgetDropped clears a dropped alarm from emitted so that a later
// AlarmBook.Sync schedules it again.
func (e *Engine) forgetDropped(a Alarm) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if at, ok := e.emitted[a.Key]; ok && at.Equal(a.FireAt) {
		delete(e.emitted, a.Key)
	}
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// Port exposes the engine as a NotificationPort. Alarms live only as long as
// the process.
func (e *Engine) Port() NotificationPort { return enginePort{e} }

type enginePort struct{ e *Engine }

func (p enginePort) ScheduleAt(_ context.Context, key string, fireAt time.Time) error {
	return p.e.Schedule(Alarm{Key: key, FireAt: fireAt})
}

func (p enginePort) Cancel(_ context.Context, key string) error {
	p.e.Cancel(key)
	return nil
}

func (p enginePort) ListScheduled(_ context.Context) ([]string, error) {
	pending := p.e.Pending()
	keys := make([]string, 0, len(pending))
	for _, a := range pending {
		keys = append(keys, a.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (p enginePort) FireTimes(_ context.Context) (map[string]time.Time, error) {
	pending := p.e.Pending()
	out := make(map[string]time.Time, len(pending))
	for _, a := range pending {
		out[a.Key] = a.FireAt
	}
	return out, nil
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.FireAt)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			due := e.popDue(time.Now())
			for _, a := range due {
				select {
				case e.out <- a:
				default:
					e.forgetDropped(a)
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			if timer != nil {
				stopTimer(timer)
			}
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Alarm, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Alarm{}, false
	}
	return e.queue[0].alarm, true
}

func (e *Engine) popDue(now time.Time) []Alarm {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alarm, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].alarm
		if next.FireAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(*queueItem)
		delete(e.byKey, item.alarm.Key)
		e.emitted[item.alarm.Key] = item.alarm.FireAt
		out = append(out, item.alarm)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
