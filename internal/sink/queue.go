package sink

import (
	"container/list"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/joncrlsn/dque"
	"github.com/sirupsen/logrus"
)

// lineItem is the dque-persisted record: one diagnostic line.
type lineItem struct {
	Line string
}

// lineItemBuilder is handed to dque so it can reconstruct lineItems from a
// segment loaded off disk.
func lineItemBuilder() interface{} {
	return &lineItem{}
}

// ErrQueueEmpty is returned by dequeueLocked when neither the in-memory nor
// the disk-backed tail has anything pending.
var ErrQueueEmpty = errors.New("sink: queue is empty")

// QueuedSink buffers appended lines in memory up to maxInMem entries,
// spilling further lines to a dque-backed disk queue, and fans them out to an
// underlying sink from a dedicated drain goroutine. This keeps a slow
// downstream (an AMQP/STOMP forwarder reconnecting) from ever blocking the
// caller of AppendLine.
type QueuedSink struct {
	downstream LineSink
	logger     logrus.FieldLogger

	mu        sync.Mutex
	emptyCond *sync.Cond
	inMemory  *list.List
	disk      *dque.DQue
	maxInMem  int

	sizeGauge func(int)

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewQueuedSink creates a QueuedSink rooted at queueDir (a directory; the
// queue's own name is derived from its base name), forwarding drained
// lines to downstream. sizeGauge, if non-nil, is called after every change
// in queue depth so a caller can mirror it into a metric.
func NewQueuedSink(queueDir string, downstream LineSink, logger logrus.FieldLogger, sizeGauge func(int)) (*QueuedSink, error) {
	if logger == nil {
		logger = logrus.New()
	}
	qName := path.Base(queueDir)
	qDir := path.Dir(queueDir)

	disk, err := dque.NewOrOpen(qName, qDir, 10000, lineItemBuilder)
	if err != nil {
		return nil, err
	}
	if err := disk.TurboOn(); err != nil {
		logger.Warnln("sink: failed to enable dque turbo mode, falling back to fsync-safe mode:", err)
	}

	qs := &QueuedSink{
		downstream: downstream,
		logger:     logger,
		inMemory:   list.New(),
		disk:       disk,
		maxInMem:   100,
		sizeGauge:  sizeGauge,
		stopCh:     make(chan struct{}),
	}
	qs.emptyCond = sync.NewCond(&qs.mu)
	go qs.drain()
	go qs.metricsTicker(5*time.Second, qs.stopCh)
	go qs.wakeOnStop()
	return qs, nil
}

// wakeOnStop broadcasts on emptyCond once stopCh closes, so a dequeue()
// blocked in emptyCond.Wait() wakes up and notices the queue is stopping.
func (qs *QueuedSink) wakeOnStop() {
	<-qs.stopCh
	qs.mu.Lock()
	qs.emptyCond.Broadcast()
	qs.mu.Unlock()
}

// AppendLine implements LineSink; it never blocks on the downstream sink.
func (qs *QueuedSink) AppendLine(line string) {
	qs.mu.Lock()
	defer qs.mu.Unlock()

	if qs.inMemory.Len() < qs.maxInMem {
		qs.inMemory.PushBack(line)
	} else if err := qs.disk.Enqueue(&lineItem{Line: line}); err != nil {
		qs.logger.Errorln("sink: failed to enqueue line to disk:", err)
	}
	qs.emptyCond.Broadcast()
	qs.reportSize()
}

func (qs *QueuedSink) reportSize() {
	if qs.sizeGauge != nil {
		qs.sizeGauge(qs.inMemory.Len() + qs.disk.SizeUnsafe())
	}
}

func (qs *QueuedSink) dequeueLocked() (string, error) {
	if qs.inMemory.Len() == 0 {
		return "", ErrQueueEmpty
	}
	line := qs.inMemory.Remove(qs.inMemory.Front()).(string)

	for qs.inMemory.Len() < qs.maxInMem {
		item, err := qs.disk.Dequeue()
		if err == dque.ErrEmpty {
			break
		}
		if err != nil {
			qs.logger.Errorln("sink: failed to dequeue from disk:", err)
			break
		}
		qs.inMemory.PushBack(item.(*lineItem).Line)
	}
	return line, nil
}

func (qs *QueuedSink) dequeue() (string, bool) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	for {
		select {
		case <-qs.stopCh:
			return "", false
		default:
		}
		line, err := qs.dequeueLocked()
		if err == nil {
			qs.reportSize()
			return line, true
		}
		// Wait() atomically unlocks qs.mu and suspends the calling
		// goroutine; wakeOnStop's Broadcast (on stop) or AppendLine's
		// Broadcast (on new data) resumes it with the lock reacquired.
		qs.emptyCond.Wait()
	}
}

func (qs *QueuedSink) drain() {
	for {
		line, ok := qs.dequeue()
		if !ok {
			return
		}
		qs.downstream.AppendLine(line)
	}
}

// Close stops the drain goroutine and closes the on-disk queue files.
func (qs *QueuedSink) Close() error {
	qs.stopOnce.Do(func() { close(qs.stopCh) })
	return qs.disk.Close()
}

// metricsTicker periodically reports the queue depth even when idle, every
// 5 seconds.
func (qs *QueuedSink) metricsTicker(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			qs.mu.Lock()
			qs.reportSize()
			qs.mu.Unlock()
		case <-stop:
			return
		}
	}
}
