// Package framequeue implements the bounded single-producer/multi-consumer
// frame buffer hand-off between the video decoder and the OCR worker pool.
package framequeue

import (
	"sync"
	"sync/atomic"
)

// Buffer is a reusable frame buffer, owned by exactly one side (decoder or
// worker) at any time. Buffers are never freed during the queue's lifetime,
// only recycled between the producer and consumer deques.
type Buffer struct {
	// FrameNumber is the monotonically assigned decoder frame number. Set by
	// the decoder before ReturnConsumer, read by the worker after TakeConsumer.
	FrameNumber int64

	// Pixels holds len(Pixels) == BytesPerLine*Height RGB24 bytes. Reused
	// across cycles; the decoder overwrites it in place before publishing.
	Pixels []byte

	Width        int
	Height       int
	BytesPerLine int
}

// Queue hands buffers back and forth between a single producer (the decoder)
// and N consumers (OCR workers). Two deques share the same fixed pool of N
// buffers: producerValues (free for the decoder to fill) and consumerValues
// (filled, awaiting OCR). Each deque has its own mutex and condition
// variable, matching the original value_queue<T> design.
type Queue struct {
	producerMu   sync.Mutex
	producerCond sync.Cond
	producer     []*Buffer
	stopProducer bool

	// stopProducerFlag mirrors stopProducer for ReturnProducer, which needs
	// to observe it without taking producerMu (it already holds consumerMu).
	stopProducerFlag atomic.Bool

	consumerMu   sync.Mutex
	consumerCond sync.Cond
	consumer     []*Buffer
	stopConsumer bool
}

// New constructs a queue with n buffers, each sized for bytesPerLine*height
// RGB24 pixels, all initially on the producer side.
func New(n int, bytesPerLine, height int) *Queue {
	q := &Queue{
		producer: make([]*Buffer, 0, n),
	}
	q.producerCond.L = &q.producerMu
	q.consumerCond.L = &q.consumerMu
	for i := 0; i < n; i++ {
		q.producer = append(q.producer, &Buffer{
			Pixels:       make([]byte, bytesPerLine*height),
			BytesPerLine: bytesPerLine,
			Height:       height,
		})
	}
	return q
}

// TakeProducer blocks until a buffer is free for the decoder to write into,
// or shutdown is requested. Returns nil on shutdown.
func (q *Queue) TakeProducer() *Buffer {
	q.producerMu.Lock()
	defer q.producerMu.Unlock()
	for len(q.producer) == 0 && !q.stopProducer {
		q.producerCond.Wait()
	}
	if q.stopProducer {
		return nil
	}
	buf := q.producer[0]
	q.producer = q.producer[1:]
	return buf
}

// TakeConsumer blocks until a filled buffer is available, or no more work can
// arrive. Returns nil once the consumer side has been shut down and drained.
func (q *Queue) TakeConsumer() *Buffer {
	q.consumerMu.Lock()
	defer q.consumerMu.Unlock()
	for len(q.consumer) == 0 && !q.stopConsumer {
		q.consumerCond.Wait()
	}
	if len(q.consumer) == 0 {
		return nil
	}
	buf := q.consumer[0]
	q.consumer = q.consumer[1:]
	return buf
}

// ReturnConsumer publishes a buffer filled by the decoder, waking one
// consumer.
func (q *Queue) ReturnConsumer(buf *Buffer) {
	q.consumerMu.Lock()
	q.consumer = append(q.consumer, buf)
	q.consumerMu.Unlock()
	q.consumerCond.Signal()
}

// ReturnProducer returns an emptied buffer to the producer side, waking one
// producer. If the producer side has already been shut down and the
// consumer side is now empty, the consumer side is shut down too (there is
// no more work that could ever reach it) and every waiting consumer is woken.
func (q *Queue) ReturnProducer(buf *Buffer) {
	q.producerMu.Lock()
	q.producer = append(q.producer, buf)
	q.producerMu.Unlock()
	q.producerCond.Signal()

	q.consumerMu.Lock()
	shouldStopConsumer := false
	if q.stopProducerFlag.Load() && len(q.consumer) == 0 {
		if !q.stopConsumer {
			shouldStopConsumer = true
			q.stopConsumer = true
		}
	}
	q.consumerMu.Unlock()
	if shouldStopConsumer {
		q.consumerCond.Broadcast()
	}
}

// Shutdown sets the producer-shutdown flag, unblocking any thread waiting in
// TakeProducer. If the consumer side is already empty, it also sets the
// consumer-shutdown flag immediately (there is no filled buffer left to
// drain, and no producer will ever fill one again). Idempotent.
func (q *Queue) Shutdown() {
	q.producerMu.Lock()
	q.stopProducer = true
	q.producerMu.Unlock()
	q.stopProducerFlag.Store(true)
	q.producerCond.Broadcast()

	q.consumerMu.Lock()
	if len(q.consumer) == 0 {
		q.stopConsumer = true
	}
	q.consumerMu.Unlock()
	q.consumerCond.Broadcast()
}

// Counts returns the current number of buffers on the producer side and the
// consumer side, for diagnostics and tests. The sum, plus any buffer
// currently held by the decoder or a worker (in-flight), always equals N.
func (q *Queue) Counts() (producer, consumer int) {
	q.producerMu.Lock()
	producer = len(q.producer)
	q.producerMu.Unlock()

	q.consumerMu.Lock()
	consumer = len(q.consumer)
	q.consumerMu.Unlock()
	return
}
