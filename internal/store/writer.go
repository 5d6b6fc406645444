package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// writeTimeout bounds a single background write.
const writeTimeout = 5 * time.Second

// Writer applies key-value writes asynchronously on a single goroutine.
//
// Writes scheduled for the same key before the goroutine picks them up are
// coalesced, and the most recently scheduled value always lands last.
type Writer struct {
	kv  KV
	log *zap.Logger

	mu         sync.Mutex
	pending    map[string]string
	generation uint64
	waiters    []chan struct{}
	closed     bool

	// writeMu is held while a single value is being written so Discard can
	// wait out an in-flight write.
	writeMu sync.Mutex

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewWriter starts a Writer on kv. Close must be called to stop it.
func NewWriter(kv KV, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Writer{
		kv:      kv,
		log:     log.Named("writer"),
		pending: make(map[string]string),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Schedule queues value to be written under key and returns immediately.
func (w *Writer) Schedule(key, value string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("write scheduled after close", zap.String("key", key))
		return
	}
	w.pending[key] = value
	w.mu.Unlock()
	w.signal()
}

// ScheduleJSON encodes v now and schedules the encoded value. Encoding at
// schedule time means later mutations of v do not leak into the write.
func (w *Writer) ScheduleJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	w.Schedule(key, string(b))
	return nil
}

// Flush blocks until every write scheduled before the call is applied or
// discarded, or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()
	w.signal()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard drops every pending write and waits for an in-flight write to
// finish. No write scheduled before Discard lands after it returns.
func (w *Writer) Discard() {
	w.mu.Lock()
	w.generation++
	w.pending = make(map[string]string)
	w.mu.Unlock()

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
}

// Close applies pending writes and stops the goroutine.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	<-w.done
	return nil
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

// drain writes batches until nothing is pending, then releases flush waiters.
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			waiters := w.waiters
			w.waiters = nil
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		batch := w.pending
		gen := w.generation
		w.pending = make(map[string]string)
		w.mu.Unlock()

		for key, value := range batch {
			if !w.write(gen, key, value) {
				break
			}
		}
	}
}

// write applies one value unless the batch was discarded. It returns false
// when the rest of the batch should be dropped.
func (w *Writer) write(gen uint64, key, value string) bool {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	stale := gen != w.generation
	w.mu.Unlock()
	if stale {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := w.kv.Set(ctx, key, value); err != nil {
		w.log.Warn("write-back failed", zap.String("key", key), zap.Error(err))
	}
	return true
}
