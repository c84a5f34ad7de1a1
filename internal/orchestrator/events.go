package orchestrator

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// StatusFunc receives one status update. Implementations must not
// block; the orchestrator calls it synchronously from its phases.
type StatusFunc func(update models.StatusUpdate)

// Emitter bridges status updates onto a buffered channel for a chat
// surface that consumes them asynchronously. When the receiver cannot
// keep up, non-delivered updates are dropped after a short grace
// rather than stalling the orchestration.
type Emitter struct {
	updates      chan models.StatusUpdate
	droppedCount atomic.Uint64
}

// NewEmitter creates an emitter with the given channel buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		updates: make(chan models.StatusUpdate, bufferSize),
	}
}

// Emit sends an update, waiting up to 100ms for buffer space before
// dropping it.
func (e *Emitter) Emit(update models.StatusUpdate) {
	select {
	case e.updates <- update:
		return
	default:
	}

	select {
	case e.updates <- update:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[orchestrator] status channel full, dropped update (total dropped: %d): type=%s", count, update.Type)
		}
	}
}

// StatusFunc adapts the emitter to the orchestrator's callback shape.
func (e *Emitter) StatusFunc() StatusFunc {
	return e.Emit
}

// Updates returns the read side for the consumer.
func (e *Emitter) Updates() <-chan models.StatusUpdate {
	return e.updates
}

// DroppedCount returns how many updates have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Close closes the updates channel once no more emits will happen.
func (e *Emitter) Close() {
	close(e.updates)
}
