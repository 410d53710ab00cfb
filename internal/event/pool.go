package event

import (
	"sync"
)

// Wheel and key-repeat scrolling produce ScrolledBy events at a high rate.
// Use the pool to reduce GC pressure:
//
//	ev := AcquireScrolledBy()
//	ev.Delta = 30
//	seq.Dispatch(ev)  // the sequencer releases it after processing
var scrolledByPool = sync.Pool{
	New: func() interface{} {
		return &ScrolledBy{}
	},
}

// AcquireScrolledBy gets a ScrolledBy event from the pool, stamped with the current time.
func AcquireScrolledBy() *ScrolledBy {
	ev := scrolledByPool.Get().(*ScrolledBy)
	ev.BaseEvent = Now()
	return ev
}

// ReleaseScrolledBy returns a ScrolledBy event to the pool.
// The event is reset to zero values before being pooled.
func ReleaseScrolledBy(ev *ScrolledBy) {
	if ev == nil {
		return
	}
	ev.Ts = 0
	ev.Delta = 0

	scrolledByPool.Put(ev)
}

// Warmup pre-allocates events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*ScrolledBy, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireScrolledBy())
	}
	for _, ev := range evs {
		ReleaseScrolledBy(ev)
	}
}
