// Package device executes data-parallel compute dispatches over grid rows.
//
// Dispatches are issued one at a time and each blocks until every row is
// done, so dispatch order is the only ordering the solver relies on.
package device

import (
	"runtime"
	"sync"
)

// defaultParallelThreshold is the minimum row count to fan out to workers.
// Below this, inline execution is faster than the channel round trip.
const defaultParallelThreshold = 32

// Kernel processes rows [y0, y1) of one dispatch.
type Kernel func(y0, y1 int)

// workChunk represents a range of rows for a worker to process.
type workChunk struct {
	start, end int
	fn         Kernel
}

// Stats counts issued work.
type Stats struct {
	Dispatches uint64 // Full-grid dispatches
	Tiles      uint64 // Inline tile dispatches
	Chunks     uint64 // Chunks handed to workers
}

// Device is a CPU compute queue backed by a persistent worker pool.
// It is not safe for concurrent use: one host goroutine issues dispatches.
type Device struct {
	numWorkers int
	threshold  int
	stats      Stats

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// New creates a device. workers <= 0 uses GOMAXPROCS; threshold <= 0 uses the default.
func New(workers, threshold int) *Device {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = defaultParallelThreshold
	}
	return &Device{numWorkers: workers, threshold: threshold}
}

// Workers returns the worker count.
func (d *Device) Workers() int {
	return d.numWorkers
}

// Stats returns dispatch counters.
func (d *Device) Stats() Stats {
	return d.stats
}

// Dispatch runs fn over rows [0, rows) and returns when all rows are done.
func (d *Device) Dispatch(rows int, fn Kernel) {
	if rows <= 0 {
		return
	}
	d.stats.Dispatches++

	if rows < d.threshold || d.numWorkers == 1 {
		fn(0, rows)
		return
	}

	if !d.running {
		d.startWorkers()
	}

	chunkSize := (rows + d.numWorkers - 1) / d.numWorkers

	dispatched := 0
	for w := 0; w < d.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, rows)
		if start >= end {
			continue
		}
		d.workChan <- workChunk{start: start, end: end, fn: fn}
		dispatched++
	}
	d.stats.Chunks += uint64(dispatched)

	for i := 0; i < dispatched; i++ {
		<-d.doneChan
	}
}

// Tile runs a small region kernel inline as its own dispatch.
// Tiled in-place writes rely on this strict ordering.
func (d *Device) Tile(fn func()) {
	d.stats.Tiles++
	fn()
}

// startWorkers launches persistent worker goroutines.
func (d *Device) startWorkers() {
	d.workChan = make(chan workChunk, d.numWorkers)
	d.doneChan = make(chan struct{}, d.numWorkers)
	d.stopChan = make(chan struct{})
	d.running = true

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// worker runs in a goroutine, processing chunks until stopped.
func (d *Device) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopChan:
			return
		case chunk, ok := <-d.workChan:
			if !ok {
				return
			}
			chunk.fn(chunk.start, chunk.end)
			d.doneChan <- struct{}{}
		}
	}
}

// Close signals all workers to exit and waits for them.
// The device may be used again afterwards; workers restart on demand.
func (d *Device) Close() {
	if !d.running {
		return
	}
	close(d.stopChan)
	d.wg.Wait()
	close(d.workChan)
	close(d.doneChan)
	d.running = false
}
