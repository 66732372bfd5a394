// Package profiler aggregates phase timings on a dedicated goroutine.
package profiler

import (
	"context"
	"sort"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// Stats summarizes the samples of one category.
type Stats struct {
	Category string
	Count    int
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
}

// Mean returns the average sample duration.
func (s Stats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type sample struct {
	category string
	elapsed  time.Duration
}

type snapshotReq struct {
	reply chan []Stats
}

// Profiler records durations sent from any goroutine.
type Profiler struct {
	samples   chan sample
	snapshots chan snapshotReq
	exit      chan chan<- struct{}
	done      chan struct{}
	stopOnce  sync.Once
	log       pslog.Logger
}

// New starts a profiler goroutine. Samples beyond the buffer depth are dropped.
func New(logger pslog.Logger, depth int) *Profiler {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if depth <= 0 {
		depth = 256
	}
	p := &Profiler{
		samples:   make(chan sample, depth),
		snapshots: make(chan snapshotReq),
		exit:      make(chan chan<- struct{}, 1),
		done:      make(chan struct{}),
		log:       logger,
	}
	go p.run()
	return p
}

// Record queues a sample without blocking.
func (p *Profiler) Record(category string, elapsed time.Duration) {
	if p == nil {
		return
	}
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.samples <- sample{category: category, elapsed: elapsed}:
	default:
		p.log.Trace("profiler sample dropped", "category", category)
	}
}

// Profile runs fn and records its duration.
func (p *Profiler) Profile(category string, fn func()) {
	start := time.Now()
	fn()
	p.Record(category, time.Since(start))
}

// Snapshot returns the per-category stats sorted by category. After Exit it
// returns nil.
func (p *Profiler) Snapshot() []Stats {
	if p == nil {
		return nil
	}
	req := snapshotReq{reply: make(chan []Stats, 1)}
	select {
	case p.snapshots <- req:
		return <-req.reply
	case <-p.done:
		return nil
	}
}

// Exit flushes queued samples, logs a summary and signals ack. Later calls
// signal ack immediately.
func (p *Profiler) Exit(ack chan<- struct{}) {
	if p == nil {
		close(ack)
		return
	}
	sent := false
	p.stopOnce.Do(func() {
		p.exit <- ack
		sent = true
	})
	if !sent {
		<-p.done
		close(ack)
	}
}

// Done is closed once the profiler goroutine has exited.
func (p *Profiler) Done() <-chan struct{} {
	return p.done
}

func (p *Profiler) run() {
	stats := make(map[string]*Stats)
	add := func(s sample) {
		st, ok := stats[s.category]
		if !ok {
			st = &Stats{Category: s.category, Min: s.elapsed, Max: s.elapsed}
			stats[s.category] = st
		}
		st.Count++
		st.Total += s.elapsed
		if s.elapsed < st.Min {
			st.Min = s.elapsed
		}
		if s.elapsed > st.Max {
			st.Max = s.elapsed
		}
	}
	drain := func() {
		for {
			select {
			case s := <-p.samples:
				add(s)
			default:
				return
			}
		}
	}
	for {
		select {
		case s := <-p.samples:
			add(s)
		case req := <-p.snapshots:
			// Samples queued before the request are included.
			drain()
			req.reply <- collect(stats)
		case ack := <-p.exit:
			drain()
			for _, st := range collect(stats) {
				p.log.Debug("profiler summary", "category", st.Category, "count", st.Count, "mean", st.Mean(), "max", st.Max)
			}
			close(p.done)
			close(ack)
			return
		}
	}
}

func collect(stats map[string]*Stats) []Stats {
	out := make([]Stats, 0, len(stats))
	for _, st := range stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
