package crawler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/facegrep/internal/aleph"
	"github.com/kozaktomas/facegrep/internal/database"
	"github.com/kozaktomas/facegrep/internal/report"
)

// State describes the lifecycle of one crawl.
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateDraining
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	// progressInterval is how many enqueued entities between progress signals.
	progressInterval = 1000
	// flushBatchSize is how many new records accumulate before a database flush.
	flushBatchSize = 64
)

// workUnit is one queue element. A unit with stop set is the per-worker
// termination sentinel; exactly one is enqueued per worker during drain.
type workUnit struct {
	entityID string
	stop     bool
}

// Stats summarizes one crawl run.
type Stats struct {
	Enqueued  int64
	Processed int64
	Skipped   int64
	Matched   int64
}

type counters struct {
	enqueued  atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64
	matched   atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Enqueued:  c.enqueued.Load(),
		Processed: c.processed.Load(),
		Skipped:   c.skipped.Load(),
		Matched:   c.matched.Load(),
	}
}

// Options tune a crawler.
type Options struct {
	Workers   int
	QueueSize int
	Progress  bool
}

// Crawler drives a fixed worker pool over a collection's entity stream.
// A single driver goroutine enqueues, N workers run the pipeline, and one
// aggregator goroutine owns the report's record set so workers never touch
// shared report state directly.
type Crawler struct {
	source   Source
	pipeline *Pipeline
	reports  database.ReportStore

	workers   int
	queueSize int
	progress  bool

	state atomic.Int32
}

// New creates a crawler. Zero worker and queue values fall back to defaults.
func New(source Source, pipeline *Pipeline, reports database.ReportStore, opts Options) *Crawler {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Crawler{
		source:    source,
		pipeline:  pipeline,
		reports:   reports,
		workers:   workers,
		queueSize: queueSize,
		progress:  opts.Progress,
	}
}

// State returns the current crawl state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
}

// Crawl streams a collection's image entities through the worker pool,
// accumulating matches into rep. The report is persisted up front so records
// can reference it; the final record count is flushed when the pool drains.
// A mid-stream source failure still drains enqueued work, then fails.
func (c *Crawler) Crawl(ctx context.Context, collection *aleph.Collection, rep *report.Report) (Stats, error) {
	c.setState(StateStreaming)

	if err := c.reports.InsertReport(ctx, rep); err != nil {
		c.setState(StateFailed)
		return Stats{}, fmt.Errorf("could not persist report: %w", err)
	}

	stream, err := c.source.StreamEntities(ctx, collection, aleph.SchemaImage)
	if err != nil {
		c.setState(StateFailed)
		return Stats{}, err
	}
	defer stream.Close()

	stats := &counters{}
	queue := make(chan workUnit, c.queueSize)
	results := make(chan report.Record, c.queueSize)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, queue, results, stats)
		}()
	}

	aggDone := make(chan aggResult, 1)
	go func() {
		aggDone <- c.aggregate(ctx, rep, results, stats)
	}()

	var bar *progressbar.ProgressBar
	if c.progress {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("Crawling %s (%d workers)", collection.ForeignID, c.workers)),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("entities"),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}

	var streamErr error
drive:
	for {
		if err := ctx.Err(); err != nil {
			streamErr = err
			break
		}
		entity, ok := stream.Next()
		if !ok {
			streamErr = stream.Err()
			break
		}
		select {
		case queue <- workUnit{entityID: entity.ID}:
		case <-ctx.Done():
			streamErr = ctx.Err()
			break drive
		}
		if n := stats.enqueued.Add(1); bar != nil && n%progressInterval == 0 {
			bar.Add(progressInterval)
		}
	}

	// Drain: one sentinel per worker, then wait for all of them to exit.
	c.setState(StateDraining)
	for i := 0; i < c.workers; i++ {
		queue <- workUnit{stop: true}
	}
	wg.Wait()
	close(results)
	agg := <-aggDone
	aggErr := agg.err

	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	// Only records whose flush durably committed are counted; a failed batch
	// must not inflate the persisted record count.
	if err := c.reports.UpdateRecordCount(context.WithoutCancel(ctx), rep.ID, agg.committed); err != nil {
		if aggErr == nil {
			aggErr = err
		}
	}

	if streamErr != nil {
		c.setState(StateFailed)
		return stats.snapshot(), fmt.Errorf("crawl failed after draining: %w", streamErr)
	}
	if aggErr != nil {
		c.setState(StateFailed)
		return stats.snapshot(), fmt.Errorf("crawl failed: %w", aggErr)
	}

	c.setState(StateDone)
	return stats.snapshot(), nil
}

// worker consumes units until it sees its stop sentinel. Per-item failures
// are logged and skipped; they never abort sibling work. After cancellation
// the worker keeps dequeuing (without processing) so the drain sentinels are
// always consumed.
func (c *Crawler) worker(ctx context.Context, queue <-chan workUnit, results chan<- report.Record, stats *counters) {
	for unit := range queue {
		if unit.stop {
			return
		}
		if ctx.Err() != nil {
			stats.skipped.Add(1)
			continue
		}
		records, err := c.pipeline.ProcessEntity(ctx, unit.entityID)
		if err != nil {
			log.Printf("skipping entity %s: %v", unit.entityID, err)
			stats.skipped.Add(1)
			continue
		}
		stats.processed.Add(1)
		for _, rec := range records {
			results <- rec
		}
	}
}

// aggResult is what the aggregator hands back to the driver: how many
// records were durably committed, and the first flush failure if any.
type aggResult struct {
	committed int
	err       error
}

// aggregate is the single writer of the report's record set. New records are
// batched and upserted; the unique constraint in the store makes a repeated
// flush of the same record a no-op. Records from a failed flush are not
// counted as committed.
func (c *Crawler) aggregate(ctx context.Context, rep *report.Report, results <-chan report.Record, stats *counters) aggResult {
	pending := make([]report.Record, 0, flushBatchSize)
	var result aggResult

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := c.reports.UpsertRecords(context.WithoutCancel(ctx), pending); err != nil {
			if result.err == nil {
				result.err = err
			}
		} else {
			result.committed += len(pending)
		}
		pending = pending[:0]
	}

	for rec := range results {
		if !rep.Add(rec) {
			continue
		}
		stats.matched.Add(1)
		rec.ReportID = rep.ID
		rec.Score = report.RoundScore(rec.Score)
		pending = append(pending, rec)
		if len(pending) >= flushBatchSize {
			flush()
		}
	}
	flush()
	return result
}
