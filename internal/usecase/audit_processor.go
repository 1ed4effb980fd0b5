package usecase

import (
	"context"
	"sync"
	"time"

	"LinkSight/internal/domain/models"
	drepo "LinkSight/internal/domain/repository"
	applogger "LinkSight/pkg/logger"
)

// AuditProcessor batches prediction events and fans them out to the
// configured sinks. Submit never blocks the serving path: when the buffer is
// full the event is dropped and counted.
type AuditProcessor struct {
	l       *applogger.Logger
	metrics drepo.Metrics
	sinks   []drepo.AuditSink

	events  chan *models.PredictionEvent
	batchSz int
	batchTO time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewAuditProcessor creates a new AuditProcessor instance.
func NewAuditProcessor(
	l *applogger.Logger,
	metrics drepo.Metrics,
	bufferSize int,
	batchSz int,
	batchTO time.Duration,
	sinks ...drepo.AuditSink,
) *AuditProcessor {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if batchSz <= 0 {
		batchSz = 100
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	return &AuditProcessor{
		l:       l,
		metrics: metrics,
		sinks:   sinks,
		events:  make(chan *models.PredictionEvent, bufferSize),
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Start launches the batching loop. No-op when no sinks are configured.
func (p *AuditProcessor) Start() {
	if len(p.sinks) == 0 {
		return
	}
	p.wg.Add(1)
	go p.loop()
}

// Submit queues one event. Drops and counts when the buffer is full or the
// processor has no sinks.
func (p *AuditProcessor) Submit(e *models.PredictionEvent) {
	if len(p.sinks) == 0 || e == nil {
		return
	}
	select {
	case p.events <- e:
	default:
		p.metrics.RecordError("audit_drop")
		if p.l != nil {
			p.l.Warn("audit buffer full, event dropped", applogger.String("model", e.ModelTag))
		}
	}
}

func (p *AuditProcessor) loop() {
	defer p.wg.Done()

	batch := make([]*models.PredictionEvent, 0, p.batchSz)
	timer := time.NewTimer(p.batchTO)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-p.events:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
			if len(batch) >= p.batchSz {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(p.batchTO)
			}
		case <-timer.C:
			flush()
			timer.Reset(p.batchTO)
		}
	}
}

func (p *AuditProcessor) flush(batch []*models.PredictionEvent) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, sink := range p.sinks {
		if err := sink.WriteBatch(ctx, batch); err != nil {
			p.metrics.RecordError("audit_write")
			if p.l != nil {
				p.l.Error("audit batch write failed",
					applogger.Int("events", len(batch)),
					applogger.Error(err),
				)
			}
		}
	}
	p.metrics.RecordLatency("audit_flush", time.Since(start).Seconds())
}

// Close stops the loop, drains buffered events, and closes the sinks.
func (p *AuditProcessor) Close() {
	p.stopOnce.Do(func() {
		close(p.events)
		p.wg.Wait()
		for _, sink := range p.sinks {
			if err := sink.Close(); err != nil && p.l != nil {
				p.l.Warn("audit sink close error", applogger.Error(err))
			}
		}
	})
}
