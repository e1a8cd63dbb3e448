package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contractgen/backend/internal/domain/events"
	"github.com/contractgen/backend/internal/domain/models"
	"github.com/contractgen/backend/internal/domain/ports"
	"github.com/contractgen/backend/pkg/constants"
)

// PreviewSnapshot is an immutable copy of the session state queued for rendering
type PreviewSnapshot struct {
	ContractType models.ContractType
	Data         models.ContractData
	Clauses      []models.Clause
}

// Clone returns a deep copy
func (s PreviewSnapshot) Clone() PreviewSnapshot {
	return PreviewSnapshot{
		ContractType: s.ContractType.Clone(),
		Data:         s.Data.Clone(),
		Clauses:      models.CloneClauses(s.Clauses),
	}
}

type renderFunc func(models.ContractType, models.ContractData, []models.Clause) (string, error)

// PreviewService coalesces preview requests and renders only the newest one
// on each tick. A tick that finds a render in progress is skipped; a forced
// refresh waits for it. Every dequeued or forced snapshot takes a generation
// and a result older than the stored one is dropped.
type PreviewService struct {
	assembler  *Assembler
	renderHTML renderFunc
	publisher  ports.EventPublisher
	logger     *zap.Logger
	interval   time.Duration

	mu        sync.Mutex
	queue     []PreviewSnapshot
	latest    *events.PreviewResult
	latestGen uint64
	gen       uint64
	lastErr   error
	seq       uint64

	// Held for the duration of a render
	renderMu sync.Mutex

	// Worker control
	startOnce sync.Once
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewPreviewService creates a preview service ticking every interval
func NewPreviewService(assembler *Assembler, publisher ports.EventPublisher, logger *zap.Logger, interval time.Duration) *PreviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = constants.DefaultPreviewTick
	}
	return &PreviewService{
		assembler:  assembler,
		renderHTML: assembler.Preview,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Enqueue queues a copy of snapshot. Past the queue limit only the newest
// entries are kept.
func (p *PreviewService) Enqueue(snapshot PreviewSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, snapshot.Clone())
	if len(p.queue) > constants.PreviewQueueLimit {
		dropped := len(p.queue) - constants.PreviewQueueKeep
		p.queue = append([]PreviewSnapshot(nil), p.queue[dropped:]...)
		p.logger.Debug("preview queue trimmed", zap.Int("dropped", dropped))
	}
}

// Pending returns the number of queued snapshots
func (p *PreviewService) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Tick renders the newest queued snapshot and discards the rest.
// It reports whether a render happened.
func (p *PreviewService) Tick(ctx context.Context) bool {
	if !p.renderMu.TryLock() {
		return false
	}
	defer p.renderMu.Unlock()

	p.mu.Lock()
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return false
	}
	snapshot := p.queue[len(p.queue)-1]
	discarded := len(p.queue) - 1
	p.queue = nil
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	_, err := p.render(ctx, snapshot, discarded, gen)
	return err == nil
}

// ForceRefresh drops every queued snapshot and renders snapshot, waiting for
// an in-flight render to finish first. If a newer snapshot was rendered in
// the meantime, that result is returned instead.
func (p *PreviewService) ForceRefresh(ctx context.Context, snapshot PreviewSnapshot) (events.PreviewResult, error) {
	snapshot = snapshot.Clone()

	p.mu.Lock()
	discarded := len(p.queue)
	p.queue = nil
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.renderMu.Lock()
	defer p.renderMu.Unlock()
	return p.render(ctx, snapshot, discarded, gen)
}

// render must be called with renderMu held
func (p *PreviewService) render(ctx context.Context, snapshot PreviewSnapshot, discarded int, gen uint64) (events.PreviewResult, error) {
	html, err := p.renderHTML(snapshot.ContractType, snapshot.Data, snapshot.Clauses)

	p.mu.Lock()
	if p.latest != nil && gen < p.latestGen {
		result, latestGen := *p.latest, p.latestGen
		p.mu.Unlock()
		p.logger.Debug("stale preview dropped", zap.Uint64("generation", gen), zap.Uint64("latest", latestGen))
		return result, nil
	}
	if err != nil {
		p.lastErr = err
		p.mu.Unlock()
		p.logger.Warn("preview render failed", zap.Error(err))
		return events.PreviewResult{}, err
	}
	p.seq++
	result := events.PreviewResult{
		HTML:       html,
		Sequence:   p.seq,
		Discarded:  discarded,
		RenderedAt: time.Now().UnixMilli(),
	}
	p.latest = &result
	p.latestGen = gen
	p.lastErr = nil
	p.mu.Unlock()

	if p.publisher != nil {
		_ = p.publisher.Publish(ctx, events.PreviewRendered, result)
	}
	return result, nil
}

// Latest returns the most recent rendered preview
func (p *PreviewService) Latest() (events.PreviewResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return events.PreviewResult{}, false
	}
	return *p.latest, true
}

// LastError returns the error of the last failed render, nil after a success
func (p *PreviewService) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Start launches the tick worker. It stops on Stop or when ctx is done.
func (p *PreviewService) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()

			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()

			p.logger.Info("🖼️ Preview worker started", zap.Duration("interval", p.interval))
			for {
				select {
				case <-p.stopCh:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.Tick(ctx)
				}
			}
		}()
	})
}

// Stop stops the tick worker and waits for it to exit
func (p *PreviewService) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.wg.Wait()
	p.logger.Info("🖼️ Preview worker stopped")
}
