package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/discovery"
)

// Persister mirrors a discovery service's cache, invalidation log and method
// settings into the database.
type Persister struct {
	db     *DB
	svc    *discovery.Service
	logger zerolog.Logger

	// lastSeq is the newest invalidation sequence number already written.
	lastSeq int64
}

// NewPersister creates a persister for svc.
func NewPersister(db *DB, svc *discovery.Service) *Persister {
	return &Persister{
		db:     db,
		svc:    svc,
		logger: log.With().Str("component", "persister").Logger(),
	}
}

// Restore loads stored devices into the service cache and applies the stored
// method settings to its queue.
func (p *Persister) Restore(ctx context.Context) error {
	devices, err := p.db.Devices().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}
	p.svc.Restore(devices)

	methods, err := p.db.Methods().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load method settings: %w", err)
	}
	if len(methods) > 0 {
		p.svc.SetQueueConfig(discovery.QueueConfigUpdate{Methods: methods})
	}

	p.logger.Info().Int("devices", len(devices)).Int("methods", len(methods)).Msg("Restored discovery state")
	return nil
}

// Flush writes the current service state.
func (p *Persister) Flush(ctx context.Context) error {
	if err := p.db.Devices().ReplaceAll(ctx, p.svc.CachedDevices(false)); err != nil {
		return err
	}

	fresh := p.unwritten(p.svc.InvalidationHistory(0))
	if err := p.db.Invalidations().Append(ctx, fresh); err != nil {
		return err
	}
	if n := len(fresh); n > 0 {
		p.lastSeq = fresh[n-1].Seq
	}

	return p.db.Methods().Save(ctx, p.svc.QueueConfig().Methods)
}

// unwritten returns the events newer than lastSeq. Events that left the
// in-memory log before they could be written are reported, not recovered.
func (p *Persister) unwritten(events []discovery.InvalidationEvent) []discovery.InvalidationEvent {
	var fresh []discovery.InvalidationEvent
	for _, e := range events {
		if e.Seq > p.lastSeq {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) > 0 {
		if lost := fresh[0].Seq - p.lastSeq - 1; lost > 0 {
			p.logger.Warn().Int64("lost", lost).Msg("Invalidation log overflowed between flushes")
		}
	}
	return fresh
}

// Run flushes after every completed discovery, eviction batch or cache clear
// until ctx is done. A final flush is attempted on shutdown.
func (p *Persister) Run(ctx context.Context) {
	events := p.svc.Subscribe()
	defer p.svc.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			p.flush(context.Background())
			return
		case evt := <-events:
			switch evt.Type {
			case discovery.EventDiscoveryCompleted, discovery.EventCacheCleared:
				p.flush(ctx)
			}
		}
	}
}

func (p *Persister) flush(ctx context.Context) {
	if err := p.Flush(ctx); err != nil {
		p.logger.Error().Err(err).Msg("Failed to persist discovery state")
	}
}
