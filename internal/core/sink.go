package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/comalice/statesvc/internal/primitives"
)

type sinkItem struct {
	record   *TransitionRecord
	snapshot Snapshot
}

// sink hands snapshots and transition records to persisters and publishers on
// a single background goroutine, preserving commit order.
type sink struct {
	ch         chan sinkItem
	done       chan struct{}
	persisters []Persister
	publishers []Publisher
	logger     *zap.Logger
}

func newSink(buffer int, persisters []Persister, publishers []Publisher, logger *zap.Logger) *sink {
	k := &sink{
		ch:         make(chan sinkItem, buffer),
		done:       make(chan struct{}),
		persisters: persisters,
		publishers: publishers,
		logger:     logger,
	}
	go k.run()
	return k
}

func (k *sink) run() {
	defer close(k.done)
	ctx := context.Background()
	for item := range k.ch {
		if item.record != nil {
			for _, p := range k.publishers {
				if err := p.Publish(ctx, *item.record); err != nil {
					k.logger.Warn("publish transition failed", zap.Uint64("sequence", item.record.Sequence), zap.Error(err))
				}
			}
		}
		for _, p := range k.persisters {
			if err := p.Save(ctx, item.snapshot); err != nil {
				k.logger.Warn("save snapshot failed", zap.Uint64("sequence", item.snapshot.Sequence), zap.Error(err))
			}
		}
	}
}

// close waits until every queued item has been handled.
func (k *sink) close() {
	close(k.ch)
	<-k.done
}

func (s *Service) emitTransition(from primitives.State, cause *primitives.Event, changed, final bool, seq uint64) {
	if s.sink == nil {
		return
	}
	rec := &TransitionRecord{
		MachineID: s.id,
		Sequence:  seq,
		From:      from.ID,
		To:        s.current.ID,
		Changed:   changed,
		Final:     final,
		Timestamp: s.clock.Now(),
	}
	if cause != nil {
		rec.Event = cause.ID
	}
	s.sink.ch <- sinkItem{record: rec, snapshot: s.Snapshot()}
}

func (s *Service) emitSnapshot() {
	if s.sink == nil {
		return
	}
	s.sink.ch <- sinkItem{snapshot: s.Snapshot()}
}
