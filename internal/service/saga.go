package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/domain-marketplace/internal/metrics"
)

const compensationTimeout = 10 * time.Second

type compensation struct {
	name string
	undo func(ctx context.Context) error
}

// saga records the undo action of every completed step of a multi-step
// operation so that a later failure can roll them back in reverse order.
type saga struct {
	log   zerolog.Logger
	steps []compensation
}

func newSaga(log zerolog.Logger) *saga {
	return &saga{log: log}
}

// completed registers the undo action of a step that just succeeded.
func (s *saga) completed(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// compensate runs the registered undo actions, newest first.  It runs even
// when ctx is already cancelled: the request going away must not leave half
// the work behind.  Failures are logged and counted but do not stop the
// remaining compensations.
func (s *saga) compensate(ctx context.Context, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			metrics.SagaCompensations.WithLabelValues("failed").Inc()
			s.log.Error().Err(err).AnErr("cause", cause).Str("compensation", c.name).
				Msg("compensation failed; manual cleanup required")
			continue
		}
		metrics.SagaCompensations.WithLabelValues("ok").Inc()
		s.log.Warn().AnErr("cause", cause).Str("compensation", c.name).Msg("compensation applied")
	}
	s.steps = nil
}
