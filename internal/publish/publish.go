// Package publish pushes resolved service configuration to its consumers.
package publish

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hamed0406/endpointresolver/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, m domain.ServiceConfigMap) error
}

// Multi delivers one identical snapshot to every sink. A failing sink does
// not stop delivery to the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, cfg domain.ServiceConfigMap) error {
	snapshot := cfg.Clone()
	var errs error
	for i, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, snapshot); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errs
}
