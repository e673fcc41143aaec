// Package legacyhandoff stubs the two data-warehouse hand-off
// operations referenced by the rating-service lifecycle events. They
// exist only to preserve the RATINGS_CALCULATION -> LOAD_CODERS
// ordering contract; the actual warehouse sync is out of scope for
// this core.
package legacyhandoff

import (
	"context"

	"github.com/Gobusters/ectologger"
)

// Stub is a no-op LegacyHandoff that logs each invocation.
type Stub struct {
	logger ectologger.Logger
}

// New creates a Stub.
func New(logger ectologger.Logger) *Stub {
	return &Stub{logger: logger}
}

// LoadCoders stands in for the legacy coders warehouse sync.
func (s *Stub) LoadCoders(ctx context.Context, roundID int64) error {
	s.logger.WithContext(ctx).WithField("round_id", roundID).Debugf("loadCoders stub invoked")
	return nil
}

// LoadRatings stands in for the legacy ratings warehouse sync.
func (s *Stub) LoadRatings(ctx context.Context, roundID int64) error {
	s.logger.WithContext(ctx).WithField("round_id", roundID).Debugf("loadRatings stub invoked")
	return nil
}
