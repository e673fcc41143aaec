// Package reconciler cross-checks a round's attendance against the
// external submission catalogue, flipping a member's attendance to
// "Y" when they have a final graded submission.
package reconciler

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/challengeapi"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

// SubmissionLister is the subset of the challenge API client the
// reconciler depends on.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, challengeID string) ([]challengeapi.Submission, error)
}

// Reconciler flips attendance for members with a final graded submission.
type Reconciler struct {
	submissions     SubmissionLister
	longCompResults repositories.LongCompResultRepo
	logger          ectologger.Logger
}

// New creates a Reconciler.
func New(submissions SubmissionLister, longCompResults repositories.LongCompResultRepo, logger ectologger.Logger) *Reconciler {
	return &Reconciler{submissions: submissions, longCompResults: longCompResults, logger: logger}
}

// Reconcile fetches submissions for challengeID and flips attended
// N -> Y for roundID's members with a final graded submission.
//
// Best-effort: any error talking to the submission API is logged and
// swallowed. The round proceeds with whatever attendance already
// exists.
func (r *Reconciler) Reconcile(ctx context.Context, roundID int64, challengeID string) {
	submissions, err := r.submissions.ListSubmissions(ctx, challengeID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("Submission API unavailable for challenge %s, proceeding with existing attendance", challengeID)
		return
	}

	graded := challengeapi.LatestGradedByMember(submissions)
	for memberID := range graded {
		if err := r.longCompResults.MarkAttended(ctx, roundID, memberID); err != nil {
			r.logger.WithContext(ctx).WithError(err).Errorf("Failed to mark coder %d attended for round %d", memberID, roundID)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"round_id":     roundID,
		"challenge_id": challengeID,
		"graded_count": len(graded),
	}).Debugf("Reconciled attendance")
}
