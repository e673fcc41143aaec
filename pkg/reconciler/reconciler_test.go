package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/challengeapi"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

type fakeSubmissionLister struct {
	submissions []challengeapi.Submission
	err         error
}

func (f *fakeSubmissionLister) ListSubmissions(ctx context.Context, challengeID string) ([]challengeapi.Submission, error) {
	return f.submissions, f.err
}

type fakeLongCompResultRepo struct {
	marked []int64
	err    error
}

func (f *fakeLongCompResultRepo) ListUnratedAttendees(ctx context.Context, roundID int64) ([]models.LongCompResult, error) {
	return nil, nil
}

func (f *fakeLongCompResultRepo) MarkAttended(ctx context.Context, roundID, coderID int64) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, coderID)
	return nil
}

func (f *fakeLongCompResultRepo) ApplyRating(ctx context.Context, roundID, coderID int64, oldRating, oldVol *int, newRating, newVol int) error {
	return nil
}

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestReconcile_MarksLatestGradedMembers(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	lister := &fakeSubmissionLister{submissions: []challengeapi.Submission{
		{MemberID: 100, Created: early, ReviewSummation: []byte(`{"total":10}`)},
		{MemberID: 100, Created: late, ReviewSummation: []byte(`{"total":20}`)},
		{MemberID: 200, Created: early},
	}}
	lcr := &fakeLongCompResultRepo{}

	r := New(lister, lcr, newTestLogger())
	r.Reconcile(context.Background(), 9, "challenge-1")

	assert.ElementsMatch(t, []int64{100}, lcr.marked)
}

func TestReconcile_SwallowsSubmissionAPIError(t *testing.T) {
	lister := &fakeSubmissionLister{err: errors.New("unreachable")}
	lcr := &fakeLongCompResultRepo{}

	r := New(lister, lcr, newTestLogger())
	require.NotPanics(t, func() {
		r.Reconcile(context.Background(), 9, "challenge-1")
	})
	assert.Empty(t, lcr.marked)
}

func TestReconcile_NoGradedSubmissionsMarksNothing(t *testing.T) {
	lister := &fakeSubmissionLister{submissions: []challengeapi.Submission{
		{MemberID: 100, Created: time.Now()},
	}}
	lcr := &fakeLongCompResultRepo{}

	r := New(lister, lcr, newTestLogger())
	r.Reconcile(context.Background(), 9, "challenge-1")
	assert.Empty(t, lcr.marked)
}
