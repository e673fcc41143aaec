// Package challengeapi talks to the V5 challenge/submission API:
// challenge lookup by legacy id, and paginated submission listing for
// attendance reconciliation.
package challengeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/httpclient"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/tokencache"
)

// MarathonSubTrack is the legacy subTrack value identifying marathon
// matches among V5 challenges.
const MarathonSubTrack = "marathon_match"

// submissionsPerPage is the page size used when paginating submissions.
const submissionsPerPage = 500

// Challenge is the subset of the V5 challenge resource the core consumes.
type Challenge struct {
	ID       string `json:"id"`
	LegacyID int64  `json:"legacyId"`
	Legacy   struct {
		SubTrack string `json:"subTrack"`
	} `json:"legacy"`
}

// IsMarathonMatch reports whether the challenge's subTrack identifies
// a marathon match, case-insensitively.
func (c Challenge) IsMarathonMatch() bool {
	return strings.EqualFold(c.Legacy.SubTrack, MarathonSubTrack)
}

// Submission is the subset of the V5 submission resource the
// reconciler needs.
type Submission struct {
	ID               string          `json:"id"`
	MemberID         int64           `json:"memberId"`
	Created          time.Time       `json:"created"`
	ReviewSummation  json.RawMessage `json:"reviewSummation,omitempty"`
}

// hasReviewSummation reports whether the submission carries a graded
// review summation.
func (s Submission) hasReviewSummation() bool {
	return len(s.ReviewSummation) > 0 && string(s.ReviewSummation) != "null"
}

// Client is the V5 challenge/submission API client.
type Client struct {
	baseURL      string
	http         *httpclient.Client
	tokens       *TokenSource
	challengeTTL time.Duration
	challenges   *tokencache.Cache[*Challenge]
	logger       ectologger.Logger
}

// New creates a Client. challengeTTL bounds how long a challenge
// lookup is trusted before GetChallengeByLegacyID re-fetches it,
// using a second instance of the same process-local cache that backs
// the M2M token.
func New(baseURL string, http *httpclient.Client, tokens *TokenSource, challengeTTL time.Duration, logger ectologger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         http,
		tokens:       tokens,
		challengeTTL: challengeTTL,
		challenges:   tokencache.New[*Challenge](),
		logger:       logger,
	}
}

func (c *Client) authHeaders(ctx context.Context) (map[string]string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

// GetChallengeByLegacyID fetches the challenge whose legacyId matches
// legacyID, serving a cached result when one is fresh. Returns nil
// if the API returns an empty array; a nil result is cached too, so a
// burst of notifications for an unresolvable legacy id doesn't burst
// V5 with it.
func (c *Client) GetChallengeByLegacyID(ctx context.Context, legacyID int64) (*Challenge, error) {
	cacheKey := strconv.FormatInt(legacyID, 10)
	if cached, ok := c.challenges.Get(cacheKey); ok {
		return cached, nil
	}

	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate challenge lookup: %w", err)
	}

	url := fmt.Sprintf("%s/challenges?legacyId=%d", c.baseURL, legacyID)
	resp, err := c.http.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch challenge for legacyId %d: %w", legacyID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("challenge lookup returned status %d", resp.StatusCode)
	}

	var challenges []Challenge
	if err := json.Unmarshal(resp.Body, &challenges); err != nil {
		return nil, fmt.Errorf("failed to decode challenge response: %w", err)
	}

	var challenge *Challenge
	if len(challenges) > 0 {
		challenge = &challenges[0]
	}
	c.challenges.Set(cacheKey, challenge, c.challengeTTL)
	return challenge, nil
}

// ListSubmissions fetches all submissions for challengeID, paginating
// until the x-page response header equals x-total-pages.
func (c *Client) ListSubmissions(ctx context.Context, challengeID string) ([]Submission, error) {
	headers, err := c.authHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate submission listing: %w", err)
	}

	var all []Submission
	page := 1
	for {
		url := fmt.Sprintf("%s/submissions?challengeId=%s&perPage=%d&page=%d", c.baseURL, challengeID, submissionsPerPage, page)
		resp, err := c.http.Get(ctx, url, headers)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch submissions page %d: %w", page, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("submission listing returned status %d on page %d", resp.StatusCode, page)
		}

		var pageSubmissions []Submission
		if err := json.Unmarshal(resp.Body, &pageSubmissions); err != nil {
			return nil, fmt.Errorf("failed to decode submissions page %d: %w", page, err)
		}
		all = append(all, pageSubmissions...)

		totalPages, err := strconv.Atoi(resp.Headers.Get("x-total-pages"))
		if err != nil || page >= totalPages {
			break
		}
		page++
	}

	return all, nil
}

// LatestGradedByMember reduces submissions to one per member, keeping
// the latest by Created, filtered to those carrying a reviewSummation.
func LatestGradedByMember(submissions []Submission) map[int64]Submission {
	latest := make(map[int64]Submission)
	for _, s := range submissions {
		if !s.hasReviewSummation() {
			continue
		}
		if existing, ok := latest[s.MemberID]; !ok || s.Created.After(existing.Created) {
			latest[s.MemberID] = s
		}
	}
	return latest
}
