package health

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(ctx context.Context) error {
	return f.err
}

func doRequest(t *testing.T, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestLivenessHandler_AlwaysHealthy(t *testing.T) {
	c := NewChecker(fakePinger{})
	rec := doRequest(t, c.LivenessHandler)
	assert.Equal(t, 200, rec.Code)
}

func TestReadinessHandler_NotReadyBeforeSetReady(t *testing.T) {
	c := NewChecker(fakePinger{})
	rec := doRequest(t, c.ReadinessHandler)
	assert.Equal(t, 503, rec.Code)
}

func TestReadinessHandler_HealthyOnceReadyAndDBReachable(t *testing.T) {
	c := NewChecker(fakePinger{})
	c.SetReady(true)
	rec := doRequest(t, c.ReadinessHandler)
	assert.Equal(t, 200, rec.Code)
}

func TestReadinessHandler_UnhealthyWhenDBUnreachable(t *testing.T) {
	c := NewChecker(fakePinger{err: errors.New("connection refused")})
	c.SetReady(true)
	rec := doRequest(t, c.ReadinessHandler)
	assert.Equal(t, 503, rec.Code)
}
