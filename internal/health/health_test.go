package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) CheckResult { return CheckResult{Status: StatusHealthy} }

func TestOverallStatus(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("storage", true, ok)
	c.RegisterFunc("config", false, ErrorCheck(func() error { return errors.New("bad blur") }))

	assert.Equal(t, StatusUnknown, c.OverallStatus())

	results := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, results["storage"].Status)
	assert.Equal(t, StatusDegraded, results["config"].Status)
	assert.Equal(t, "bad blur", results["config"].Error)
	assert.Equal(t, StatusDegraded, c.OverallStatus())
	assert.Equal(t, []string{"config", "storage"}, c.Names())
}

func TestCriticalFailure(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("storage", true, DatabaseCheck(func(context.Context) error {
		return errors.New("database is locked")
	}))
	c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, c.OverallStatus())
}

func TestCheckPanicAndTimeout(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("panics", false, func(context.Context) CheckResult { panic("boom") })
	c.Register(&Component{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Check: func(ctx context.Context) CheckResult {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return CheckResult{Status: StatusHealthy}
		},
	})

	results := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, results["panics"].Status)
	assert.Equal(t, "boom", results["panics"].Error)
	assert.Equal(t, "check timed out", results["slow"].Message)
}

func TestHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("storage", true, ok)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Contains(t, resp.Components, "storage")

	c.RegisterFunc("storage", true, DatabaseCheck(func(context.Context) error { return errors.New("gone") }))
	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
