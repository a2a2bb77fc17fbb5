package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-library-api/internal/ledger"
)

func csvTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/borrows?format=csv", nil)
	return c, rec
}

func TestWriteDailyCSV(t *testing.T) {
	c, rec := csvTestContext(t)
	m := NewStatsModule(nil, nil, 0, 30, nil)

	m.writeDailyCSV(c, "borrows.csv", []ledger.DailyCount{
		{Day: "2025-06-01", Count: 3},
		{Day: "2025-06-02", Count: 1},
	})

	require.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "borrows.csv")
	require.Equal(t, "day,count\n2025-06-01,3\n2025-06-02,1\n", rec.Body.String())
}

type brokenWriter struct {
	gin.ResponseWriter
}

func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("client went away") }

func (w *brokenWriter) WriteString(string) (int, error) { return 0, errors.New("client went away") }

func TestWriteDailyCSV_LogsFailedWrite(t *testing.T) {
	c, _ := csvTestContext(t)
	c.Writer = &brokenWriter{ResponseWriter: c.Writer}

	core, logs := observer.New(zap.WarnLevel)
	m := NewStatsModule(nil, nil, 0, 30, zap.New(core))

	m.writeDailyCSV(c, "borrows.csv", []ledger.DailyCount{{Day: "2025-06-01", Count: 3}})

	require.Equal(t, 1, logs.FilterMessage("csv export truncated").Len())
}
