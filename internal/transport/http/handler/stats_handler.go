package handler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-library-api/internal/core/cache"
	"go-library-api/internal/ledger"
	resp "go-library-api/internal/transport/http/response"
)

// StatsModule serves the reporting endpoints. Reports are read-only and
// explicitly allowed to lag writes, so they sit behind the redis
// read-through cache (nil cache disables it).
type StatsModule struct {
	ldg        *ledger.Ledger
	cache      *cache.Cache
	ttl        time.Duration
	windowDays int
	log        *zap.Logger
}

func NewStatsModule(ldg *ledger.Ledger, c *cache.Cache, ttl time.Duration, windowDays int, log *zap.Logger) *StatsModule {
	if windowDays <= 0 {
		windowDays = 30
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsModule{ldg: ldg, cache: c, ttl: ttl, windowDays: windowDays, log: log}
}

func (m *StatsModule) MountAPI(pub, priv *gin.RouterGroup) {
	priv.GET("/stats/borrows", m.borrowStats)
	priv.GET("/stats/overdue", m.overdueStats)
}

func (m *StatsModule) borrowStats(c *gin.Context) {
	since, ok := m.sinceParam(c)
	if !ok {
		return
	}
	key := "stats:borrows:" + since.UTC().Format(time.RFC3339)
	report, err := cache.GetOrLoadJSON[ledger.BorrowReport](m.cache, c.Request.Context(), key, m.ttl,
		func(ctx context.Context) (*ledger.BorrowReport, error) {
			return m.ldg.BorrowStats(ctx, since)
		})
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
		return
	}
	if c.Query("format") == "csv" {
		m.writeDailyCSV(c, "borrows.csv", report.Borrows)
		return
	}
	c.JSON(http.StatusOK, resp.OK(report))
}

func (m *StatsModule) overdueStats(c *gin.Context) {
	since, ok := m.sinceParam(c)
	if !ok {
		return
	}
	key := "stats:overdue:" + since.UTC().Format(time.RFC3339)
	report, err := cache.GetOrLoadJSON[ledger.OverdueReport](m.cache, c.Request.Context(), key, m.ttl,
		func(ctx context.Context) (*ledger.OverdueReport, error) {
			return m.ldg.OverdueStats(ctx, since)
		})
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
		return
	}
	if c.Query("format") == "csv" {
		m.writeDailyCSV(c, "overdue.csv", report.Overdue)
		return
	}
	c.JSON(http.StatusOK, resp.OK(report))
}

// sinceParam reads ?from as RFC3339 or plain date; absent means the default
// reporting window back from now.
func (m *StatsModule) sinceParam(c *gin.Context) (time.Time, bool) {
	raw := c.Query("from")
	if raw == "" {
		return m.ldg.Now().AddDate(0, 0, -m.windowDays), true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	c.JSON(http.StatusOK, resp.Error(resp.CodeBadRequest, "invalid 'from' date"))
	return time.Time{}, false
}

// writeDailyCSV streams the daily series. csv.Writer errors are sticky, so
// one check after Flush catches any failed write; headers are already out
// by then, so a truncated body is logged rather than re-rendered.
func (m *StatsModule) writeDailyCSV(c *gin.Context, filename string, rows []ledger.DailyCount) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"day", "count"})
	for _, r := range rows {
		_ = w.Write([]string{r.Day, strconv.Itoa(r.Count)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		m.log.Warn("csv export truncated",
			zap.String("file", filename), zap.Error(err))
	}
}
