package health

import (
	"context"
	"encoding/json"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"stockhouse-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Report is the /health/json body and the dashboard payload.
type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int                    `json:"totalRequests"`
	SuccessCount    int                    `json:"successCount"`
	FailedCount     int                    `json:"failedCount"`
	SuccessRate     string                 `json:"successRate"`
	AvgResponseTime string                 `json:"avgResponseTime"`
	LastRequest     map[string]interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
	Detail string `json:"detail,omitempty"`
}

// Checker collects dependency status and the request counters kept by middleware.HealthMarker.
type Checker struct {
	Rdb           *redis.Client
	DB            DBPinger
	OracleCommand string
}

// Collect gathers health data. Overall status is ok when database and redis are connected
// and the oracle command resolves on PATH.
func (h *Checker) Collect(ctx context.Context) Report {
	report := Report{Dependencies: make(map[string]DepStatus)}

	dbStatus := DepStatus{Status: "disconnected"}
	if h.DB != nil {
		start := time.Now()
		if err := h.DB.Ping(); err == nil {
			ms := time.Since(start).Milliseconds()
			dbStatus = DepStatus{Status: "connected", PingMs: &ms}
		} else {
			dbStatus = DepStatus{Status: "error", Detail: err.Error()}
		}
	}
	report.Dependencies["database"] = dbStatus

	redisStatus := DepStatus{Status: "disconnected"}
	traffic := TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"}
	startTimeMs := time.Now().UnixMilli()
	if h.Rdb != nil {
		start := time.Now()
		if err := h.Rdb.Ping(ctx).Err(); err == nil {
			ms := time.Since(start).Milliseconds()
			redisStatus = DepStatus{Status: "connected", PingMs: &ms}
			startTimeMs = h.readTraffic(ctx, &traffic, startTimeMs)
		} else {
			redisStatus = DepStatus{Status: "error", Detail: err.Error()}
		}
	}
	report.Dependencies["redis"] = redisStatus

	oracleStatus := DepStatus{Status: "unconfigured"}
	if h.OracleCommand != "" {
		if path, err := exec.LookPath(h.OracleCommand); err == nil {
			oracleStatus = DepStatus{Status: "available", Detail: path}
		} else {
			oracleStatus = DepStatus{Status: "missing", Detail: err.Error()}
		}
	}
	report.Dependencies["oracle"] = oracleStatus

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	report.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	report.Traffic = traffic

	if dbStatus.Status == "connected" && redisStatus.Status == "connected" && oracleStatus.Status == "available" {
		report.Status = "ok"
	} else {
		report.Status = "issue"
	}
	return report
}

func (h *Checker) readTraffic(ctx context.Context, t *TrafficInfo, startTimeMs int64) int64 {
	vals, err := h.Rdb.MGet(ctx,
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
	).Result()
	if err != nil {
		return startTimeMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if v := str(4); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			startTimeMs = ts
		}
	} else {
		h.Rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	if count, _ := strconv.Atoi(str(3)); count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if v := str(5); v != "" {
		_ = json.Unmarshal([]byte(v), &t.LastRequest)
	}
	return startTimeMs
}

// Errors returns the most recent server error entries, newest first.
func (h *Checker) Errors(ctx context.Context) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0)
	if h.Rdb == nil {
		return out, nil
	}
	entries, err := h.Rdb.LRange(ctx, middleware.KeyErrorLog, 0, middleware.ErrorLogSize-1).Result()
	if err != nil {
		return nil, err
	}
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// Reset clears the counters and error log and restarts the uptime clock.
func (h *Checker) Reset(ctx context.Context) error {
	if err := h.Rdb.Del(ctx,
		middleware.KeyReqTotal,
		middleware.KeyReqErrors,
		middleware.KeyResTime,
		middleware.KeyResCount,
		middleware.KeyStartTime,
		middleware.KeyLastReq,
		middleware.KeyErrorLog,
	).Err(); err != nil {
		return err
	}
	return h.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err()
}
