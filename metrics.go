package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector 指標收集器，保存最近一輪 Snapshot
type MetricsCollector struct {
	mu sync.RWMutex

	startTime time.Time
	last      *Snapshot

	registry   *prometheus.Registry
	fieldUp    *prometheus.GaugeVec
	fieldValue *prometheus.GaugeVec

	poller   *Poller
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// MetricsSnapshot 指標快照 (JSON 格式)
type MetricsSnapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	Uptime       string    `json:"uptime"`
	SlaveAddress uint8     `json:"slave_address"`

	// 輪詢指標
	Cycles         uint64  `json:"cycles"`
	Reads          uint64  `json:"reads"`
	FieldErrors    uint64  `json:"field_errors"`
	ErrorRate      float64 `json:"error_rate"`
	LastDurationMs float64 `json:"last_duration_ms"`

	// 最近一輪的欄位值，失敗欄位為 null
	Fields map[string]any `json:"fields,omitempty"`
}

// NewMetricsCollector 建立指標收集器，計數器直接讀取 PollStats
func NewMetricsCollector(poller *Poller, logger *zap.Logger) *MetricsCollector {
	m := &MetricsCollector{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		poller:    poller,
		logger:    logger,
		fieldUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "renogybms_field_up",
			Help: "Whether the field was read in the last cycle",
		}, []string{"slave", "field"}),
		fieldValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "renogybms_field_value",
			Help: "Last decoded numeric value",
		}, []string{"slave", "field", "unit"}),
	}

	stats := poller.Stats()
	slave := prometheus.Labels{"slave": strconv.Itoa(int(poller.SlaveID()))}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "renogybms_uptime_seconds",
			Help: "Uptime in seconds",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "renogybms_poll_cycles_total",
			Help:        "Completed poll cycles",
			ConstLabels: slave,
		}, func() float64 { return float64(stats.Cycles.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "renogybms_register_reads_total",
			Help:        "Register read transactions",
			ConstLabels: slave,
		}, func() float64 { return float64(stats.Reads.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "renogybms_field_errors_total",
			Help:        "Fields that were unavailable",
			ConstLabels: slave,
		}, func() float64 { return float64(stats.FieldErrors.Load()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "renogybms_poll_duration_seconds",
			Help:        "Duration of the last poll cycle",
			ConstLabels: slave,
		}, func() float64 { return time.Duration(stats.LastDuration.Load()).Seconds() }),
		m.fieldUp,
		m.fieldValue,
	)

	return m
}

// Consume 實作 SnapshotSink
func (m *MetricsCollector) Consume(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	m.last = snap
	m.mu.Unlock()

	slave := strconv.Itoa(int(snap.SlaveID))
	for _, f := range snap.Fields {
		d := f.Descriptor
		v, numeric := f.Value.Float64()
		if !f.OK() {
			m.fieldUp.WithLabelValues(slave, d.Name).Set(0)
			// 失敗欄位不保留上一輪的數值
			m.fieldValue.DeleteLabelValues(slave, d.Name, d.Unit)
			continue
		}
		m.fieldUp.WithLabelValues(slave, d.Name).Set(1)
		if numeric {
			m.fieldValue.WithLabelValues(slave, d.Name, d.Unit).Set(v)
		}
	}
	return nil
}

// Handler 建立 HTTP 路由
func (m *MetricsCollector) Handler(endpoint string) http.Handler {
	prom := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	mux := http.NewServeMux()
	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "application/json" || r.URL.Query().Get("format") == "json" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(m.Snapshot())
			return
		}
		prom.ServeHTTP(w, r)
	})
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/ready", m.handleReady)
	return mux
}

// Start 啟動指標伺服器，埠號被占用時直接回傳錯誤
func (m *MetricsCollector) Start(endpoint string, port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("監聽 %s 失敗: %w", addr, err)
	}

	m.listener = ln
	m.server = &http.Server{
		Handler:           m.Handler(endpoint),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.logger.Info("啟動指標伺服器", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("指標伺服器錯誤", zap.Error(err))
		}
	}()

	return nil
}

// Addr 實際監聽的位址 (尚未啟動時為 nil)
func (m *MetricsCollector) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Stop 關閉指標伺服器
func (m *MetricsCollector) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Snapshot 取得指標快照
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	stats := m.poller.Stats()
	snapshot := MetricsSnapshot{
		Timestamp:      time.Now(),
		Uptime:         time.Since(m.startTime).Round(time.Second).String(),
		SlaveAddress:   m.poller.SlaveID(),
		Cycles:         stats.Cycles.Load(),
		Reads:          stats.Reads.Load(),
		FieldErrors:    stats.FieldErrors.Load(),
		LastDurationMs: float64(stats.LastDuration.Load()) / float64(time.Millisecond),
	}

	if snapshot.Reads > 0 {
		snapshot.ErrorRate = float64(snapshot.FieldErrors) / float64(snapshot.Reads) * 100
	}

	if last != nil {
		snapshot.Fields = make(map[string]any, last.Len())
		for _, f := range last.Fields {
			if f.OK() {
				snapshot.Fields[f.Descriptor.Name] = f.Value.Interface()
			} else {
				snapshot.Fields[f.Descriptor.Name] = nil
			}
		}
	}

	return snapshot
}

// handleHealth 處理 /health 請求
func (m *MetricsCollector) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// handleReady 處理 /ready 請求，至少有一輪 Snapshot 且非全部失敗才算就緒
func (m *MetricsCollector) handleReady(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if last == nil || last.AllFailed() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
