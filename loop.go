package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval 名目輪詢週期
const DefaultPollInterval = time.Second

// SnapshotSource 產生 Snapshot (Poller)
type SnapshotSource interface {
	Poll(ctx context.Context) *Snapshot
}

// SnapshotSink 接收每輪的 Snapshot (表格、指標、MQTT)
type SnapshotSink interface {
	Consume(ctx context.Context, snap *Snapshot) error
}

// RunLoop 持續輪詢直到 ctx 取消。
// 週期不是硬性期限：單輪超過 interval 時下一輪立即開始，不補跑也不跳過。
func RunLoop(ctx context.Context, src SnapshotSource, interval time.Duration, logger *zap.Logger, sinks ...SnapshotSink) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		snap := src.Poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for _, sink := range sinks {
			if err := sink.Consume(ctx, snap); err != nil {
				logger.Warn("輸出 Snapshot 失敗", zap.Error(err))
			}
		}

		wait := interval - time.Since(start)
		if wait < 0 {
			logger.Debug("輪詢超過週期", zap.Duration("elapsed", time.Since(start)), zap.Duration("interval", interval))
			wait = 0
		}
		timer.Reset(wait)
	}
}
