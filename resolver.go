package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeTimeout 掃描時每個位址的逾時
const DefaultProbeTimeout = 100 * time.Millisecond

// AddressResolver 依序探測 1..247 找出電池的從站位址
type AddressResolver struct {
	transport Transport
	probe     RegisterDescriptor
	timeout   time.Duration
	logger    *zap.Logger
}

// ResolverOption AddressResolver 配置選項
type ResolverOption func(*AddressResolver)

// WithProbeTimeout 設定每次探測的逾時
func WithProbeTimeout(d time.Duration) ResolverOption {
	return func(r *AddressResolver) {
		r.timeout = d
	}
}

// WithProbeRegister 設定探測用的暫存器
func WithProbeRegister(d RegisterDescriptor) ResolverOption {
	return func(r *AddressResolver) {
		r.probe = d
	}
}

// WithResolverLogger 設定日誌
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *AddressResolver) {
		r.logger = logger
	}
}

// NewAddressResolver 建立位址掃描器，預設讀取電池組電壓暫存器
func NewAddressResolver(t Transport, opts ...ResolverOption) *AddressResolver {
	r := &AddressResolver{
		transport: t,
		probe:     RenogyCatalog().MustLookup(ProbeRegisterName),
		timeout:   DefaultProbeTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	return r
}

// Resolve 回傳第一個成功回應的位址，找到後立即停止
func (r *AddressResolver) Resolve(ctx context.Context) (uint8, error) {
	prev := r.transport.Timeout()
	r.transport.SetTimeout(r.timeout)
	defer r.transport.SetTimeout(prev)

	start := time.Now()
	r.logger.Info("開始掃描從站位址",
		zap.Uint16("probe_register", r.probe.Address),
		zap.Duration("probe_timeout", r.timeout),
	)

	probed := 0
	for addr := MinSlaveAddress; addr <= MaxSlaveAddress; addr++ {
		// 只在兩次交易之間檢查取消
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		probed++
		if _, err := r.transport.ReadRegisters(uint8(addr), r.probe.Address, r.probe.WordLength); err != nil {
			r.logger.Debug("位址無回應", zap.Int("address", addr), zap.Error(err))
			continue
		}

		r.logger.Info("找到從站位址",
			zap.Int("address", addr),
			zap.Int("probed", probed),
			zap.Duration("elapsed", time.Since(start)),
		)
		return uint8(addr), nil
	}

	return 0, fmt.Errorf("%w (已探測 %d 個位址，耗時 %v)", ErrDiscoveryFailure, probed, time.Since(start).Round(time.Millisecond))
}
