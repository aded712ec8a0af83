package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// FieldResult 單一欄位的讀取結果；Err 非 nil 時此欄位本輪不可用
type FieldResult struct {
	Descriptor RegisterDescriptor
	Value      DecodedValue
	Err        error
}

// OK 是否成功解碼
func (r FieldResult) OK() bool {
	return r.Err == nil
}

// Snapshot 一輪輪詢的完整結果，順序與目錄一致
type Snapshot struct {
	SlaveID  uint8
	Time     time.Time
	Duration time.Duration
	Fields   []FieldResult

	index map[string]int
}

// Get 依名稱取得欄位
func (s *Snapshot) Get(name string) (FieldResult, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldResult{}, false
	}
	return s.Fields[i], true
}

// Len 欄位數 (等於目錄大小)
func (s *Snapshot) Len() int {
	return len(s.Fields)
}

// Failed 本輪失敗的欄位
func (s *Snapshot) Failed() []FieldResult {
	var failed []FieldResult
	for _, f := range s.Fields {
		if !f.OK() {
			failed = append(failed, f)
		}
	}
	return failed
}

// Complete 所有欄位皆成功
func (s *Snapshot) Complete() bool {
	for _, f := range s.Fields {
		if !f.OK() {
			return false
		}
	}
	return true
}

// AllFailed 所有欄位皆失敗 (通常代表電池離線)
func (s *Snapshot) AllFailed() bool {
	for _, f := range s.Fields {
		if f.OK() {
			return false
		}
	}
	return true
}

// PollStats 輪詢統計資訊
type PollStats struct {
	Cycles         atomic.Uint64
	Reads          atomic.Uint64
	FieldErrors    atomic.Uint64
	LastDuration   atomic.Int64
	LastCompleteAt atomic.Int64
	LastSnapshotAt atomic.Int64
}

// Poller 每輪依目錄順序讀取所有暫存器
type Poller struct {
	reader  RegisterReader
	catalog *Catalog
	slaveID uint8

	stats  PollStats
	logger *zap.Logger
}

// PollerOption Poller 配置選項
type PollerOption func(*Poller)

// WithPollerLogger 設定日誌
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// NewPoller 建立輪詢器，從站位址建立後固定不變
func NewPoller(reader RegisterReader, catalog *Catalog, slaveID uint8, opts ...PollerOption) *Poller {
	p := &Poller{
		reader:  reader,
		catalog: catalog,
		slaveID: slaveID,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	return p
}

// SlaveID 目前的從站位址
func (p *Poller) SlaveID() uint8 {
	return p.slaveID
}

// Catalog 使用中的暫存器目錄
func (p *Poller) Catalog() *Catalog {
	return p.catalog
}

// Stats 取得統計資訊
func (p *Poller) Stats() *PollStats {
	return &p.stats
}

// Poll 讀取一輪。單一欄位失敗只記錄在該欄位，不中斷其餘欄位，也不重試。
func (p *Poller) Poll(ctx context.Context) *Snapshot {
	descs := p.catalog.Descriptors()
	snap := &Snapshot{
		SlaveID: p.slaveID,
		Time:    time.Now(),
		Fields:  make([]FieldResult, len(descs)),
		index:   make(map[string]int, len(descs)),
	}

	failed := 0
	for i, d := range descs {
		snap.index[d.Name] = i
		snap.Fields[i].Descriptor = d

		// 取消只在欄位之間生效，剩餘欄位標記為不可用
		if err := ctx.Err(); err != nil {
			snap.Fields[i].Err = err
			failed++
			continue
		}

		snap.Fields[i].Value, snap.Fields[i].Err = p.readField(d)
		if snap.Fields[i].Err != nil {
			failed++
			p.logger.Debug("讀取欄位失敗",
				zap.String("field", d.Name),
				zap.Uint16("address", d.Address),
				zap.Error(snap.Fields[i].Err),
			)
		}
	}

	snap.Duration = time.Since(snap.Time)

	p.stats.Cycles.Add(1)
	p.stats.FieldErrors.Add(uint64(failed))
	p.stats.LastDuration.Store(int64(snap.Duration))
	p.stats.LastSnapshotAt.Store(snap.Time.UnixNano())
	if failed == 0 {
		p.stats.LastCompleteAt.Store(snap.Time.UnixNano())
	}

	if failed > 0 {
		p.logger.Warn("部分欄位讀取失敗",
			zap.Uint8("slave", p.slaveID),
			zap.Int("failed", failed),
			zap.Int("total", len(descs)),
			zap.Duration("duration", snap.Duration),
		)
	}

	return snap
}

func (p *Poller) readField(d RegisterDescriptor) (DecodedValue, error) {
	p.stats.Reads.Add(1)

	words, err := p.reader.ReadRegisters(p.slaveID, d.Address, d.WordLength)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			err = &TransportError{SlaveID: p.slaveID, Address: d.Address, Quantity: d.WordLength, Err: err}
		}
		return DecodedValue{}, err
	}
	return Decode(words, d)
}
