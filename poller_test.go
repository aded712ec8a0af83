package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBattery 以位址對應暫存器內容，可指定失敗的位址
type fakeBattery struct {
	mu        sync.Mutex
	registers map[uint16]uint16
	failing   map[uint16]error
	reads     []uint16
	slaves    []uint8
}

func newFakeBattery() *fakeBattery {
	return &fakeBattery{
		registers: make(map[uint16]uint16),
		failing:   make(map[uint16]error),
	}
}

func (f *fakeBattery) ReadRegisters(slaveID uint8, address, quantity uint16) ([]uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads = append(f.reads, address)
	f.slaves = append(f.slaves, slaveID)
	if err, ok := f.failing[address]; ok {
		return nil, err
	}
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = f.registers[address+uint16(i)]
	}
	return words, nil
}

func TestPoller_FullCycle(t *testing.T) {
	battery := newFakeBattery()
	battery.registers[0x13b3] = 133    // 13.3 V
	battery.registers[0x13b2] = 0xFF6A // -1.50 A
	battery.registers[0x1388] = 4

	catalog := RenogyCatalog()
	poller := NewPoller(battery, catalog, 0xF7)
	snap := poller.Poll(context.Background())

	require.Equal(t, catalog.Len(), snap.Len())
	assert.True(t, snap.Complete())
	assert.Equal(t, uint8(0xF7), snap.SlaveID)
	assert.Equal(t, catalog.Names()[0], snap.Fields[0].Descriptor.Name)

	voltage, ok := snap.Get("voltage")
	require.True(t, ok)
	assert.InDelta(t, 13.3, voltage.Value.Float, 1e-9)

	current, ok := snap.Get("current")
	require.True(t, ok)
	assert.InDelta(t, -1.5, current.Value.Float, 1e-9)

	count, ok := snap.Get("cellvoltage_count")
	require.True(t, ok)
	assert.Equal(t, uint64(4), count.Value.Unsigned)

	// 每個欄位一筆交易，依目錄順序，從站位址固定
	require.Len(t, battery.reads, catalog.Len())
	for i, d := range catalog.Descriptors() {
		assert.Equal(t, d.Address, battery.reads[i])
		assert.Equal(t, uint8(0xF7), battery.slaves[i])
	}
}

func TestPoller_FieldFailureIsIsolated(t *testing.T) {
	battery := newFakeBattery()
	battery.registers[0x13b3] = 133
	battery.failing[0x13b2] = errors.New("crc error")

	catalog := RenogyCatalog()
	poller := NewPoller(battery, catalog, 0xF7)
	snap := poller.Poll(context.Background())

	require.Equal(t, catalog.Len(), snap.Len())
	failed := snap.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "current", failed[0].Descriptor.Name)

	var te *TransportError
	require.True(t, errors.As(failed[0].Err, &te))
	assert.Equal(t, uint16(0x13b2), te.Address)
	assert.Equal(t, uint8(0xF7), te.SlaveID)

	// 失敗後仍繼續讀取下一個欄位
	voltage, ok := snap.Get("voltage")
	require.True(t, ok)
	assert.True(t, voltage.OK())
	assert.False(t, snap.Complete())
	assert.False(t, snap.AllFailed())

	stats := poller.Stats()
	assert.Equal(t, uint64(1), stats.Cycles.Load())
	assert.Equal(t, uint64(catalog.Len()), stats.Reads.Load())
	assert.Equal(t, uint64(1), stats.FieldErrors.Load())
	assert.Zero(t, stats.LastCompleteAt.Load())
	assert.NotZero(t, stats.LastSnapshotAt.Load())
}

func TestPoller_DuplicateAddressReadTwice(t *testing.T) {
	battery := newFakeBattery()
	battery.registers[0x1394] = 33

	snap := NewPoller(battery, RenogyCatalog(), 1).Poll(context.Background())

	cv12, _ := snap.Get("cellvoltage_12")
	cv13, _ := snap.Get("cellvoltage_13")
	assert.InDelta(t, 3.3, cv12.Value.Float, 1e-9)
	assert.InDelta(t, 3.3, cv13.Value.Float, 1e-9)

	n := 0
	for _, addr := range battery.reads {
		if addr == 0x1394 {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestPoller_WidthMismatchIsDecodeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockRegisterReader(ctrl)

	catalog, err := NewCatalog(
		u32("remaining_capacity", 0x13b4, Linear(0.001, 0), "Ah"),
		u16("voltage", 0x13b3, Linear(0.1, 0), "V"),
	)
	require.NoError(t, err)

	gomock.InOrder(
		reader.EXPECT().ReadRegisters(uint8(5), uint16(0x13b4), uint16(2)).Return([]uint16{0x0001}, nil),
		reader.EXPECT().ReadRegisters(uint8(5), uint16(0x13b3), uint16(1)).Return([]uint16{120}, nil),
	)

	snap := NewPoller(reader, catalog, 5).Poll(context.Background())

	capacity, _ := snap.Get("remaining_capacity")
	assert.ErrorIs(t, capacity.Err, ErrWidthMismatch)

	voltage, _ := snap.Get("voltage")
	require.True(t, voltage.OK())
	assert.InDelta(t, 12.0, voltage.Value.Float, 1e-9)
}

func TestPoller_AllFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockRegisterReader(ctrl)
	reader.EXPECT().ReadRegisters(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errNoResponse).
		Times(RenogyCatalog().Len())

	poller := NewPoller(reader, RenogyCatalog(), 0xF7)
	snap := poller.Poll(context.Background())

	assert.True(t, snap.AllFailed())
	assert.Len(t, snap.Failed(), RenogyCatalog().Len())
	assert.Equal(t, uint64(RenogyCatalog().Len()), poller.Stats().FieldErrors.Load())
}

func TestPoller_ContextCancelledMidCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := gomock.NewController(t)
	reader := NewMockRegisterReader(ctrl)

	reads := 0
	reader.EXPECT().ReadRegisters(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(slaveID uint8, address, quantity uint16) ([]uint16, error) {
			reads++
			if reads == 10 {
				cancel()
			}
			return make([]uint16, quantity), nil
		}).
		Times(10)

	snap := NewPoller(reader, RenogyCatalog(), 0xF7).Poll(ctx)

	// 快照仍包含所有欄位，剩餘欄位標記為取消
	require.Equal(t, RenogyCatalog().Len(), snap.Len())
	assert.True(t, snap.Fields[9].OK())
	assert.ErrorIs(t, snap.Fields[10].Err, context.Canceled)
	assert.Len(t, snap.Failed(), RenogyCatalog().Len()-10)
}
