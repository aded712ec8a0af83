package main

//go:generate mockgen -source=transport.go -destination=transport_mock_test.go -package=main

import (
	"fmt"
	"log"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// RegisterReader 讀取連續保持暫存器
type RegisterReader interface {
	ReadRegisters(slaveID uint8, address, quantity uint16) ([]uint16, error)
}

// Transport 單一序列匯流排的傳輸層，同一時間只允許一筆交易
type Transport interface {
	RegisterReader
	// SetTimeout 設定單次交易逾時
	SetTimeout(d time.Duration)
	Timeout() time.Duration
	Close() error
}

// ModbusTransport 以 goburrow/modbus 實作 Transport (RTU 或 TCP 閘道)
type ModbusTransport struct {
	client modbus.Client
	name   string

	setSlave   func(id byte)
	getTimeout func() time.Duration
	setTimeout func(d time.Duration)
	closeFn    func() error

	logger *zap.Logger
}

// NewSerialTransport 開啟 RS-485 序列埠 (Modbus RTU)
func NewSerialTransport(cfg SerialConfig, logger *zap.Logger) (*ModbusTransport, error) {
	handler := modbus.NewRTUClientHandler(cfg.Device)
	handler.BaudRate = cfg.BaudRate
	handler.DataBits = cfg.DataBits
	handler.Parity = cfg.Parity
	handler.StopBits = cfg.StopBits
	handler.SlaveId = DefaultSlaveAddress
	handler.Timeout = cfg.Timeout
	attachFrameLogger(&handler.Logger, logger)

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("開啟序列埠 %s 失敗: %w", cfg.Device, err)
	}

	t := &ModbusTransport{
		client:     modbus.NewClient(handler),
		name:       cfg.Device,
		setSlave:   func(id byte) { handler.SlaveId = id },
		getTimeout: func() time.Duration { return handler.Timeout },
		// 序列埠逾時在開啟時套用，關閉後由下一次交易自動重新開啟
		setTimeout: func(d time.Duration) {
			handler.Timeout = d
			_ = handler.Close()
		},
		closeFn: handler.Close,
		logger:  logger,
	}

	logger.Info("序列埠已開啟",
		zap.String("device", cfg.Device),
		zap.Int("baud", cfg.BaudRate),
		zap.Duration("timeout", cfg.Timeout),
	)
	return t, nil
}

// NewTCPTransport 連線到 RS-485 轉 Modbus TCP 閘道
func NewTCPTransport(cfg TCPConfig, timeout time.Duration, logger *zap.Logger) (*ModbusTransport, error) {
	handler := modbus.NewTCPClientHandler(cfg.Address)
	handler.SlaveId = DefaultSlaveAddress
	handler.Timeout = timeout
	handler.IdleTimeout = cfg.IdleTimeout
	attachFrameLogger(&handler.Logger, logger)

	if err := handler.Connect(); err != nil {
		return nil, fmt.Errorf("連線 %s 失敗: %w", cfg.Address, err)
	}

	t := &ModbusTransport{
		client:     modbus.NewClient(handler),
		name:       cfg.Address,
		setSlave:   func(id byte) { handler.SlaveId = id },
		getTimeout: func() time.Duration { return handler.Timeout },
		setTimeout: func(d time.Duration) { handler.Timeout = d },
		closeFn:    handler.Close,
		logger:     logger,
	}

	logger.Info("Modbus TCP 已連線",
		zap.String("address", cfg.Address),
		zap.Duration("timeout", timeout),
	)
	return t, nil
}

// ReadRegisters 讀取保持暫存器 (FC 03)
func (t *ModbusTransport) ReadRegisters(slaveID uint8, address, quantity uint16) ([]uint16, error) {
	t.setSlave(slaveID)

	results, err := t.client.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, &TransportError{SlaveID: slaveID, Address: address, Quantity: quantity, Err: err}
	}
	if len(results) != int(quantity)*2 {
		return nil, &TransportError{
			SlaveID:  slaveID,
			Address:  address,
			Quantity: quantity,
			Err:      fmt.Errorf("回應長度 %d 位元組，預期 %d", len(results), int(quantity)*2),
		}
	}
	return BytesToRegisters(results), nil
}

// SetTimeout 設定單次交易逾時
func (t *ModbusTransport) SetTimeout(d time.Duration) {
	if t.getTimeout() == d {
		return
	}
	t.setTimeout(d)
	t.logger.Debug("更新交易逾時", zap.String("transport", t.name), zap.Duration("timeout", d))
}

// Timeout 目前的交易逾時
func (t *ModbusTransport) Timeout() time.Duration {
	return t.getTimeout()
}

// Close 關閉連線
func (t *ModbusTransport) Close() error {
	return t.closeFn()
}

// attachFrameLogger debug 等級時把 goburrow 的封包記錄導到 zap
func attachFrameLogger(dst **log.Logger, logger *zap.Logger) {
	if !logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	stdLog, err := zap.NewStdLogAt(logger.Named("modbus"), zap.DebugLevel)
	if err != nil {
		return
	}
	*dst = stdLog
}
