package main

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

var (
	// ErrUnsupportedEncoding 暫存器編碼無法辨識
	ErrUnsupportedEncoding = errors.New("不支援的暫存器編碼")
	// ErrWidthMismatch 讀回的字數與定義不符
	ErrWidthMismatch = errors.New("暫存器長度與定義不符")
	// ErrValueTooWide 數值超過 64 位元
	ErrValueTooWide = errors.New("數值寬度超過 64 位元")
	// ErrDiscoveryFailure 掃描全部位址皆無回應
	ErrDiscoveryFailure = errors.New("找不到回應的從站位址")
	// ErrRegisterNotFound 目錄中沒有此暫存器
	ErrRegisterNotFound = errors.New("暫存器不存在")
)

// TransportError 傳輸層讀取失敗 (逾時、CRC、驅動錯誤)
type TransportError struct {
	SlaveID  uint8
	Address  uint16
	Quantity uint16
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("從站 %d 讀取 0x%04x (%d 字) 失敗: %v", e.SlaveID, e.Address, e.Quantity, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExceptionCode 取得 Modbus 異常碼 (非異常回應時為 0)
func (e *TransportError) ExceptionCode() byte {
	var mbErr *modbus.ModbusError
	if errors.As(e.Err, &mbErr) {
		return mbErr.ExceptionCode
	}
	return 0
}

// DecodeError 單一欄位解碼失敗
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("解碼 %s 失敗: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigurationError 無效的命令列或配置輸入
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置 %s 無效: %s", e.Field, e.Reason)
}
