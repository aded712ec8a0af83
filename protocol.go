package main

import "fmt"

// Modbus 協議常數
const (
	// Modbus 功能碼 (電池只支援讀取)
	FuncCodeReadHoldingRegisters = 0x03
	FuncCodeReadInputRegisters   = 0x04

	// Modbus 異常碼
	ExceptionCodeIllegalFunction         = 0x01
	ExceptionCodeIllegalDataAddress      = 0x02
	ExceptionCodeIllegalDataValue        = 0x03
	ExceptionCodeSlaveDeviceFailure      = 0x04
	ExceptionCodeSlaveDeviceBusy         = 0x06
	ExceptionCodeGatewayTargetNoResponse = 0x0B

	// 暫存器限制
	MaxRegistersPerRead = 125
)

// RS-485 從站位址範圍
const (
	MinSlaveAddress     = 1
	MaxSlaveAddress     = 247
	DefaultSlaveAddress = 0xF7 // Renogy 出廠預設
)

// Renogy 智慧電池序列埠參數
const (
	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultParity   = "N"
	DefaultStopBits = 1
)

// Encoding 暫存器編碼
type Encoding int

const (
	EncodingUnsigned Encoding = iota
	EncodingSigned
	EncodingASCII
)

func (e Encoding) String() string {
	switch e {
	case EncodingUnsigned:
		return "uint"
	case EncodingSigned:
		return "sint"
	case EncodingASCII:
		return "string"
	default:
		return "unknown"
	}
}

// Valid 是否為已知編碼
func (e Encoding) Valid() bool {
	switch e {
	case EncodingUnsigned, EncodingSigned, EncodingASCII:
		return true
	}
	return false
}

// ParseEncoding 解析編碼名稱
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "uint":
		return EncodingUnsigned, nil
	case "sint":
		return EncodingSigned, nil
	case "string":
		return EncodingASCII, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, s)
	}
}

// MarshalText 實作 encoding.TextMarshaler (匯出用)
func (e Encoding) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEncoding, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText 實作 encoding.TextUnmarshaler
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ValidSlaveAddress 檢查從站位址是否在 1..247
func ValidSlaveAddress(addr int) bool {
	return addr >= MinSlaveAddress && addr <= MaxSlaveAddress
}
