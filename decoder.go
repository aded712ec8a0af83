package main

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ValueKind 解碼後的值類型
type ValueKind int

const (
	KindUnsigned ValueKind = iota
	KindSigned
	KindFloat
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// DecodedValue 單一欄位的解碼結果，保留原始位元組供診斷
type DecodedValue struct {
	Kind     ValueKind
	Unsigned uint64
	Signed   int64
	Float    float64
	Text     string
	Raw      []byte
}

// IsNumeric 是否為數值
func (v DecodedValue) IsNumeric() bool {
	return v.Kind != KindText
}

// Float64 以浮點數取值，文字回傳 false
func (v DecodedValue) Float64() (float64, bool) {
	switch v.Kind {
	case KindUnsigned:
		return float64(v.Unsigned), true
	case KindSigned:
		return float64(v.Signed), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Interface 轉為 JSON 友善的值
func (v DecodedValue) Interface() any {
	switch v.Kind {
	case KindUnsigned:
		return v.Unsigned
	case KindSigned:
		return v.Signed
	case KindFloat:
		return v.Float
	default:
		return v.Text
	}
}

// String 浮點數取兩位小數
func (v DecodedValue) String() string {
	switch v.Kind {
	case KindUnsigned:
		return strconv.FormatUint(v.Unsigned, 10)
	case KindSigned:
		return strconv.FormatInt(v.Signed, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', 2, 64)
	default:
		return v.Text
	}
}

// Decode 將讀回的暫存器依定義轉成數值或字串
func Decode(words []uint16, d RegisterDescriptor) (DecodedValue, error) {
	if len(words) != int(d.WordLength) {
		return DecodedValue{}, &DecodeError{
			Field: d.Name,
			Err:   fmt.Errorf("%w: 預期 %d 字，收到 %d 字", ErrWidthMismatch, d.WordLength, len(words)),
		}
	}

	raw := RegistersToBytes(words)

	switch d.Encoding {
	case EncodingASCII:
		return DecodedValue{Kind: KindText, Text: asciiString(raw), Raw: raw}, nil

	case EncodingUnsigned:
		if len(raw) > 8 {
			return DecodedValue{}, &DecodeError{Field: d.Name, Err: ErrValueTooWide}
		}
		u := bigEndianUint(raw)
		if d.Scaling.IsIdentity() {
			return DecodedValue{Kind: KindUnsigned, Unsigned: u, Raw: raw}, nil
		}
		return DecodedValue{Kind: KindFloat, Float: d.Scaling.Apply(float64(u)), Raw: raw}, nil

	case EncodingSigned:
		if len(raw) > 8 {
			return DecodedValue{}, &DecodeError{Field: d.Name, Err: ErrValueTooWide}
		}
		i := signExtend(bigEndianUint(raw), len(raw)*8)
		if d.Scaling.IsIdentity() {
			return DecodedValue{Kind: KindSigned, Signed: i, Raw: raw}, nil
		}
		return DecodedValue{Kind: KindFloat, Float: d.Scaling.Apply(float64(i)), Raw: raw}, nil

	default:
		return DecodedValue{}, &DecodeError{
			Field: d.Name,
			Err:   fmt.Errorf("%w: %d", ErrUnsupportedEncoding, int(d.Encoding)),
		}
	}
}

func bigEndianUint(b []byte) uint64 {
	var u uint64
	for _, c := range b {
		u = u<<8 | uint64(c)
	}
	return u
}

func signExtend(u uint64, bits int) int64 {
	if bits >= 64 {
		return int64(u)
	}
	shift := uint(64 - bits)
	return int64(u<<shift) >> shift
}

// asciiString 每字高位元組在前，遇到第一個 NUL 截斷
func asciiString(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c == 0x00 {
			break
		}
		sb.WriteRune(rune(c))
	}
	return sb.String()
}

// RegistersToBytes 將暫存器值轉換為位元組陣列 (Big Endian)
func RegistersToBytes(registers []uint16) []byte {
	bytes := make([]byte, len(registers)*2)
	for i, reg := range registers {
		binary.BigEndian.PutUint16(bytes[i*2:], reg)
	}
	return bytes
}

// BytesToRegisters 將位元組陣列轉換為暫存器值 (Big Endian)
func BytesToRegisters(data []byte) []uint16 {
	registers := make([]uint16, len(data)/2)
	for i := range registers {
		registers[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return registers
}
