package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ScalingKind 縮放類型
type ScalingKind int

const (
	ScalingIdentity ScalingKind = iota
	ScalingLinear
)

func (k ScalingKind) String() string {
	switch k {
	case ScalingIdentity:
		return "identity"
	case ScalingLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// Scaling 原始整數到物理量的轉換，只有 Identity 與 Linear 兩種
type Scaling struct {
	Kind   ScalingKind
	Factor float64
	Offset float64
}

// Identity 不做轉換，保留原始整數
func Identity() Scaling {
	return Scaling{Kind: ScalingIdentity}
}

// Linear raw*factor + offset
func Linear(factor, offset float64) Scaling {
	return Scaling{Kind: ScalingLinear, Factor: factor, Offset: offset}
}

// IsIdentity 是否為不轉換
func (s Scaling) IsIdentity() bool {
	return s.Kind == ScalingIdentity
}

// Apply 套用縮放
func (s Scaling) Apply(raw float64) float64 {
	if s.Kind == ScalingLinear {
		return raw*s.Factor + s.Offset
	}
	return raw
}

// Invert 由物理量反推原始值
func (s Scaling) Invert(value float64) (float64, error) {
	if s.Kind != ScalingLinear {
		return value, nil
	}
	if s.Factor == 0 {
		return 0, errors.New("縮放因子為 0，無法反推原始值")
	}
	return (value - s.Offset) / s.Factor, nil
}

func (s Scaling) String() string {
	if s.Kind == ScalingLinear {
		return fmt.Sprintf("linear(%s,%s)",
			strconv.FormatFloat(s.Factor, 'g', -1, 64),
			strconv.FormatFloat(s.Offset, 'g', -1, 64))
	}
	return "identity"
}

// ParseScaling 解析 "identity" 或 "linear(factor,offset)"
func ParseScaling(s string) (Scaling, error) {
	s = strings.TrimSpace(s)
	if s == "identity" || s == "identical" {
		return Identity(), nil
	}

	inner, ok := strings.CutPrefix(s, "linear(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return Scaling{}, fmt.Errorf("無效的縮放表示: %q", s)
	}
	parts := strings.Split(strings.TrimSuffix(inner, ")"), ",")
	if len(parts) != 2 {
		return Scaling{}, fmt.Errorf("linear 需要兩個參數: %q", s)
	}

	factor, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Scaling{}, fmt.Errorf("無效的縮放因子: %w", err)
	}
	offset, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Scaling{}, fmt.Errorf("無效的偏移量: %w", err)
	}
	return Linear(factor, offset), nil
}

// MarshalText 實作 encoding.TextMarshaler
func (s Scaling) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 實作 encoding.TextUnmarshaler
func (s *Scaling) UnmarshalText(text []byte) error {
	parsed, err := ParseScaling(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
