package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()

	catalog, err := NewCatalog(
		u16("voltage", 0x13b3, Linear(0.1, 0), "V"),
		s16("current", 0x13b2, Linear(0.01, 0), "A"),
		u16("cycle_number", 0x13b8, Identity(), ""),
	)
	require.NoError(t, err)

	battery := newFakeBattery()
	battery.registers[0x13b3] = 133
	battery.registers[0x13b8] = 12
	battery.failing[0x13b2] = errors.New("timeout")

	return NewPoller(battery, catalog, 0xF7).Poll(context.Background())
}

func TestTableRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	r := NewTableRenderer(&buf)

	require.NoError(t, r.Consume(context.Background(), testSnapshot(t)))
	lines := strings.Split(buf.String(), "\n")

	// 空行、標題、分隔線、3 列資料、頁尾
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Register"))
	assert.Contains(t, lines[1], "Address")
	assert.Contains(t, lines[1], "Value")
	assert.Contains(t, lines[1], "Binary")
	assert.Equal(t, strings.Repeat("-", 94), lines[2])

	assert.Equal(t,
		padRight("voltage", 30)+padRight("0x13b3", 10)+padRight("13.30 V", 20)+FormatBinary([]byte{0x00, 0x85}),
		lines[3])

	assert.True(t, strings.HasPrefix(lines[4], padRight("current", 30)+padRight("0x13b2", 10)))
	assert.Contains(t, lines[4], UnavailableMarker)
	assert.NotContains(t, lines[4], "0000")

	assert.Equal(t,
		padRight("cycle_number", 30)+padRight("0x13b8", 10)+padRight("12 ", 20)+FormatBinary([]byte{0x00, 0x0C}),
		lines[5])

	assert.True(t, strings.HasPrefix(lines[6], "slave 0xf7  2/3 ok"))
}

func TestTableRenderer_NoColorWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableRenderer(&buf).Consume(context.Background(), testSnapshot(t)))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestFormatBinary(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{
			name: "one word",
			raw:  []byte{0x00, 0x85},
			want: "00000000 10000101" + strings.Repeat(" ", 18),
		},
		{
			name: "two words fill column",
			raw:  []byte{0x00, 0x01, 0x86, 0xA0},
			want: "00000000 00000001 10000110 10100000",
		},
		{
			name: "truncated",
			raw:  []byte{0x41, 0x42, 0x43, 0x44, 0x45, 0x46},
			want: "01000001 01000010 01000011 01000...",
		},
		{
			name: "empty",
			raw:  nil,
			want: strings.Repeat(" ", 35),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBinary(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 35)
		})
	}
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
	// 寬度以顯示寬度計算
	assert.Equal(t, "°C  ", padRight("°C", 4))
}
