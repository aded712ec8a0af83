package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// 表格欄寬
const (
	nameColumnWidth    = 30
	addressColumnWidth = 10
	valueColumnWidth   = 20
	binaryColumnWidth  = 35
)

// UnavailableMarker 本輪讀取失敗的欄位顯示值
const UnavailableMarker = "unavailable"

// TableRenderer 將 Snapshot 輸出為文字表格
type TableRenderer struct {
	w io.Writer

	headerStyle lipgloss.Style
	errorStyle  lipgloss.Style
	footerStyle lipgloss.Style
}

// NewTableRenderer 建立表格輸出器；非終端機輸出時不帶顏色
func NewTableRenderer(w io.Writer) *TableRenderer {
	r := lipgloss.NewRenderer(w)
	return &TableRenderer{
		w:           w,
		headerStyle: r.NewStyle().Bold(true),
		errorStyle:  r.NewStyle().Foreground(lipgloss.Color("9")),
		footerStyle: r.NewStyle().Faint(true),
	}
}

// Consume 實作 SnapshotSink
func (t *TableRenderer) Consume(_ context.Context, snap *Snapshot) error {
	_, err := io.WriteString(t.w, t.Render(snap))
	return err
}

// Render 產生整張表格
func (t *TableRenderer) Render(snap *Snapshot) string {
	var b strings.Builder

	header := padRight("Register", nameColumnWidth) +
		padRight("Address", addressColumnWidth) +
		padRight("Value", valueColumnWidth) +
		padRight("Binary", binaryColumnWidth)

	b.WriteString("\n")
	b.WriteString(t.headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", nameColumnWidth+addressColumnWidth+valueColumnWidth+binaryColumnWidth-1))
	b.WriteString("\n")

	for _, f := range snap.Fields {
		b.WriteString(t.renderRow(f))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("slave 0x%02x  %d/%d ok  %v",
		snap.SlaveID, snap.Len()-len(snap.Failed()), snap.Len(), snap.Duration.Round(time.Millisecond))
	b.WriteString(t.footerStyle.Render(footer))
	b.WriteString("\n")

	return b.String()
}

func (t *TableRenderer) renderRow(f FieldResult) string {
	d := f.Descriptor
	name := padRight(d.Name, nameColumnWidth)
	address := padRight(fmt.Sprintf("%#06x", d.Address), addressColumnWidth)

	if !f.OK() {
		return name + address + t.errorStyle.Render(padRight(UnavailableMarker, valueColumnWidth))
	}

	value := padRight(f.Value.String()+" "+d.Unit, valueColumnWidth)
	return name + address + value + FormatBinary(f.Value.Raw)
}

// FormatBinary 位元組以 8 位二進位表示，超出欄寬時截斷並加上 "..."
func FormatBinary(raw []byte) string {
	parts := make([]string, len(raw))
	for i, c := range raw {
		parts[i] = fmt.Sprintf("%08b", c)
	}

	s := padRight(strings.Join(parts, " "), binaryColumnWidth)
	if len(s) > binaryColumnWidth {
		s = s[:binaryColumnWidth-3] + "..."
	}
	return s
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
