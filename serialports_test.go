package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestSerialPortInfo(t *testing.T) {
	tests := []struct {
		name    string
		details enumerator.PortDetails
		want    SerialPortInfo
	}{
		{
			name: "usb adapter",
			details: enumerator.PortDetails{
				Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001",
				SerialNumber: "A50285BI", Product: "FT232R USB UART",
			},
			want: SerialPortInfo{Device: "/dev/ttyUSB0", USBID: "0403:6001", Product: "FT232R USB UART", SerialNumber: "A50285BI"},
		},
		{
			name:    "windows com port",
			details: enumerator.PortDetails{Name: "COM3", IsUSB: true, VID: "1A86", PID: "7523"},
			want:    SerialPortInfo{Device: "COM3", USBID: "1a86:7523"},
		},
		{
			name:    "onboard uart",
			details: enumerator.PortDetails{Name: "/dev/ttyS0"},
			want:    SerialPortInfo{Device: "/dev/ttyS0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.details
			assert.Equal(t, tt.want, serialPortInfo(&d))
		})
	}
}

func TestWriteSerialPorts(t *testing.T) {
	ports := []SerialPortInfo{
		{Device: "/dev/ttyUSB0", USBID: "0403:6001", Product: "FT232R USB UART", SerialNumber: "A50285BI"},
		{Device: "/dev/ttyS0"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSerialPorts(&buf, ports))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "device"))
	assert.Equal(t, strings.Repeat("-", 87), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "/dev/ttyUSB0        0403:6001"))
	assert.Equal(t, "/dev/ttyS0          n/a                      n/a                      n/a", lines[3])
}
