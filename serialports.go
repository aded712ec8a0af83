package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// SerialPortInfo 序列埠資訊
type SerialPortInfo struct {
	Device       string
	USBID        string
	Product      string
	SerialNumber string
}

// ListSerialPorts 列出系統上的序列埠 (Linux、Windows、macOS)
func ListSerialPorts() ([]SerialPortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("列出序列埠失敗: %w", err)
	}

	ports := make([]SerialPortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, serialPortInfo(d))
	}
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Device < ports[j].Device
	})
	return ports, nil
}

func serialPortInfo(d *enumerator.PortDetails) SerialPortInfo {
	info := SerialPortInfo{Device: d.Name}
	if d.IsUSB {
		info.USBID = strings.ToLower(d.VID + ":" + d.PID)
		info.Product = d.Product
		info.SerialNumber = d.SerialNumber
	}
	return info
}

// WriteSerialPorts 輸出序列埠表格，缺少的欄位顯示 n/a
func WriteSerialPorts(w io.Writer, ports []SerialPortInfo) error {
	if _, err := fmt.Fprintf(w, "%-20s%-25s%-25s%s\n", "device", "usb id", "product", "serial number"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n", strings.Repeat("-", 87)); err != nil {
		return err
	}
	for _, p := range ports {
		if _, err := fmt.Fprintf(w, "%-20s%-25s%-25s%s\n",
			orNA(p.Device), orNA(p.USBID), orNA(p.Product), orNA(p.SerialNumber)); err != nil {
			return err
		}
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
