package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogDocument 匯出格式
type catalogDocument struct {
	Registers []RegisterDescriptor `json:"registers" yaml:"registers"`
}

// ExportCatalog 以 table、yaml 或 json 輸出暫存器目錄
func ExportCatalog(w io.Writer, c *Catalog, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		return writeCatalogTable(w, c)

	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(catalogDocument{Registers: c.Descriptors()}); err != nil {
			return fmt.Errorf("輸出 YAML 失敗: %w", err)
		}
		return enc.Close()

	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(catalogDocument{Registers: c.Descriptors()}); err != nil {
			return fmt.Errorf("輸出 JSON 失敗: %w", err)
		}
		return nil

	default:
		return &ConfigurationError{Field: "output", Reason: fmt.Sprintf("不支援的格式: %q", format)}
	}
}

func writeCatalogTable(w io.Writer, c *Catalog) error {
	if _, err := fmt.Fprintf(w, "%-30s%-10s%-8s%-8s%-18s%s\n", "Register", "Address", "Words", "Type", "Scaling", "Unit"); err != nil {
		return err
	}
	for _, d := range c.Descriptors() {
		if _, err := fmt.Fprintf(w, "%-30s%-10s%-8d%-8s%-18s%s\n",
			d.Name, fmt.Sprintf("%#06x", d.Address), d.WordLength, d.Encoding, d.Scaling, d.Unit); err != nil {
			return err
		}
	}
	return nil
}
