package main

import (
	"fmt"
	"sync"
)

// RegisterDescriptor 暫存器定義
type RegisterDescriptor struct {
	Name       string   `json:"name" yaml:"name"`
	Address    uint16   `json:"address" yaml:"address"`
	WordLength uint16   `json:"length" yaml:"length"`
	Encoding   Encoding `json:"type" yaml:"type"`
	Scaling    Scaling  `json:"scaling" yaml:"scaling"`
	Unit       string   `json:"unit" yaml:"unit"`
}

// ByteLength 解碼時使用的位元組數
func (d RegisterDescriptor) ByteLength() int {
	return int(d.WordLength) * 2
}

// Catalog 唯讀的暫存器目錄，保持定義順序
type Catalog struct {
	descriptors []RegisterDescriptor
	index       map[string]int
}

// NewCatalog 建立目錄。名稱必須唯一；位址可以重複。
func NewCatalog(descs ...RegisterDescriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]RegisterDescriptor, 0, len(descs)),
		index:       make(map[string]int, len(descs)),
	}

	for _, d := range descs {
		if d.Name == "" {
			return nil, fmt.Errorf("暫存器 0x%04x 缺少名稱", d.Address)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("暫存器名稱重複: %s", d.Name)
		}
		if d.WordLength == 0 || d.WordLength > MaxRegistersPerRead {
			return nil, fmt.Errorf("暫存器 %s 長度無效: %d", d.Name, d.WordLength)
		}
		if !d.Encoding.Valid() {
			return nil, &DecodeError{Field: d.Name, Err: ErrUnsupportedEncoding}
		}
		c.index[d.Name] = len(c.descriptors)
		c.descriptors = append(c.descriptors, d)
	}

	return c, nil
}

// Lookup 依名稱取得定義
func (c *Catalog) Lookup(name string) (RegisterDescriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return RegisterDescriptor{}, false
	}
	return c.descriptors[i], true
}

// MustLookup 取得定義，不存在時 panic (僅供內建目錄使用)
func (c *Catalog) MustLookup(name string) RegisterDescriptor {
	d, ok := c.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("%v: %s", ErrRegisterNotFound, name))
	}
	return d
}

// Descriptors 依目錄順序回傳定義副本
func (c *Catalog) Descriptors() []RegisterDescriptor {
	out := make([]RegisterDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Names 依目錄順序回傳名稱
func (c *Catalog) Names() []string {
	names := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		names[i] = d.Name
	}
	return names
}

// Len 暫存器數量
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

// ProbeRegisterName 掃描位址時讀取的暫存器 (電池組電壓)
const ProbeRegisterName = "voltage"

var (
	renogyCatalog     *Catalog
	renogyCatalogOnce sync.Once
)

// RenogyCatalog Renogy LiFePO4 智慧電池暫存器目錄 (程序內唯一)
func RenogyCatalog() *Catalog {
	renogyCatalogOnce.Do(func() {
		c, err := NewCatalog(renogyRegisters()...)
		if err != nil {
			panic(fmt.Sprintf("內建暫存器目錄無效: %v", err))
		}
		renogyCatalog = c
	})
	return renogyCatalog
}

func u16(name string, addr uint16, scaling Scaling, unit string) RegisterDescriptor {
	return RegisterDescriptor{Name: name, Address: addr, WordLength: 1, Encoding: EncodingUnsigned, Scaling: scaling, Unit: unit}
}

func s16(name string, addr uint16, scaling Scaling, unit string) RegisterDescriptor {
	return RegisterDescriptor{Name: name, Address: addr, WordLength: 1, Encoding: EncodingSigned, Scaling: scaling, Unit: unit}
}

func u32(name string, addr uint16, scaling Scaling, unit string) RegisterDescriptor {
	return RegisterDescriptor{Name: name, Address: addr, WordLength: 2, Encoding: EncodingUnsigned, Scaling: scaling, Unit: unit}
}

func ascii(name string, addr, words uint16) RegisterDescriptor {
	return RegisterDescriptor{Name: name, Address: addr, WordLength: words, Encoding: EncodingASCII, Scaling: Identity()}
}

func renogyRegisters() []RegisterDescriptor {
	var (
		id    = Identity()
		deci  = Linear(0.1, 0)
		centi = Linear(0.01, 0)
		milli = Linear(0.001, 0)
	)

	return []RegisterDescriptor{
		// 電芯資訊
		u16("cellvoltage_count", 0x1388, id, ""),
		u16("cellvoltage_1", 0x1389, deci, "V"),
		u16("cellvoltage_2", 0x138a, deci, "V"),
		u16("cellvoltage_3", 0x138b, deci, "V"),
		u16("cellvoltage_4", 0x138c, deci, "V"),
		u16("cellvoltage_5", 0x138d, deci, "V"),
		u16("cellvoltage_6", 0x138e, deci, "V"),
		u16("cellvoltage_7", 0x138f, deci, "V"),
		u16("cellvoltage_8", 0x1390, deci, "V"),
		u16("cellvoltage_9", 0x1391, deci, "V"),
		u16("cellvoltage_10", 0x1392, deci, "V"),
		u16("cellvoltage_11", 0x1393, deci, "V"),
		u16("cellvoltage_12", 0x1394, deci, "V"),
		// 與 cellvoltage_12 同位址，照原始清單保留，正確位址 (0x1395?) 尚未驗證
		u16("cellvoltage_13", 0x1394, deci, "V"),
		u16("cellvoltage_14", 0x1396, deci, "V"),
		u16("cellvoltage_15", 0x1397, deci, "V"),
		u16("cellvoltage_16", 0x1398, deci, "V"),

		u16("celltemp_count", 0x1399, id, ""),
		s16("celltemp_1", 0x139a, deci, "°C"),
		s16("celltemp_2", 0x139b, deci, "°C"),
		s16("celltemp_3", 0x139c, deci, "°C"),
		s16("celltemp_4", 0x139d, deci, "°C"),
		s16("celltemp_5", 0x139e, deci, "°C"),
		s16("celltemp_6", 0x139f, deci, "°C"),
		s16("celltemp_7", 0x13a0, deci, "°C"),
		s16("celltemp_8", 0x13a1, deci, "°C"),
		s16("celltemp_9", 0x13a2, deci, "°C"),
		s16("celltemp_10", 0x13a3, deci, "°C"),
		s16("celltemp_11", 0x13a4, deci, "°C"),
		s16("celltemp_12", 0x13a5, deci, "°C"),
		s16("celltemp_13", 0x13a6, deci, "°C"),
		s16("celltemp_14", 0x13a7, deci, "°C"),
		s16("celltemp_15", 0x13a8, deci, "°C"),
		s16("celltemp_16", 0x13a9, deci, "°C"),

		s16("bmstemp", 0x13ab, deci, "°C"),

		u16("envtemp_count", 0x13ac, id, ""),
		s16("envtemp_1", 0x13ad, deci, "°C"),
		s16("envtemp_2", 0x13ae, deci, "°C"),

		u16("heatertemp_count", 0x13af, id, ""),
		s16("heatertemp_1", 0x13b0, deci, "°C"),
		s16("heatertemp_2", 0x13b1, deci, "°C"),

		// 電池資訊
		s16("current", 0x13b2, centi, "A"),
		u16("voltage", 0x13b3, deci, "V"),
		u32("remaining_capacity", 0x13b4, milli, "Ah"),
		u32("total_capacity", 0x13b6, milli, "Ah"),
		u16("cycle_number", 0x13b8, id, ""),
		u16("charge_voltage_limit", 0x13b9, deci, "V"),
		u16("discharge_voltage_limit", 0x13ba, deci, "V"),
		s16("charge_current_limit", 0x13bb, centi, "A"),
		s16("discharge_current_limit", 0x13bc, centi, "A"),

		// 告警 / 狀態
		u32("cell_voltage_alarminfo", 0x13ec, id, ""),
		u32("cell_temp_alarminfo", 0x13ee, id, ""),
		u32("other_alarminfo", 0x13f0, id, ""),
		u16("status1", 0x13f2, id, ""),
		u16("status2", 0x13f3, id, ""),
		u16("status3", 0x13f4, id, ""),
		u16("charging_status", 0x13f5, id, ""),

		// 一般資訊
		ascii("serial", 0x13f6, 8),
		ascii("manu_version", 0x13fe, 1),
		ascii("mainline_version", 0x13ff, 2),
		ascii("comms_version", 0x1401, 1),
		ascii("model", 0x1402, 8),
		ascii("firmware_version", 0x140a, 2),
		ascii("manufacturer", 0x140c, 10),

		// 電芯電壓保護
		u16("cell_over_volt_limit", 0x1450, deci, "V"),
		u16("cell_high_volt_limit", 0x1451, deci, "V"),
		u16("cell_low_volt_limit", 0x1452, deci, "V"),
		u16("cell_under_volt_limit", 0x1453, deci, "V"),

		// 充電溫度保護
		s16("charge_over_temp_limit", 0x1454, deci, "°C"),
		s16("charge_high_temp_limit", 0x1455, deci, "°C"),
		s16("charge_low_temp_limit", 0x1456, deci, "°C"),
		s16("charge_under_temp_limit", 0x1457, deci, "°C"),

		// 充電電流限制
		s16("charge_over2_limit", 0x1458, centi, "A"),
		s16("charge_over1_limit", 0x1459, centi, "A"),
		s16("charge_high_limit", 0x145a, centi, "A"),

		// 模組電壓限制
		u16("module_over_volt_limit", 0x145b, deci, "V"),
		u16("module_high_volt_limit", 0x145c, deci, "V"),
		u16("module_low_volt_limit", 0x145d, deci, "V"),
		u16("module_under_volt_limit", 0x145e, deci, "V"),

		// 放電限制
		s16("discharge_over_temp_limit", 0x145f, deci, "°C"),
		s16("discharge_high_temp_limit", 0x1460, deci, "°C"),
		s16("discharge_low_temp_limit", 0x1461, deci, "°C"),
		s16("discharge_under_temp_limit", 0x1462, deci, "°C"),
		s16("discharge_over2_limit", 0x1463, centi, "A"),
		s16("discharge_over1_limit", 0x1464, centi, "A"),
		s16("discharge_high_limit", 0x1465, centi, "A"),

		u16("shutdown_command", 0x1466, id, ""),
		u16("device_address", 0x1467, id, ""),
		u32("unique_id", 0x146a, id, ""),

		u16("charge_power", 0x146c, id, "W"),
		u16("discharge_power", 0x146d, id, "W"),
	}
}
