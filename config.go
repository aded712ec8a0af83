package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全域配置
type Config struct {
	Serial  SerialConfig  `json:"serial" mapstructure:"serial"`
	TCP     TCPConfig     `json:"tcp" mapstructure:"tcp"`
	Battery BatteryConfig `json:"battery" mapstructure:"battery"`
	Poll    PollConfig    `json:"poll" mapstructure:"poll"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	MQTT    MQTTConfig    `json:"mqtt" mapstructure:"mqtt"`

	source string
}

// SerialConfig RS-485 序列埠配置
type SerialConfig struct {
	Device   string        `json:"device" mapstructure:"device"`
	BaudRate int           `json:"baud_rate" mapstructure:"baud_rate"`
	DataBits int           `json:"data_bits" mapstructure:"data_bits"`
	Parity   string        `json:"parity" mapstructure:"parity"`
	StopBits int           `json:"stop_bits" mapstructure:"stop_bits"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// TCPConfig Modbus TCP 閘道配置 (Address 為空時使用序列埠)
type TCPConfig struct {
	Address     string        `json:"address" mapstructure:"address"`
	IdleTimeout time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
}

// BatteryConfig 電池從站配置
type BatteryConfig struct {
	Address       int           `json:"address" mapstructure:"address"`
	ScanAddresses bool          `json:"scan_addresses" mapstructure:"scan_addresses"`
	ScanTimeout   time.Duration `json:"scan_timeout" mapstructure:"scan_timeout"`
}

// PollConfig 輪詢配置
type PollConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// LoggingConfig 日誌配置
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	Format     string `json:"format" mapstructure:"format"`
	OutputPath string `json:"output_path" mapstructure:"output_path"`
}

// MetricsConfig 指標配置
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Port     int    `json:"port" mapstructure:"port"`
}

// MQTTConfig MQTT 發布配置
type MQTTConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	BrokerURL   string `json:"broker_url" mapstructure:"broker_url"`
	ClientID    string `json:"client_id" mapstructure:"client_id"`
	Username    string `json:"username" mapstructure:"username"`
	Password    string `json:"password" mapstructure:"password"`
	TopicPrefix string `json:"topic_prefix" mapstructure:"topic_prefix"`
	QoS         byte   `json:"qos" mapstructure:"qos"`
	Retain      bool   `json:"retain" mapstructure:"retain"`
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:   DefaultSerialDevice(),
			BaudRate: DefaultBaudRate,
			DataBits: DefaultDataBits,
			Parity:   DefaultParity,
			StopBits: DefaultStopBits,
			Timeout:  200 * time.Millisecond,
		},
		TCP: TCPConfig{
			IdleTimeout: 60 * time.Second,
		},
		Battery: BatteryConfig{
			Address:     DefaultSlaveAddress,
			ScanTimeout: DefaultProbeTimeout,
		},
		Poll: PollConfig{
			Interval: DefaultPollInterval,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
			Port:     9108,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			BrokerURL:   "tcp://localhost:1883",
			ClientID:    "renogybms",
			TopicPrefix: "renogybms",
		},
	}
}

// DefaultSerialDevice 各平台預設序列埠
func DefaultSerialDevice() string {
	switch runtime.GOOS {
	case "windows":
		return "COM1"
	case "darwin":
		return "/dev/tty.usbserial"
	default:
		return "/dev/ttyUSB0"
	}
}

// LoadConfig 載入配置檔
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/renogybms/")
		v.AddConfigPath("$HOME/.renogybms/")
	}

	// 預設值先登記到 viper，環境變數才能覆蓋沒有出現在配置檔中的鍵
	if err := setViperDefaults(v, cfg); err != nil {
		return nil, err
	}

	// 環境變數覆蓋，例如 RENOGYBMS_SERIAL_DEVICE
	v.SetEnvPrefix("RENOGYBMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("讀取配置檔失敗: %w", err)
		}
		// 配置檔不存在，使用預設值
	} else {
		cfg.source = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失敗: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置驗證失敗: %w", err)
	}

	return cfg, nil
}

func setViperDefaults(v *viper.Viper, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("序列化預設配置失敗: %w", err)
	}

	var sections map[string]any
	if err := json.Unmarshal(data, &sections); err != nil {
		return fmt.Errorf("解析預設配置失敗: %w", err)
	}

	for section, values := range sections {
		fields, ok := values.(map[string]any)
		if !ok {
			continue
		}
		for key, value := range fields {
			v.SetDefault(section+"."+key, value)
		}
	}
	return nil
}

// Validate 驗證配置
func (c *Config) Validate() error {
	if c.TCP.Address == "" && c.Serial.Device == "" {
		return &ConfigurationError{Field: "serial.device", Reason: "必須指定序列埠或 TCP 閘道"}
	}

	if c.Serial.BaudRate <= 0 {
		return &ConfigurationError{Field: "serial.baud_rate", Reason: fmt.Sprintf("無效的鮑率: %d", c.Serial.BaudRate)}
	}

	switch c.Serial.Parity {
	case "N", "E", "O":
	default:
		return &ConfigurationError{Field: "serial.parity", Reason: fmt.Sprintf("必須為 N、E 或 O: %q", c.Serial.Parity)}
	}

	if c.Serial.Timeout <= 0 {
		return &ConfigurationError{Field: "serial.timeout", Reason: "逾時必須大於 0"}
	}

	if !c.Battery.ScanAddresses && !ValidSlaveAddress(c.Battery.Address) {
		return &ConfigurationError{
			Field:  "battery.address",
			Reason: fmt.Sprintf("從站位址必須在 %d..%d: %d", MinSlaveAddress, MaxSlaveAddress, c.Battery.Address),
		}
	}

	if c.Battery.ScanTimeout <= 0 {
		return &ConfigurationError{Field: "battery.scan_timeout", Reason: "逾時必須大於 0"}
	}

	if c.Poll.Interval <= 0 {
		return &ConfigurationError{Field: "poll.interval", Reason: "週期必須大於 0"}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return &ConfigurationError{Field: "metrics.port", Reason: fmt.Sprintf("無效的埠號: %d", c.Metrics.Port)}
	}

	if c.MQTT.Enabled {
		if c.MQTT.BrokerURL == "" {
			return &ConfigurationError{Field: "mqtt.broker_url", Reason: "未指定 broker"}
		}
		if c.MQTT.QoS > 2 {
			return &ConfigurationError{Field: "mqtt.qos", Reason: fmt.Sprintf("QoS 必須為 0..2: %d", c.MQTT.QoS)}
		}
	}

	return nil
}

// Source 實際載入的配置檔 (只用預設值時為空字串)
func (c *Config) Source() string {
	return c.source
}

// SaveConfig 儲存配置到檔案
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失敗: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("寫入配置檔失敗: %w", err)
	}

	return nil
}

// ParseSlaveAddress 解析從站位址，接受 247、0xf7、0o367 等寫法
func ParseSlaveAddress(s string) (uint8, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, &ConfigurationError{Field: "address", Reason: fmt.Sprintf("無法解析 %q", s)}
	}
	if !ValidSlaveAddress(int(n)) {
		return 0, &ConfigurationError{
			Field:  "address",
			Reason: fmt.Sprintf("從站位址必須在 %d..%d: %d", MinSlaveAddress, MaxSlaveAddress, n),
		}
	}
	return uint8(n), nil
}
