package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	logger    *zap.Logger
	appConfig *Config
)

// rootCmd 根命令，直接執行即持續讀取電池資料
var rootCmd = &cobra.Command{
	Use:   "renogybms",
	Short: "Renogy 智慧鋰電池 RS-485 讀取工具",
	Long: `透過 RS-485 (Modbus RTU) 讀取 Renogy LiFePO4 智慧電池的所有暫存器，
每秒更新一次表格。可自動掃描電池的從站位址。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// 載入配置 (除了 version 和 generate 命令)
		var loadErr error
		appConfig = DefaultConfig()
		if cmd.Name() != "version" && cmd.Name() != "generate" {
			var cfg *Config
			if cfg, loadErr = LoadConfig(cfgFile); loadErr == nil {
				appConfig = cfg
			}
		}

		// 初始化日誌
		var err error
		logger, err = initLogger(appConfig.Logging)
		if err != nil {
			return fmt.Errorf("初始化日誌失敗: %w", err)
		}

		// 找不到配置檔時 LoadConfig 會回傳預設值；到這裡的錯誤代表檔案本身無效
		if loadErr != nil {
			return loadErr
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runReadout,
}

func runReadout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if list, _ := cmd.Flags().GetBool("list-devices"); list {
		ports, err := ListSerialPorts()
		if err != nil {
			return fmt.Errorf("列出序列埠失敗: %w", err)
		}
		return WriteSerialPorts(out, ports)
	}

	if err := applyReadoutFlags(cmd, appConfig); err != nil {
		return err
	}
	if err := appConfig.Validate(); err != nil {
		return err
	}

	transport, err := openTransport(appConfig, logger)
	if err != nil {
		return err
	}
	defer transport.Close()

	// 設置優雅關閉
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slaveID := uint8(appConfig.Battery.Address)
	if appConfig.Battery.ScanAddresses {
		fmt.Fprintln(out, "Scanning addresses...")
		resolver := NewAddressResolver(transport,
			WithProbeTimeout(appConfig.Battery.ScanTimeout),
			WithResolverLogger(logger),
		)
		slaveID, err = resolver.Resolve(ctx)
		if err != nil {
			fmt.Fprintln(out, "Error: could not determine slave address.")
			return err
		}
		fmt.Fprintf(out, "Slave address: %#x\n", slaveID)
	}

	poller := NewPoller(transport, RenogyCatalog(), slaveID, WithPollerLogger(logger))
	sinks := []SnapshotSink{NewTableRenderer(out)}

	// 啟動指標收集器
	if appConfig.Metrics.Enabled {
		metrics := NewMetricsCollector(poller, logger)
		if err := metrics.Start(appConfig.Metrics.Endpoint, appConfig.Metrics.Port); err != nil {
			logger.Warn("啟動指標伺服器失敗", zap.Error(err))
		} else {
			sinks = append(sinks, metrics)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = metrics.Stop(shutdownCtx)
			}()
		}
	}

	if appConfig.MQTT.Enabled {
		publisher, err := NewMQTTPublisher(appConfig.MQTT, logger)
		if err != nil {
			logger.Warn("MQTT 連線失敗，停用發布", zap.Error(err))
		} else {
			sinks = append(sinks, publisher)
			defer publisher.Close()
		}
	}

	logger.Info("開始輪詢",
		zap.Uint8("slave", slaveID),
		zap.Int("registers", poller.Catalog().Len()),
		zap.Duration("interval", appConfig.Poll.Interval),
	)

	err = RunLoop(ctx, poller, appConfig.Poll.Interval, logger, sinks...)
	if errors.Is(err, context.Canceled) {
		logger.Info("已停止", zap.Uint64("cycles", poller.Stats().Cycles.Load()))
		return nil
	}
	return err
}

// applyReadoutFlags 以命令列參數覆蓋配置
func applyReadoutFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.Serial.Device, _ = flags.GetString("device")
	}
	if flags.Changed("address") {
		s, _ := flags.GetString("address")
		addr, err := ParseSlaveAddress(s)
		if err != nil {
			return err
		}
		cfg.Battery.Address = int(addr)
	}
	if flags.Changed("scan-addresses") {
		cfg.Battery.ScanAddresses, _ = flags.GetBool("scan-addresses")
	}
	if flags.Changed("tcp") {
		cfg.TCP.Address, _ = flags.GetString("tcp")
	}
	if flags.Changed("baud") {
		cfg.Serial.BaudRate, _ = flags.GetInt("baud")
	}
	if flags.Changed("interval") {
		cfg.Poll.Interval, _ = flags.GetDuration("interval")
	}
	return nil
}

func openTransport(cfg *Config, logger *zap.Logger) (Transport, error) {
	if cfg.TCP.Address != "" {
		return NewTCPTransport(cfg.TCP, cfg.Serial.Timeout, logger)
	}
	return NewSerialTransport(cfg.Serial, logger)
}

// registersCmd 列出暫存器目錄
var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "列出暫存器目錄",
	Long:  "列出所有已知暫存器的位址、長度、編碼、縮放與單位。",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		return ExportCatalog(cmd.OutOrStdout(), RenogyCatalog(), format)
	},
}

// configCmd 配置命令組
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置管理命令",
	Long:  "管理配置檔。",
}

// configValidateCmd 驗證配置
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "驗證配置檔",
	Long:  "驗證指定的配置檔是否有效。",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("配置驗證失敗: %w", err)
		}
		if cfg.Source() == "" {
			return &ConfigurationError{Field: "config", Reason: "找不到配置檔，沒有驗證任何檔案 (請以 --config 指定)"}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "配置驗證通過: %s\n", cfg.Source())
		if cfg.TCP.Address != "" {
			fmt.Fprintf(out, "  TCP: %s\n", cfg.TCP.Address)
		} else {
			fmt.Fprintf(out, "  Device: %s (%d baud)\n", cfg.Serial.Device, cfg.Serial.BaudRate)
		}
		if cfg.Battery.ScanAddresses {
			fmt.Fprintln(out, "  Address: scan")
		} else {
			fmt.Fprintf(out, "  Address: %#x\n", cfg.Battery.Address)
		}
		fmt.Fprintf(out, "  Interval: %v\n", cfg.Poll.Interval)
		return nil
	},
}

// configGenerateCmd 生成配置
var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "生成範例配置",
	Long:  "生成範例配置檔。",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = "config.json"
		}

		if err := DefaultConfig().SaveConfig(output); err != nil {
			return fmt.Errorf("生成配置失敗: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "範例配置已生成: %s\n", output)
		return nil
	},
}

// versionCmd 版本命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "顯示版本資訊",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "renogybms version %s\n", Version)
		fmt.Fprintf(out, "  Build: %s\n", BuildTime)
		fmt.Fprintf(out, "  Commit: %s\n", GitCommit)
	},
}

func init() {
	// 全域 flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置檔路徑")

	// 讀取 flags
	rootCmd.Flags().StringP("device", "d", DefaultSerialDevice(), "RS-485 序列埠")
	rootCmd.Flags().StringP("address", "a", "247", "從站位址 (可用 0xf7 表示)")
	rootCmd.Flags().Bool("scan-addresses", false, "逐一掃描找出從站位址")
	rootCmd.Flags().Bool("list-devices", false, "列出序列埠")
	rootCmd.Flags().String("tcp", "", "改用 Modbus TCP 閘道 (host:port)")
	rootCmd.Flags().Int("baud", DefaultBaudRate, "鮑率")
	rootCmd.Flags().Duration("interval", DefaultPollInterval, "輪詢週期")

	// registers 命令 flags
	registersCmd.Flags().StringP("output", "o", "table", "輸出格式 (table|yaml|json)")

	// config 命令 flags
	configGenerateCmd.Flags().StringP("output", "o", "config.json", "輸出檔案路徑")

	// 組裝命令樹
	configCmd.AddCommand(configValidateCmd, configGenerateCmd)

	rootCmd.AddCommand(
		registersCmd,
		configCmd,
		versionCmd,
	)
}

func initLogger(cfg LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("無效的日誌等級 %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	// stdout 留給表格輸出
	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}
	zcfg.OutputPaths = []string{output}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// Execute 執行 CLI
func Execute() error {
	return rootCmd.Execute()
}
