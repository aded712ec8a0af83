package main

import (
	"errors"
	"fmt"
	"os"
)

// 版本資訊 (由 ldflags 注入)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// exitConfiguration 配置或參數錯誤的結束碼
const exitConfiguration = 2

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "renogybms: %v\n", err)

		var ce *ConfigurationError
		if errors.As(err, &ce) {
			os.Exit(exitConfiguration)
		}
		os.Exit(1)
	}
}
