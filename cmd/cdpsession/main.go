// cdpsession 会话资源命令行工具
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cdpsession/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "cdpsession",
	Short:         "Inspect and replay browser session resources",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (defaults apply when empty)")
}

// loadConfig 读取配置文件，未指定路径时使用默认配置
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.NewConfig(), nil
	}
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
