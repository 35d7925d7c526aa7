package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "a2ui",
	Short: "A2UI generation backend",
	Long: `a2ui turns a chat message into a structured A2UI response: it picks a content
style, optionally augments the prompt with web search, location and data sources,
calls the selected LLM provider and returns validated UI components.`,
	SilenceUsage: true,
	// 不带子命令时默认启动服务
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "配置文件路径")
	rootCmd.AddCommand(serveCmd, askCmd, stylesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
