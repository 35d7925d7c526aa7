package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"a2ui-backend/internal/model"
	"a2ui-backend/internal/service"
)

var askOpts struct {
	provider string
	model    string
	style    string
	mode     string
	steps    bool
	noSearch bool
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run the generation pipeline once and print the A2UI response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), configPath, os.Stderr)
		if err != nil {
			return err
		}
		defer a.sources.Close()

		req := &model.ChatRequest{
			Message:         strings.Join(args, " "),
			Provider:        askOpts.provider,
			Model:           askOpts.model,
			ContentStyle:    askOpts.style,
			PerformanceMode: askOpts.mode,
		}
		if req.Provider == "" {
			if avail := a.providers.Available(); len(avail) > 0 {
				req.Provider = avail[0].ID
				if req.Model == "" && len(avail[0].Models) > 0 {
					req.Model = avail[0].Models[0].ID
				}
			}
		}
		if askOpts.noSearch {
			off := false
			req.EnableWebSearch = &off
		}

		events, err := a.chat.StreamChat(cmd.Context(), req)
		if err != nil {
			return err
		}

		progress := service.NewProgressLog()
		var final model.StreamEvent
		for ev := range events {
			progress.Observe(ev)
			if askOpts.steps && ev.Type == model.EventStep {
				fmt.Fprintf(os.Stderr, "%s %s %s\n", ev.Step.Status, ev.Step.ID, ev.Step.Detail)
			}
			if ev.Terminal() {
				final = ev
			}
		}
		fmt.Fprintln(os.Stderr, progress.Markdown())

		if final.Type == model.EventError {
			return fmt.Errorf("%s", final.Error)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final.Response)
	},
}

func init() {
	f := askCmd.Flags()
	f.StringVarP(&askOpts.provider, "provider", "p", "", "LLM 供应商 id，默认取第一个可用的")
	f.StringVarP(&askOpts.model, "model", "m", "", "模型 id")
	f.StringVarP(&askOpts.style, "style", "s", "auto", "内容风格")
	f.StringVar(&askOpts.mode, "mode", "auto", "性能模式: auto | comprehensive | optimized")
	f.BoolVar(&askOpts.steps, "steps", false, "实时打印管线步骤")
	f.BoolVar(&askOpts.noSearch, "no-search", false, "禁用网页搜索")
}
