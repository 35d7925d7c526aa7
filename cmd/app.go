package main

import (
	"context"
	"fmt"
	"io"

	"a2ui-backend/internal/a2ui"
	"a2ui-backend/internal/analyzer"
	"a2ui-backend/internal/config"
	"a2ui-backend/internal/datasource"
	"a2ui-backend/internal/provider"
	"a2ui-backend/internal/service"
	"a2ui-backend/internal/styles"
	"a2ui-backend/internal/tools"
	"a2ui-backend/pkg/logger"
)

// app 启动时构建的全部只读组件
type app struct {
	cfg       *config.Config
	styles    *styles.Registry
	providers *provider.Registry
	gates     *tools.Gates
	sources   *datasource.Registry
	chat      *service.ChatService
}

// buildApp logOut 非空时日志改写到该输出，ask 命令用它把日志与结果分开
func buildApp(ctx context.Context, path string, logOut io.Writer) (*app, error) {
	// 加载配置
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if logOut != nil {
		logger.SetOutput(logOut)
	}

	p := cfg.Pipeline
	styleRegistry := styles.New(p.DefaultStyle)
	providers := provider.NewRegistry(a2ui.NewRefusalDetector(p.RefusalPhrases), provider.FromConfig(cfg.Providers)...)
	for _, info := range providers.Available() {
		logger.Infof("LLM 供应商可用: %s (%d 个模型)", info.ID, len(info.Models))
	}

	sources, err := datasource.Load(ctx, cfg.DataSources.ConfigPath, p.DataSourceTimeout)
	if err != nil {
		return nil, fmt.Errorf("load data sources: %w", err)
	}

	images, err := tools.NewImagePolicy(p.Images.VisualPatterns, p.Images.NonVisualPatterns)
	if err != nil {
		return nil, fmt.Errorf("image policy: %w", err)
	}

	search := tools.NewTavilyClient(cfg.Search, p.SearchTimeout)
	if !search.Available() {
		logger.Info("未配置 TAVILY_API_KEY，网页搜索不可用")
	}

	gates := tools.NewGates(cfg.Tools)
	for _, s := range gates.States() {
		if s.Locked {
			logger.Infof("工具 %s 被环境锁定为 %v", s.ID, s.Effective)
		}
	}

	chat := service.NewChatService(service.Deps{
		Pipeline:  p,
		Styles:    styleRegistry,
		Providers: providers,
		Analyzer:  analyzer.New(providers, styleRegistry, p.AnalyzerCandidates, p.AnalyzerTimeout),
		Search:    search,
		Sources:   sources,
		Gates:     gates,
		Images:    images,
	})

	return &app{
		cfg:       cfg,
		styles:    styleRegistry,
		providers: providers,
		gates:     gates,
		sources:   sources,
		chat:      chat,
	}, nil
}
