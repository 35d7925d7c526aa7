package model

// ChatTurn 调用方提供的一轮对话
type ChatTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"max=10000"`
}

type UserLocation struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label,omitempty"`
}

// DataContextItem 被动模式下由调用方预先取好的数据
type DataContextItem struct {
	Source string `json:"source" binding:"required,max=100"`
	Label  string `json:"label,omitempty" binding:"max=200"`
	Data   any    `json:"data"`
}

// ChatRequest POST /api/chat 请求体
type ChatRequest struct {
	Message            string            `json:"message" binding:"required,max=10000"`
	Provider           string            `json:"provider" binding:"max=50"`
	Model              string            `json:"model" binding:"max=100"`
	History            []ChatTurn        `json:"history" binding:"max=50,dive"`
	EnableWebSearch    *bool             `json:"enableWebSearch,omitempty"`
	EnableGeolocation  *bool             `json:"enableGeolocation,omitempty"`
	EnableDataSources  *bool             `json:"enableDataSources,omitempty"`
	EnableHistory      *bool             `json:"enableHistory,omitempty"`
	EnableAIClassifier *bool             `json:"enableAiClassifier,omitempty"`
	UserLocation       *UserLocation     `json:"userLocation,omitempty"`
	DataContext        []DataContextItem `json:"dataContext,omitempty" binding:"omitempty,dive"`
	ContentStyle       string            `json:"contentStyle" binding:"max=30"`
	PerformanceMode    string            `json:"performanceMode" binding:"max=30"`
}

// DataSourceQuery 分析器建议的主动数据源查询
type DataSourceQuery struct {
	Source   string         `json:"source"`
	Endpoint string         `json:"endpoint,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
	Method   string         `json:"method,omitempty"`
}

// AnalysisResult 意图分析结果
type AnalysisResult struct {
	Style       string            `json:"style"`
	Search      bool              `json:"search"`
	Location    bool              `json:"location"`
	SearchQuery string            `json:"search_query,omitempty"`
	DataSources []DataSourceQuery `json:"data_sources,omitempty"`
}
