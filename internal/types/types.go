// Package types defines the configuration and error types shared by the
// transcoding pipeline.
package types

// Config 应用配置
type Config struct {
	// 翻译服务
	Service       string `json:"service"` // "openai" 或 "http"
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"` // OpenAI 兼容 API 的 Base URL
	OpenAIModel   string `json:"openai_model"`
	HTTPEndpoint  string `json:"http_endpoint"` // JSON 翻译服务地址 (service=http)
	SourceLang    string `json:"source_lang"`
	TargetLang    string `json:"target_lang"`

	// 并发与重试
	Workers      int `json:"workers"`        // 每页段落翻译并发数，默认 1
	MaxAttempts  int `json:"max_attempts"`   // 每段最大尝试次数，默认 3
	RetryDelayMs int `json:"retry_delay_ms"` // 固定重试间隔（毫秒）

	// 排版
	FormulaFontPattern string  `json:"formula_font_pattern"` // 额外的公式字体正则
	FallbackFontPath   string  `json:"fallback_font_path"`   // 覆盖内置回退字体 (TTF)
	BodyFont           string  `json:"body_font"`            // 标准 14 字体名
	LineSpacing        float64 `json:"line_spacing"`         // 重排行距倍数
	MinFontSize        float64 `json:"min_font_size"`        // 重排最小字号
	ReflowMaxIter      int     `json:"reflow_max_iter"`
	HyphenationDir     string  `json:"hyphenation_dir"` // hyph-<lang>.pat.txt 所在目录，空则按字素断词

	// 版面分析
	LayoutModelPath  string  `json:"layout_model_path"`  // ONNX 模型，空则不做区域分类
	ONNXRuntimePath  string  `json:"onnx_runtime_path"`  // onnxruntime 共享库
	LayoutConfidence float64 `json:"layout_confidence"`

	CachePath string `json:"cache_path"` // 翻译缓存 JSON，空则不缓存
	LogLevel  string `json:"log_level"`
	Debug     bool   `json:"debug"` // 重排时绘制块边框
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit ErrorCode = "API_RATE_LIMIT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrFont         ErrorCode = "FONT_ERROR"
	ErrLayoutModel  ErrorCode = "LAYOUT_MODEL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
