package github

import (
	"os"
	"time"

	configtypes "github.com/weisyn/contribsync/pkg/types"
)

// TokenEnvVar 访问令牌环境变量，优先级高于配置文件
const TokenEnvVar = "GITHUB_TOKEN"

// GitHubOptions 外部贡献数据源配置
type GitHubOptions struct {
	BaseURL    string        `json:"base_url"`    // REST API 地址
	GraphQLURL string        `json:"graphql_url"` // GraphQL 地址
	Token      string        `json:"-"`           // 访问令牌，不输出到任何序列化结果
	Timeout    time.Duration `json:"timeout"`     // 单次请求超时

	// === 重试配置 ===
	MaxAttempts int           `json:"max_attempts"` // 最大尝试次数（含首次）
	BaseDelay   time.Duration `json:"base_delay"`   // 第二次尝试前的等待，之后逐次翻倍

	// === 出站速率 ===
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// Config GitHub配置实现
type Config struct {
	options *GitHubOptions
}

// New 创建GitHub配置实现
func New(userConfig interface{}) *Config {
	options := createDefaultGitHubOptions()

	if userConfig != nil {
		applyUserGitHubConfig(options, userConfig)
	}

	if token := os.Getenv(TokenEnvVar); token != "" {
		options.Token = token
	}

	return &Config{options: options}
}

// NewFromOptions 从GitHubOptions创建配置实现
func NewFromOptions(options *GitHubOptions) *Config {
	return &Config{options: options}
}

func createDefaultGitHubOptions() *GitHubOptions {
	return &GitHubOptions{
		BaseURL:           defaultBaseURL,
		GraphQLURL:        defaultGraphQLURL,
		Timeout:           defaultTimeout,
		MaxAttempts:       defaultMaxAttempts,
		BaseDelay:         defaultBaseDelay,
		RequestsPerSecond: defaultRequestsPerSecond,
		Burst:             defaultBurst,
	}
}

func applyUserGitHubConfig(options *GitHubOptions, userConfig interface{}) {
	gh, ok := userConfig.(*configtypes.UserGitHubConfig)
	if !ok || gh == nil {
		return
	}
	if gh.BaseURL != nil && *gh.BaseURL != "" {
		options.BaseURL = *gh.BaseURL
	}
	if gh.GraphQLURL != nil && *gh.GraphQLURL != "" {
		options.GraphQLURL = *gh.GraphQLURL
	}
	if gh.Token != nil {
		options.Token = *gh.Token
	}
	if gh.TimeoutMs != nil && *gh.TimeoutMs > 0 {
		options.Timeout = time.Duration(*gh.TimeoutMs) * time.Millisecond
	}
	if gh.MaxAttempts != nil && *gh.MaxAttempts > 0 {
		options.MaxAttempts = *gh.MaxAttempts
	}
	if gh.BaseDelayMs != nil && *gh.BaseDelayMs >= 0 {
		options.BaseDelay = time.Duration(*gh.BaseDelayMs) * time.Millisecond
	}
	if gh.RequestsPerSecond != nil && *gh.RequestsPerSecond > 0 {
		options.RequestsPerSecond = *gh.RequestsPerSecond
	}
	if gh.Burst != nil && *gh.Burst > 0 {
		options.Burst = *gh.Burst
	}
}

// GetOptions 获取完整配置
func (c *Config) GetOptions() *GitHubOptions {
	return c.options
}

// HasToken 是否配置了访问令牌
func (c *Config) HasToken() bool {
	return c.options.Token != ""
}
