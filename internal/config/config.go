// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// GatewayConfig 存储上游 AI 网关的配置。APIKey 只在服务端持有。
type GatewayConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig 控制会话调用模型时的可选行为。
type LLMConfig struct {
	CountTokens bool `mapstructure:"count_tokens"`
}

// SessionConfig 存储游戏会话存储与令牌的配置。
type SessionConfig struct {
	Store       string        `mapstructure:"store"` // "memory" 或 "redis"
	TTL         time.Duration `mapstructure:"ttl"`
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CORSConfig 存储浏览器跨域访问的配置。
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig 限制代理接口的访问频率（按客户端 IP）。
type RateLimitConfig struct {
	Rate  time.Duration `mapstructure:"rate"`
	Limit uint          `mapstructure:"limit"`
}

const envPrefix = "STORYFORGE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("gateway.base_url", "https://api.gatewayz.ai/v1")
	v.SetDefault("gateway.timeout", 2*time.Minute)
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.token_ttl", 24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit.rate", time.Minute)
	v.SetDefault("rate_limit.limit", 60)

	// 没有默认值的键也要登记，否则 Unmarshal 看不到只由环境变量提供的值
	v.SetDefault("log.output_path", "")
	v.SetDefault("gateway.api_key", "")
	v.SetDefault("llm.count_tokens", false)
	v.SetDefault("session.token_secret", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load 从指定路径读取 YAML 配置，并允许环境变量覆盖。
// configPath 为空时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 与前端项目保持一致的网关密钥变量名
	if err := v.BindEnv("gateway.api_key", envPrefix+"_GATEWAY_API_KEY", "GATEWAYZ_API_KEY"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Validate 在启动时检查必需的配置项，缺失时应立即终止进程。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Gateway.APIKey) == "" {
		errs = append(errs, errors.New("gateway.api_key (GATEWAYZ_API_KEY) is not configured"))
	}
	if strings.TrimSpace(c.Session.TokenSecret) == "" {
		errs = append(errs, errors.New("session.token_secret is not configured"))
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when session.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported session.store %q", c.Session.Store))
	}
	return errors.Join(errs...)
}
