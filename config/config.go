package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // analytics.timezone 在无系统时区库的镜像中也可解析

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（为空地址时视为未启用）
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	EventsChannel string `mapstructure:"events_channel"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string               `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration        `mapstructure:"access_token_ttl"`
	Cookie         CookieConfig         `mapstructure:"cookie"`
	BootstrapAdmin BootstrapAdminConfig `mapstructure:"bootstrap_admin"`
}

// CookieConfig Cookie 安全配置
type CookieConfig struct {
	Name     string `mapstructure:"name"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// BootstrapAdminConfig 启动时确保存在的管理员账号
// Email 为空时跳过
type BootstrapAdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AnalyticsConfig 统计分析配置
type AnalyticsConfig struct {
	// 场次维度与讲师维度各自的评分换算表（rating 枚举 → 分值）
	SessionScale     map[string]float64 `mapstructure:"session_scale"`
	InstructorScale  map[string]float64 `mapstructure:"instructor_scale"`
	TrendMonths      int                `mapstructure:"trend_months"`
	FetchConcurrency int                `mapstructure:"fetch_concurrency"`
	Timezone         string             `mapstructure:"timezone"`
}

// Location 解析统计使用的时区，未配置时使用 UTC
func (c *AnalyticsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// CatalogConfig 题库配置
type CatalogConfig struct {
	Path string `mapstructure:"path"` // 为空时使用内置题库
}

// RateLimitConfig 公开提交接口的限流配置
type RateLimitConfig struct {
	SubmitLimit  int           `mapstructure:"submit_limit"`
	SubmitWindow time.Duration `mapstructure:"submit_window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值；.env 文件（若存在）先注入进程环境
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("读取 .env 文件失败: %w", err)
	}

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "training_eval")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.events_channel", "auth:events")

	v.SetDefault("auth.access_token_ttl", "12h")
	v.SetDefault("auth.cookie.name", "access_token")
	v.SetDefault("auth.cookie.secure", false)
	v.SetDefault("auth.cookie.same_site", "Lax")
	v.SetDefault("auth.bootstrap_admin.name", "Administrator")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("analytics.session_scale", map[string]float64{
		"excellent": 4, "very_good": 3, "good": 2, "needs_improvement": 1,
	})
	v.SetDefault("analytics.instructor_scale", map[string]float64{
		"excellent": 5, "very_good": 4, "good": 3, "needs_improvement": 2,
	})
	v.SetDefault("analytics.trend_months", 6)
	v.SetDefault("analytics.fetch_concurrency", 8)
	v.SetDefault("analytics.timezone", "UTC")

	v.SetDefault("rate_limit.submit_limit", 20)
	v.SetDefault("rate_limit.submit_window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("EVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if err := validateScale("analytics.session_scale", c.Analytics.SessionScale); err != nil {
		return err
	}
	if err := validateScale("analytics.instructor_scale", c.Analytics.InstructorScale); err != nil {
		return err
	}
	if c.Analytics.TrendMonths <= 0 {
		return fmt.Errorf("配置校验失败: analytics.trend_months 必须为正数")
	}
	if _, err := c.Analytics.Location(); err != nil {
		return fmt.Errorf("配置校验失败: analytics.timezone 无效: %w", err)
	}
	if c.Auth.BootstrapAdmin.Email != "" && len(c.Auth.BootstrapAdmin.Password) < 8 {
		return fmt.Errorf("配置校验失败: auth.bootstrap_admin.password 长度不能少于 8 字符")
	}
	return nil
}

var ratingKeys = []string{"excellent", "very_good", "good", "needs_improvement"}

// validateScale 四个评分档位都必须有正分值
func validateScale(key string, scale map[string]float64) error {
	for _, k := range ratingKeys {
		v, ok := scale[k]
		if !ok {
			return fmt.Errorf("配置校验失败: %s 缺少 %s", key, k)
		}
		if v <= 0 {
			return fmt.Errorf("配置校验失败: %s.%s 必须为正数", key, k)
		}
	}
	return nil
}
