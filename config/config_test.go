package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: a-secret-that-is-long-enough
analytics:
  trend_months: 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际: %d", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 12*time.Hour {
		t.Errorf("期望默认 TTL 12h，实际: %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Analytics.TrendMonths != 3 {
		t.Errorf("期望配置文件覆盖 trend_months=3，实际: %d", cfg.Analytics.TrendMonths)
	}
	if cfg.Analytics.SessionScale["excellent"] != 4 || cfg.Analytics.InstructorScale["excellent"] != 5 {
		t.Errorf("默认评分换算表不符: %v %v", cfg.Analytics.SessionScale, cfg.Analytics.InstructorScale)
	}
	if cfg.RateLimit.SubmitWindow != time.Minute {
		t.Errorf("期望默认限流窗口 1m，实际: %v", cfg.RateLimit.SubmitWindow)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: a-secret-that-is-long-enough
`)
	t.Setenv("EVAL_SERVER_PORT", "9090")
	t.Setenv("EVAL_ANALYTICS_TIMEZONE", "Africa/Addis_Ababa")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望环境变量覆盖端口为 9090，实际: %d", cfg.Server.Port)
	}
	loc, err := cfg.Analytics.Location()
	if err != nil || loc.String() != "Africa/Addis_Ababa" {
		t.Errorf("时区不符: %v, %v", loc, err)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("缺少 jwt_secret 应报错，实际: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "a-secret-that-is-long-enough"},
		Analytics: AnalyticsConfig{
			SessionScale:    map[string]float64{"excellent": 4, "very_good": 3, "good": 2, "needs_improvement": 1},
			InstructorScale: map[string]float64{"excellent": 5, "very_good": 4, "good": 3, "needs_improvement": 2},
			TrendMonths:     6,
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"missing scale key", func(c *Config) { delete(c.Analytics.SessionScale, "good") }, "session_scale"},
		{"zero scale value", func(c *Config) { c.Analytics.InstructorScale["excellent"] = 0 }, "instructor_scale"},
		{"trend months", func(c *Config) { c.Analytics.TrendMonths = 0 }, "trend_months"},
		{"bad timezone", func(c *Config) { c.Analytics.Timezone = "Mars/Olympus" }, "timezone"},
		{"weak admin password", func(c *Config) {
			c.Auth.BootstrapAdmin = BootstrapAdminConfig{Email: "a@b.c", Password: "short"}
		}, "bootstrap_admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("期望包含 %q 的错误，实际: %v", tc.want, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable", Timezone: "UTC"}
	want := "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC"
	if got := c.DSN(); got != want {
		t.Errorf("DSN 不符:\n期望 %s\n实际 %s", want, got)
	}
}
