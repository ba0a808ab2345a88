package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"TradeAssistant/pkg/logger"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Log       logger.Config   `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type AppConfig struct {
	Name             string `yaml:"name" default:"trade-assistant"`
	Env              string `yaml:"env" default:"dev"`
	DefaultUserEmail string `yaml:"default_user_email" default:"demo@user.com"`
}

type APIConfig struct {
	Port            string        `yaml:"port" default:"4000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	// 单次存储调用的超时
	StoreTimeout time.Duration `yaml:"store_timeout" default:"5s"`
	// 信号接入接口按 IP 限流，rate_limit 为 0 时关闭
	RateLimit float64 `yaml:"rate_limit" default:"20"`
	RateBurst int     `yaml:"rate_burst" default:"50"`
}

// DatabaseConfig 数据库配置，DSN 与 Host 都为空时使用内存存储
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" default:"5432"`
	User            string        `yaml:"user" default:"postgres"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname" default:"trade_assistant"`
	SSLMode         string        `yaml:"sslmode" default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" default:"25"`
	MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
}

// Enabled 是否配置了数据库
func (d DatabaseConfig) Enabled() bool {
	return d.DSN != "" || d.Host != ""
}

// ConnString 构建连接字符串
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// NATSConfig URL 为空时不发布到消息流
type NATSConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream" default:"TRADES_STREAM"`
	Subject string `yaml:"subject" default:"trades.new"`
}

type SchedulerConfig struct {
	ExpirySpec   string        `yaml:"expiry_spec" default:"@every 60s"`
	StoreTimeout time.Duration `yaml:"store_timeout" default:"10s"`
}

type RealtimeConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// Default 返回默认配置
func Default() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("设置默认配置失败: %v", err))
	}
	return &cfg
}

// LoadConfig 从文件加载配置。path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.API.Port == "" {
		return errors.New("api.port 不能为空")
	}
	if c.App.DefaultUserEmail == "" {
		return errors.New("app.default_user_email 不能为空")
	}
	if c.Scheduler.ExpirySpec == "" {
		return errors.New("scheduler.expiry_spec 不能为空")
	}
	if c.API.StoreTimeout <= 0 || c.Scheduler.StoreTimeout <= 0 {
		return errors.New("存储超时必须大于 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit 不能为负数")
	}
	if c.NATS.URL != "" && (c.NATS.Stream == "" || c.NATS.Subject == "") {
		return errors.New("nats.stream 和 nats.subject 不能为空")
	}
	return nil
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	setString(&config.App.Name, "APP_NAME")
	setString(&config.App.Env, "APP_ENV")
	setString(&config.App.DefaultUserEmail, "DEFAULT_USER_EMAIL")

	// 数据库配置
	setString(&config.Database.DSN, "DATABASE_URL")
	setString(&config.Database.Host, "DB_HOST")
	if env := os.Getenv("DB_PORT"); env != "" {
		if port, err := strconv.Atoi(env); err == nil && port > 0 {
			config.Database.Port = port
		}
	}
	setString(&config.Database.User, "DB_USER")
	setString(&config.Database.Password, "DB_PASSWORD")
	setString(&config.Database.DBName, "DB_NAME")

	// NATS配置
	setString(&config.NATS.URL, "NATS_URL")

	// API配置
	setString(&config.API.Port, "PORT")
	setString(&config.API.Port, "API_PORT")

	setString(&config.Log.Level, "LOG_LEVEL")
	setString(&config.Log.Format, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if env := os.Getenv(key); env != "" {
		*dst = env
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
