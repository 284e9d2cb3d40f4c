package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"

	"persona-chat-api/internal/apperr"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// OpenAI 出站网关配置。必填项启动时校验一次（Validate），
// 不在调用点按字符串 key 现查。
type OpenAI struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	TimeoutSec  int     `mapstructure:"timeout_sec"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Chat 编排相关配置
type Chat struct {
	DataDir      string `mapstructure:"data_dir"`      // 训练文本/上传图片落盘目录
	HistoryLimit int    `mapstructure:"history_limit"` // LLM 上下文条数上限
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Redis  Redis  `mapstructure:"redis"`
	OpenAI OpenAI `mapstructure:"openai"`
	Chat   Chat   `mapstructure:"chat"`
}

func Load(path string) *Config {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("read config: %v", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}

// Validate 启动时一次性检查必填项，缺了就报 ConfigMissing/ConfigEmpty，
// 不带默认值静默跑。
func (c *Config) Validate() error {
	required := []struct{ key, val string }{
		{"db.dsn", c.DB.DSN},
		{"jwt.secret", c.JWT.Secret},
		{"openai.base_url", c.OpenAI.BaseURL},
		{"openai.api_key", c.OpenAI.APIKey},
	}
	for _, r := range required {
		if r.val == "" {
			return apperr.Newf(apperr.KindConfigMissing, "required setting %q is missing", r.key)
		}
		if strings.TrimSpace(r.val) == "" {
			return apperr.Newf(apperr.KindConfigEmpty, "required setting %q is empty", r.key)
		}
	}
	return nil
}
