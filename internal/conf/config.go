package conf

import (
	"os"
	"strings"
	"time"

	"github.com/PNikhileswar/neurapress/pkg/config"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Mongo         config.MongoConfig  `mapstructure:"mongo"`
	Redis         config.RedisConfig  `mapstructure:"redis"`
	Stats         StatsConfig         `mapstructure:"stats"`
	Matcher       MatcherConfig       `mapstructure:"matcher"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Trending      TrendingConfig      `mapstructure:"trending"`
	Storage       config.Upload       `mapstructure:"storage"`
	ContentFilter ContentFilterConfig `mapstructure:"content_filter"`
	Jobs          []JobConfig         `mapstructure:"jobs"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AdminToken     string   `mapstructure:"admin_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	GinMode        string   `mapstructure:"gin_mode"`
}

// StatsConfig 统计缓存配置
type StatsConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	FingerprintCheck bool          `mapstructure:"fingerprint_check"`
	// Distributed 为 true 时通过 Redis 频道广播失效事件
	Distributed bool `mapstructure:"distributed"`
}

// MatcherConfig 话题去重配置
type MatcherConfig struct {
	CutoffDays       int           `mapstructure:"cutoff_days"`
	OverlapThreshold float64       `mapstructure:"overlap_threshold"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
}

// LLMConfig 文章生成模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // langchain / openai
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// TrendingConfig 热门话题来源
type TrendingConfig struct {
	Feeds       []FeedConfig  `mapstructure:"feeds"`
	Topics      []TopicConfig `mapstructure:"topics"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	MaxArticles int           `mapstructure:"max_articles"`
}

type FeedConfig struct {
	Name     string `mapstructure:"name"`
	URL      string `mapstructure:"url"`
	Category string `mapstructure:"category"`
}

type TopicConfig struct {
	Title    string   `mapstructure:"title"`
	Category string   `mapstructure:"category"`
	Keywords []string `mapstructure:"keywords"`
}

// ContentFilterConfig 敏感词过滤，Words 与 DictPath 可同时使用
type ContentFilterConfig struct {
	Words    []string `mapstructure:"words"`
	DictPath string   `mapstructure:"dict_path"`
}

type JobConfig struct {
	Name   string                 `mapstructure:"name"`
	Cron   string                 `mapstructure:"cron"`
	Enable bool                   `mapstructure:"enable"`
	Params map[string]interface{} `mapstructure:"params"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "neurapress")
	v.SetDefault("mongo.connect_timeout", "10s")
	v.SetDefault("stats.ttl", "5m")
	v.SetDefault("matcher.cutoff_days", 7)
	v.SetDefault("matcher.lock_ttl", "10m")
	v.SetDefault("llm.provider", "langchain")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", "5m")
	v.SetDefault("trending.max_age", "24h")
	v.SetDefault("trending.max_articles", 3)
}

// LoadConfig 加载配置，path 为空时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("NEURAPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 自动读取环境变量，如 NEURAPRESS_MONGO_URI

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// 显式展开 YAML 中的 ${VAR}
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.Contains(val, "${") {
			v.Set(key, os.ExpandEnv(val))
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	applyFallbacks(&c)
	return &c, nil
}

// applyFallbacks ${VAR} 展开为空时回退到默认值
func applyFallbacks(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = "mongodb://localhost:27017"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "neurapress"
	}
	if c.Stats.TTL <= 0 {
		c.Stats.TTL = 5 * time.Minute
	}
	if c.Matcher.CutoffDays < 0 {
		c.Matcher.CutoffDays = 0
	}
}
