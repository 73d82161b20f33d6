package config

import "time"

// MongoConfig MongoDB 连接配置
type MongoConfig struct {
	URI            string        `mapstructure:"uri" json:"uri"`
	Database       string        `mapstructure:"database" json:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size" json:"max_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
}

// RedisConfig Redis 连接配置，Addr 为空表示不启用 Redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// Upload 本地归档存储配置
type Upload struct {
	BasePath string `mapstructure:"base_path" json:"base_path"` // 本地存储路径，如 ./data/archive
	BaseURL  string `mapstructure:"base_url" json:"base_url"`   // 访问URL，如 http://localhost:8080/archive
}

// Enabled 是否配置了归档目录
func (u Upload) Enabled() bool {
	return u.BasePath != ""
}
