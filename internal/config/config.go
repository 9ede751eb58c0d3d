package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	MaxRooms          int           `mapstructure:"max_rooms"`
	MaxPlayersPerRoom int           `mapstructure:"max_players_per_room"`
	SendRetries       int           `mapstructure:"send_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
}

// Load 从指定路径加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("app.name", "sedma-server")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("server.addr", "0.0.0.0:65432")
	viper.SetDefault("server.max_rooms", 5)
	viper.SetDefault("server.max_players_per_room", 4)
	viper.SetDefault("server.send_retries", 2)
	viper.SetDefault("server.retry_delay", 100*time.Millisecond)
	viper.SetDefault("server.tick_interval", 100*time.Millisecond)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回默认配置（无配置文件的测试场景使用）
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "sedma-server",
			LogLevel: "info",
		},
		Server: ServerConfig{
			Addr:              "0.0.0.0:65432",
			MaxRooms:          5,
			MaxPlayersPerRoom: 4,
			SendRetries:       2,
			RetryDelay:        100 * time.Millisecond,
			TickInterval:      100 * time.Millisecond,
		},
	}
}
