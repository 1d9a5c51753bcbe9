package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      string
	AppName  string
}

type LoggingConfig struct {
	Level string
}

type WorkerConfig struct {
	Environment string
	Redis       RedisConfig
	Queue       QueueConfig
	Mail        MailConfig
	Logging     LoggingConfig
}

func LoadWorker() (*WorkerConfig, error) {
	v := viper.New()
	v.SetConfigName("worker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../../config")
	v.SetEnvPrefix("CONTENTGATE_WORKER")
	v.AutomaticEnv()

	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("queue.stream", "notifications")
	v.SetDefault("queue.group", "notification-workers")
	v.SetDefault("queue.consumer", "worker-1")
	v.SetDefault("queue.visibilitytimeout", "2m")
	v.SetDefault("queue.claiminterval", "10s")

	v.SetDefault("mail.host", "127.0.0.1")
	v.SetDefault("mail.port", 1025)
	v.SetDefault("mail.from", "no-reply@contentgate.local")
	v.SetDefault("mail.tls", "opportunistic")
	v.SetDefault("mail.appname", "ContentGate")

	v.SetDefault("logging.level", "info")
}
