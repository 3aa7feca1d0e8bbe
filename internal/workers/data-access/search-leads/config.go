package searchleads

import "time"

type Config struct {
	DefaultSize int
	MaxSize     int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultSize: 50,
		MaxSize:     500,
		Timeout:     10 * time.Second,
	}
}
