package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config — корневая структура конфигурации приложения.
type Config struct {
	World    WorldConfig    `yaml:"world"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Server   ServerConfig   `yaml:"server"`
}

type WorldConfig struct {
	Seed      int64  `yaml:"seed"`
	ChunkEdge int64  `yaml:"chunk_edge"`
	Workers   int    `yaml:"workers"`
	Generator string `yaml:"generator"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type ServerConfig struct {
	MetricsPort int `yaml:"metrics_port"`
}

// GetSeed возвращает сид мира с поддержкой fallback значений
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if envVal := os.Getenv("WORLD_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 42
}

// GetChunkEdge возвращает ребро чанка (степень двойки)
func (w *WorldConfig) GetChunkEdge() int64 {
	if w.ChunkEdge > 0 {
		return w.ChunkEdge
	}
	if envVal := os.Getenv("WORLD_CHUNK_EDGE"); envVal != "" {
		if edge, err := strconv.ParseInt(envVal, 10, 64); err == nil && edge > 0 {
			return edge
		}
	}
	return 32
}

// GetWorkers возвращает число воркеров генерации (0 — по числу CPU)
func (w *WorldConfig) GetWorkers() int {
	if w.Workers > 0 {
		return w.Workers
	}
	if envVal := os.Getenv("WORLD_WORKERS"); envVal != "" {
		if n, err := strconv.Atoi(envVal); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// GetGenerator возвращает имя генератора чанков (heightmap, cubic, noise3d)
func (w *WorldConfig) GetGenerator() string {
	if w.Generator != "" {
		return w.Generator
	}
	if envVal := os.Getenv("WORLD_GENERATOR"); envVal != "" {
		return envVal
	}
	return "heightmap"
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "WORLD_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV WORLD_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WORLD_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
