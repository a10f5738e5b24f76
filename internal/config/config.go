package config

import (
	"io/ioutil"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Ядро мира потребляет конфигурацию, но не изменяет её.

type Config struct {
	World   WorldConfig   `yaml:"world"`
	Workers WorkersConfig `yaml:"workers"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type WorldConfig struct {
	Seed         int64 `yaml:"seed"`
	ChunkEdge    int   `yaml:"chunk_edge"`     // Ребро чанка, степень двойки
	HeightChunks int   `yaml:"height_chunks"`  // Высота мира в чанках
	LoadRadius   int   `yaml:"load_radius"`    // Радиус загрузки (Чебышёв, в чанках)
	UnloadMargin int   `yaml:"unload_margin"`  // Гистерезис выгрузки, в чанках
	SeaLevel     int   `yaml:"sea_level"`      // Уровень моря в блоках
}

type WorkersConfig struct {
	PoolSize      int `yaml:"pool_size"`       // Размер пула фоновых воркеров
	OpsPerTick    int `yaml:"ops_per_tick"`    // Бюджет операций генерации/мешинга на тик
	AutosaveTicks int `yaml:"autosave_ticks"`  // Период автосохранения в тиках
}

type StorageConfig struct {
	DataPath string `yaml:"data_path"`
}

type MetricsConfig struct {
	Port int `yaml:"port"`
}

// GetSeed возвращает сид мира с поддержкой fallback значений
func (w *WorldConfig) GetSeed() int64 {
	if w.Seed != 0 {
		return w.Seed
	}
	if envVal := os.Getenv("GAME_WORLD_SEED"); envVal != "" {
		if seed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
			return seed
		}
	}
	return 1337
}

// GetChunkEdge возвращает ребро чанка (по умолчанию 32)
func (w *WorldConfig) GetChunkEdge() int {
	if w.ChunkEdge > 0 && isPowerOfTwo(w.ChunkEdge) {
		return w.ChunkEdge
	}
	return 32
}

// GetHeightChunks возвращает высоту мира в чанках (по умолчанию 8)
func (w *WorldConfig) GetHeightChunks() int {
	if w.HeightChunks > 0 {
		return w.HeightChunks
	}
	return 8
}

// GetLoadRadius возвращает радиус загрузки в чанках (по умолчанию 8)
func (w *WorldConfig) GetLoadRadius() int {
	if w.LoadRadius > 0 {
		return w.LoadRadius
	}
	return 8
}

// GetUnloadMargin возвращает запас гистерезиса выгрузки (по умолчанию 2)
func (w *WorldConfig) GetUnloadMargin() int {
	if w.UnloadMargin > 0 {
		return w.UnloadMargin
	}
	return 2
}

// GetSeaLevel возвращает уровень моря (по умолчанию 64)
func (w *WorldConfig) GetSeaLevel() int {
	if w.SeaLevel > 0 {
		return w.SeaLevel
	}
	return 64
}

// GetPoolSize возвращает размер пула воркеров (по умолчанию 4)
func (w *WorkersConfig) GetPoolSize() int {
	if w.PoolSize > 0 {
		return w.PoolSize
	}
	return 4
}

// GetOpsPerTick возвращает бюджет операций на тик (по умолчанию 15)
func (w *WorkersConfig) GetOpsPerTick() int {
	if w.OpsPerTick > 0 {
		return w.OpsPerTick
	}
	return 15
}

// GetAutosaveTicks возвращает период автосохранения (по умолчанию 10 минут при 60 TPS)
func (w *WorkersConfig) GetAutosaveTicks() int {
	if w.AutosaveTicks > 0 {
		return w.AutosaveTicks
	}
	return 36000
}

// GetDataPath возвращает путь к данным с приоритетом: config -> env -> default
func (s *StorageConfig) GetDataPath() string {
	if s.DataPath != "" {
		return s.DataPath
	}
	if envVal := os.Getenv("GAME_DATA_PATH"); envVal != "" {
		return envVal
	}
	return "data"
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "GAME_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

func isPowerOfTwo(x int) bool {
	return x > 0 && x&(x-1) == 0
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV GAME_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
