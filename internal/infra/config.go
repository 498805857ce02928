package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всей платформы.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Camera      CameraConfig      `mapstructure:"camera"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Plate       PlateConfig       `mapstructure:"plate"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и L2-кэш номеров).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig содержит пути к RSA ключам и настройки JWT.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"` // Только для Console API
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	PublicKey      []byte
	PrivateKey     []byte
}

// CameraConfig — источник кадров (snapshot-эндпоинт камеры).
type CameraConfig struct {
	SnapshotURL string        `mapstructure:"snapshot_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RecognitionConfig — пороги сверки лиц и каталог неопознанных снимков.
// Дистанция: чем меньше, тем увереннее совпадение.
type RecognitionConfig struct {
	ServiceURL          string        `mapstructure:"service_url"` // CV-sidecar (детекция/сверка/обучение)
	ServiceTimeout      time.Duration `mapstructure:"service_timeout"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"` // Строго меньше — KNOWN
	PoorMatchThreshold  float64       `mapstructure:"poor_match_threshold"` // Строго больше — снимок в UnknownFaces
	SamplesPerFace      int           `mapstructure:"samples_per_face"`
	UnknownFacesDir     string        `mapstructure:"unknown_faces_dir"`
}

// PlateConfig — настройки распознавания номеров (внешний vision-сервис).
type PlateConfig struct {
	APIEndpoint  string        `mapstructure:"api_endpoint"`
	APIKey       string        `mapstructure:"api_key"`
	CacheTimeout time.Duration `mapstructure:"cache_timeout"` // Окно переиспользования извлечений
	CallTimeout  time.Duration `mapstructure:"call_timeout"`  // Предел на один вызов (fail-safe)

	// Настройки Circuit Breaker для vision-сервиса
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	RateLimit     float64       `mapstructure:"rate_limit"` // Запросов в секунду к вендору
	RateBurst     int           `mapstructure:"rate_burst"`
}

// MonitoringConfig — параметры сессии мониторинга ворот.
type MonitoringConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	FrameInterval   time.Duration `mapstructure:"frame_interval"` // Каденс обработки кадров
}

// AuditConfig настраивает буфер журнала попыток.
type AuditConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Загрузка ключей из Файла ИЛИ из ENV
	// Сначала проверяем, не лежит ли сам PEM-ключ в ENV (для Docker/K8s)
	// Если нет — читаем файл по указанному пути
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")
	cfg.Auth.PrivateKey = loadKeyResource(cfg.Auth.PrivateKeyPath, "AUTH_PRIVATE_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")

	v.SetDefault("camera.snapshot_url", "http://localhost:8091/snapshot")
	v.SetDefault("camera.timeout", 3*time.Second)

	// Пороги распознавания — значения из эксплуатации исходной системы
	v.SetDefault("recognition.service_url", "http://localhost:8090")
	v.SetDefault("recognition.service_timeout", 5*time.Second)
	v.SetDefault("recognition.confidence_threshold", 50.0)
	v.SetDefault("recognition.poor_match_threshold", 75.0)
	v.SetDefault("recognition.samples_per_face", 60)
	v.SetDefault("recognition.unknown_faces_dir", "./dataset/UnknownFaces")

	v.SetDefault("plate.cache_timeout", 60*time.Second)
	v.SetDefault("plate.call_timeout", 10*time.Second)
	v.SetDefault("plate.cb_max_requests", 3)
	v.SetDefault("plate.cb_interval", 5*time.Second)
	v.SetDefault("plate.cb_timeout", 30*time.Second)
	v.SetDefault("plate.rate_limit", 5.0)
	v.SetDefault("plate.rate_burst", 2)

	v.SetDefault("monitoring.default_duration", 20*time.Second)
	v.SetDefault("monitoring.frame_interval", 500*time.Millisecond)

	v.SetDefault("audit.buffer_size", 10000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 500*time.Millisecond)
}

// loadKeyResource — универсальный хелпер архитектора
func loadKeyResource(path string, envDataKey string) []byte {
	// Если ключ прилетел напрямую в ENV (Base64 или PEM)
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	// Иначе читаем файл по пути из конфига
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
