package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Exchange ExchangeConfig
	Bot      BotConfig
	Auth     AuthConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера (статус, метрики, WebSocket для UI)
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к журналу сделок.
// Журнал опционален: при Enabled=false бот работает без БД.
type DatabaseConfig struct {
	Enabled  bool
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ExchangeConfig - настройки доступа к бирже
type ExchangeConfig struct {
	APIKey    string
	APISecret string

	// RequestTimeout - таймаут одного HTTP запроса к бирже
	RequestTimeout time.Duration

	// ClockOffset - фиксированный сдвиг вперёд для заголовка Timestamp.
	// Компенсирует дрейф часов относительно биржи; настоящая синхронизация
	// с серверным временем была бы надёжнее.
	ClockOffset time.Duration
}

// BotConfig - торговые параметры сканера
type BotConfig struct {
	// QuoteCurrency - котируемая валюта всех циклов (первая и последняя нога)
	QuoteCurrency string

	// TakerFee - комиссия тейкера, доля (0.0009 = 0.09%)
	TakerFee float64

	// ProfitThreshold - минимальная ожидаемая доходность для триггера (0.002 = 0.2%)
	ProfitThreshold float64

	// TickerTTL - время жизни кэша тикеров
	TickerTTL time.Duration

	// OrderInterval - минимальная пауза между последовательными ордерами
	// (ограничение пропускной способности REST API биржи)
	OrderInterval time.Duration

	// ScanInterval - пауза между циклами сканирования
	ScanInterval time.Duration

	// FillWait - предельное время ожидания исполнения ордера,
	// FillPollInterval - шаг опроса статуса
	FillWait         time.Duration
	FillPollInterval time.Duration

	// Накопление вторичного актива из прибыли
	AccumPair       string  // пара для покупки (например GT_USDT)
	AccumThreshold  float64 // порог накопленной прибыли на один транш, в котируемой валюте
	AccumTrancheQty float64 // объём одного транша в единицах актива

	// SimStartBalance - стартовый баланс для симуляции при недоступных credentials
	SimStartBalance float64
}

// AuthConfig - защита управляющих endpoints
type AuthConfig struct {
	// ControlTokenHash - bcrypt-хеш токена для POST /api/v1/stop.
	// Пустое значение запрещает управляющие запросы вне development.
	ControlTokenHash string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("DB_ENABLED", false),
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "triarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Exchange: ExchangeConfig{
			APIKey:         getEnv("GATE_API_KEY", ""),
			APISecret:      getEnv("GATE_API_SECRET", ""),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second),
			ClockOffset:    getEnvAsDuration("CLOCK_OFFSET", 1*time.Second),
		},
		Bot: BotConfig{
			QuoteCurrency:   getEnv("QUOTE_CURRENCY", "USDT"),
			TakerFee:        getEnvAsFloat("TAKER_FEE", 0.0009),
			ProfitThreshold: getEnvAsFloat("PROFIT_THRESHOLD", 0.002),
			TickerTTL:       getEnvAsDuration("TICKER_TTL", 500*time.Millisecond),
			OrderInterval:   getEnvAsDuration("ORDER_INTERVAL", 250*time.Millisecond),
			ScanInterval:    getEnvAsDuration("SCAN_INTERVAL", 1*time.Second),

			FillWait:         getEnvAsDuration("FILL_WAIT", 2*time.Second),
			FillPollInterval: getEnvAsDuration("FILL_POLL_INTERVAL", 100*time.Millisecond),

			AccumPair:       getEnv("ACCUM_PAIR", "GT_USDT"),
			AccumThreshold:  getEnvAsFloat("ACCUM_THRESHOLD", 5.0),
			AccumTrancheQty: getEnvAsFloat("ACCUM_TRANCHE_QTY", 2.0),

			SimStartBalance: getEnvAsFloat("SIM_START_BALANCE", 10.0),
		},
		Auth: AuthConfig{
			ControlTokenHash: getEnv("CONTROL_TOKEN_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Enabled && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Bot.TakerFee < 0 || c.Bot.TakerFee >= 1 {
		return fmt.Errorf("TAKER_FEE must be in [0, 1), got %v", c.Bot.TakerFee)
	}

	if c.Bot.ProfitThreshold <= 0 {
		return fmt.Errorf("PROFIT_THRESHOLD must be positive, got %v", c.Bot.ProfitThreshold)
	}

	if c.Bot.TickerTTL <= 0 {
		return fmt.Errorf("TICKER_TTL must be positive, got %v", c.Bot.TickerTTL)
	}

	if c.Bot.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.Bot.ScanInterval)
	}

	if c.Bot.OrderInterval < 0 {
		return fmt.Errorf("ORDER_INTERVAL cannot be negative, got %v", c.Bot.OrderInterval)
	}

	if c.Bot.FillWait <= 0 {
		return fmt.Errorf("FILL_WAIT must be positive, got %v", c.Bot.FillWait)
	}

	if c.Bot.FillPollInterval <= 0 || c.Bot.FillPollInterval > c.Bot.FillWait {
		return fmt.Errorf("FILL_POLL_INTERVAL must be positive and not exceed FILL_WAIT, got %v", c.Bot.FillPollInterval)
	}

	if c.Bot.AccumThreshold <= 0 {
		return fmt.Errorf("ACCUM_THRESHOLD must be positive, got %v", c.Bot.AccumThreshold)
	}

	if c.Bot.AccumTrancheQty <= 0 {
		return fmt.Errorf("ACCUM_TRANCHE_QTY must be positive, got %v", c.Bot.AccumTrancheQty)
	}

	if c.Bot.SimStartBalance <= 0 {
		return fmt.Errorf("SIM_START_BALANCE must be positive, got %v", c.Bot.SimStartBalance)
	}

	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.Exchange.RequestTimeout)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
