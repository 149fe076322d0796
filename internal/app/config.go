package app

import "os"

// Config описывает минимальные настройки запуска приложения.
type Config struct {
	APIAddr     string
	MetricsAddr string
	// DatabaseURL пустой — работаем на in-memory хранилищах.
	DatabaseURL string
	// KafkaBrokers пустой — outbox-воркер не запускается.
	KafkaBrokers string
	// CloudBackupMock включает mock-реализацию облачной синхронизации.
	CloudBackupMock bool
}

// DefaultConfig возвращает базовые адреса API и HTTP-метрик.
func DefaultConfig() Config {
	return Config{
		APIAddr:     ":8080",
		MetricsAddr: ":9090",
	}
}

// ConfigFromEnv собирает конфигурацию из переменных окружения
// поверх значений по умолчанию.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("POS_API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("POS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	cfg.CloudBackupMock = os.Getenv("POS_CLOUD_BACKUP") == "mock"
	return cfg
}
