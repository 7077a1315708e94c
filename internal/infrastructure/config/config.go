package config

import "time"

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Storage выбирает бэкенд хранилища цен: postgres или memory.
	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`

	PostgreSQL struct {
		Host            string        `yaml:"host"`
		Port            int           `yaml:"port"`
		User            string        `yaml:"user"`
		Password        string        `yaml:"password"`
		Database        string        `yaml:"database"`
		SSLMode         string        `yaml:"sslmode"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"postgresql"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Retention struct {
		MaxAge   time.Duration `yaml:"max_age"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"retention"`

	Upstream struct {
		GoldURL        string        `yaml:"gold_url"`
		RatePrimaryURL string        `yaml:"rate_primary_url"`
		RateBackupURL  string        `yaml:"rate_backup_url"`
		DefaultRate    float64       `yaml:"default_rate"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxRetries     int           `yaml:"max_retries"`
		RequestsPerSec int           `yaml:"requests_per_sec"`
	} `yaml:"upstream"`

	Tracker struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"`
		Interval        time.Duration `yaml:"interval"`
		HistoryWindow   time.Duration `yaml:"history_window"`
		HistoryCapacity int           `yaml:"history_capacity"`
		DedupEpsilon    float64       `yaml:"dedup_epsilon"`
		CandleBucket    time.Duration `yaml:"candle_bucket"`
		CandleCapacity  int           `yaml:"candle_capacity"`
		LoadHistory     bool          `yaml:"load_history"`
		TestBasePrice   float64       `yaml:"test_base_price"`
		// TestMetal пусто: симулируем котировку вокруг TestBasePrice.
		TestMetal string `yaml:"test_metal"`
	} `yaml:"tracker"`

	Persistence struct {
		Enabled      bool          `yaml:"enabled"`
		APIBaseURL   string        `yaml:"api_base_url"`
		Workers      int           `yaml:"workers"`
		QueueSize    int           `yaml:"queue_size"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"persistence"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}
