package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
		// Канал, подписка на который обязательна для получения сигналов
		Channel         string `yaml:"channel"`
		ChannelRequired bool   `yaml:"channel_required"`
	} `yaml:"telegram"`
	DB     string `yaml:"db_dsn"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Какие пары анализируем на каждом тике
	Pairs    []string `yaml:"pairs"`
	OTCPairs []string `yaml:"otc_pairs"`

	// Аналитика
	SMAShort   int `yaml:"sma_short"`   // окно короткой SMA (обычно 10)
	SMALong    int `yaml:"sma_long"`    // окно длинной SMA (обычно 20)
	MinSamples int `yaml:"min_samples"` // меньше — InsufficientData

	// strict — строгая цепочка price>sma10>sma20, majority — 2 из 3 условий
	AnalysisMode string `yaml:"analysis_mode"`
	// Веса и усиление для confidence (см. analysis/service)
	WeightPrice    float64 `yaml:"weight_price"`
	WeightTrend    float64 `yaml:"weight_trend"`
	SeparationGain float64 `yaml:"separation_gain"`

	// Сигналы
	MinConfidence     float64        `yaml:"min_confidence"`     // ниже — сигнал не создаём
	PremiumConfidence float64        `yaml:"premium_confidence"` // выше — сигнал премиальный
	ExpiryMinutes     int            `yaml:"expiry_minutes"`
	ExpiryByPair      map[string]int `yaml:"expiry_by_pair"` // переопределение по паре
	StopPct           float64        `yaml:"stop_pct"`       // расстояние SL от цены, напр. 0.5 => 0.5%
	TakeProfitPct     float64        `yaml:"take_profit_pct"`

	// Доставка. yaml.v2 duration-строки не понимает, поэтому в yaml
	// длительности задаются целыми секундами (*_seconds), а env-переменные
	// (COOLDOWN_WINDOW и далее) принимают обычный duration-формат.
	CooldownSeconds    int `yaml:"cooldown_seconds"`
	SubRecheckSeconds  int `yaml:"sub_recheck_seconds"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`

	CooldownWindow   time.Duration
	SubRecheck       time.Duration
	SendTimeout      time.Duration
	SendConcurrency  int    `yaml:"send_concurrency"`   // параллелизм фан-аута
	BroadcastCron    string `yaml:"broadcast_schedule"` // robfig/cron spec
	BroadcastEnabled bool   `yaml:"broadcast_enabled"`

	// Графики
	ChartDir string `yaml:"chart_dir"`

	// Источник цен: sim | stream
	PriceSource string `yaml:"price_source"`
	PriceWSURL  string `yaml:"price_ws_url"`
	SeriesLen   int    `yaml:"series_len"` // сколько точек запрашиваем у источника
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		SMAShort:   intFromEnv("SMA_SHORT", 10),
		SMALong:    intFromEnv("SMA_LONG", 20),
		MinSamples: intFromEnv("MIN_SAMPLES", 20),

		AnalysisMode:   getenvDefault("ANALYSIS_MODE", "strict"),
		WeightPrice:    floatFromEnv("WEIGHT_PRICE", 0.6),
		WeightTrend:    floatFromEnv("WEIGHT_TREND", 0.4),
		SeparationGain: floatFromEnv("SEPARATION_GAIN", 250),

		MinConfidence:     floatFromEnv("MIN_CONFIDENCE", 0.7),
		PremiumConfidence: floatFromEnv("PREMIUM_CONFIDENCE", 0.85),
		ExpiryMinutes:     intFromEnv("EXPIRY_MINUTES", 5),
		StopPct:           floatFromEnv("STOP_PCT", 0.5),
		TakeProfitPct:     floatFromEnv("TAKE_PROFIT_PCT", 1.0),

		CooldownWindow:  durationFromEnv("COOLDOWN_WINDOW", "300s"),
		SubRecheck:      durationFromEnv("SUB_RECHECK", "1h"),
		SendTimeout:     durationFromEnv("SEND_TIMEOUT", "10s"),
		SendConcurrency: intFromEnv("SEND_CONCURRENCY", 4),
		BroadcastCron:   getenvDefault("BROADCAST_SCHEDULE", "*/15 * * * *"),

		ChartDir: getenvDefault("CHART_DIR", os.TempDir()),

		PriceSource: getenvDefault("PRICE_SOURCE", "sim"),
		SeriesLen:   intFromEnv("SERIES_LEN", 30),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	// Секунды из yaml имеют приоритет над env-значениями.
	if config.CooldownSeconds > 0 {
		config.CooldownWindow = time.Duration(config.CooldownSeconds) * time.Second
	}
	if config.SubRecheckSeconds > 0 {
		config.SubRecheck = time.Duration(config.SubRecheckSeconds) * time.Second
	}
	if config.SendTimeoutSeconds > 0 {
		config.SendTimeout = time.Duration(config.SendTimeoutSeconds) * time.Second
	}

	return &config, nil
}

// AnalysisModeEffective — режим анализа после нормализации: всё,
// что не "majority", трактуется как "strict".
func (c *Config) AnalysisModeEffective() string {
	if c.AnalysisMode == "majority" {
		return "majority"
	}
	return "strict"
}

// ExpiryFor — минуты экспирации с учётом переопределения по паре.
func (c *Config) ExpiryFor(pair string) int {
	if m, ok := c.ExpiryByPair[pair]; ok && m > 0 {
		return m
	}
	return c.ExpiryMinutes
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
