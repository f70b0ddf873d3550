package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	defaultConfigFile = "values_local.yaml"
	defaultConfigDir  = "configs"
)

// Config ...
type Config struct {
	LogLevel string `yaml:"log_level"`

	OKX struct {
		APIKey     string  `yaml:"api_key"`
		APISecret  string  `yaml:"api_secret"`
		Passphrase string  `yaml:"passphrase"`
		BaseURL    string  `yaml:"base_url"`
		WSURL      string  `yaml:"ws_url"`
		Simulated  bool    `yaml:"simulated"`
		TdMode     string  `yaml:"td_mode"`
		RatePerSec float64 `yaml:"rate_per_sec"`
	} `yaml:"okx"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	DB string `yaml:"db_dsn"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		Host        string  `yaml:"host"`
		Port        int     `yaml:"port"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Trading Trading `yaml:"trading"`
}

// Trading: параметры торгового цикла и риска.
type Trading struct {
	Instruments []string `yaml:"instruments"`
	Bar         string   `yaml:"bar"`
	CandleLimit int      `yaml:"candle_limit"`

	Leverage          int     `yaml:"leverage"`
	RiskPerTrade      float64 `yaml:"risk_per_trade"`      // доля баланса, 0.05 => 5%
	MinSignalStrength float64 `yaml:"min_signal_strength"` // порог силы сигнала для входа
	StopLossPct       float64 `yaml:"stop_loss_pct"`       // 0.02 => 2% от входа
	TakeProfitPct     float64 `yaml:"take_profit_pct"`     // 0.04 => 4% от входа

	CycleInterval  time.Duration `yaml:"cycle_interval"`
	IdleInterval   time.Duration `yaml:"idle_interval"`
	ErrorBackoff   time.Duration `yaml:"error_backoff"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	ModelsDir string `yaml:"models_dir"`
	ModelType string `yaml:"model_type"`
}

// Default returns the configuration the bot runs with when neither file nor env say otherwise.
func Default() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.OKX.BaseURL = "https://www.okx.com"
	cfg.OKX.WSURL = "wss://ws.okx.com:8443/ws/v5/public"
	cfg.OKX.TdMode = "cross"
	cfg.OKX.RatePerSec = 5
	cfg.Redis.Addr = "localhost:6379"
	cfg.Service.AdminPort = 8080
	cfg.Tracing.Host = "localhost"
	cfg.Tracing.Port = 6831
	cfg.Tracing.ServiceName = "futures_bot"
	cfg.Tracing.SampleRate = 1
	cfg.Trading = Trading{
		Instruments: []string{
			"BTC-USDT-SWAP", "ETH-USDT-SWAP", "BNB-USDT-SWAP", "ADA-USDT-SWAP", "SOL-USDT-SWAP",
		},
		Bar:               "1H",
		CandleLimit:       100,
		Leverage:          10,
		RiskPerTrade:      0.05,
		MinSignalStrength: 0.3,
		StopLossPct:       0.02,
		TakeProfitPct:     0.04,
		CycleInterval:     60 * time.Second,
		IdleInterval:      10 * time.Second,
		ErrorBackoff:      30 * time.Second,
		RequestTimeout:    10 * time.Second,
		ModelsDir:         "models",
		ModelType:         "gradient_boosting",
	}
	return cfg
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = defaultConfigDir
	}

	cfg, err := Load(filepath.Join(dir, configFileName), true)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg, newEnv())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load decodes the yaml file over the defaults. With optional set a missing file is fine:
// the bot can run from env alone.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(append([]string{key}, env...)...)
	}
	return v
}

var envBindings = map[string][]string{
	"log_level":           {"LOG_LEVEL"},
	"okx.api_key":         {"OKX_API_KEY"},
	"okx.api_secret":      {"OKX_API_SECRET"},
	"okx.passphrase":      {"OKX_PASSPHRASE"},
	"okx.simulated":       {"OKX_SIMULATED"},
	"redis.addr":          {"REDIS_ADDR", "REDIS_URL"},
	"db_dsn":              {"DATABASE_DSN", "DATABASE_URL"},
	"telegram.token":      {"TELEGRAM_TOKEN"},
	"telegram.chat_id":    {"TELEGRAM_CHAT_ID"},
	"leverage":            {"LEVERAGE"},
	"risk_per_trade":      {"RISK_PER_TRADE"},
	"min_signal_strength": {"MIN_SIGNAL_STRENGTH"},
	"stop_loss_pct":       {"STOP_LOSS_PCT"},
	"take_profit_pct":     {"TAKE_PROFIT_PCT"},
	"instruments":         {"INSTRUMENTS"},
	"cycle_interval":      {"CYCLE_INTERVAL"},
	"models_dir":          {"MODELS_DIR"},
}

func applyEnv(cfg *Config, v *viper.Viper) {
	setString := func(key string, dst *string) {
		if v.IsSet(key) && v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}

	setString("log_level", &cfg.LogLevel)
	setString("okx.api_key", &cfg.OKX.APIKey)
	setString("okx.api_secret", &cfg.OKX.APISecret)
	setString("okx.passphrase", &cfg.OKX.Passphrase)
	setString("redis.addr", &cfg.Redis.Addr)
	setString("db_dsn", &cfg.DB)
	setString("telegram.token", &cfg.Telegram.Token)
	setString("models_dir", &cfg.Trading.ModelsDir)

	if v.IsSet("okx.simulated") {
		cfg.OKX.Simulated = v.GetBool("okx.simulated")
	}
	if v.IsSet("telegram.chat_id") {
		cfg.Telegram.ChatID = v.GetInt64("telegram.chat_id")
	}
	if v.IsSet("leverage") {
		cfg.Trading.Leverage = v.GetInt("leverage")
	}
	if v.IsSet("risk_per_trade") {
		cfg.Trading.RiskPerTrade = v.GetFloat64("risk_per_trade")
	}
	if v.IsSet("min_signal_strength") {
		cfg.Trading.MinSignalStrength = v.GetFloat64("min_signal_strength")
	}
	if v.IsSet("stop_loss_pct") {
		cfg.Trading.StopLossPct = v.GetFloat64("stop_loss_pct")
	}
	if v.IsSet("take_profit_pct") {
		cfg.Trading.TakeProfitPct = v.GetFloat64("take_profit_pct")
	}
	if v.IsSet("cycle_interval") {
		if d := v.GetDuration("cycle_interval"); d > 0 {
			cfg.Trading.CycleInterval = d
		}
	}
	if v.IsSet("instruments") {
		if list := splitList(v.GetString("instruments")); len(list) > 0 {
			cfg.Trading.Instruments = list
		}
	}
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// Validate отклоняет конфиг с долями вне (0,1] и плечом меньше 1.
func (c *Config) Validate() error {
	t := c.Trading
	if t.Leverage < 1 {
		return fmt.Errorf("leverage must be >= 1, got %d", t.Leverage)
	}
	fractions := []struct {
		name string
		v    float64
	}{
		{"risk_per_trade", t.RiskPerTrade},
		{"stop_loss_pct", t.StopLossPct},
		{"take_profit_pct", t.TakeProfitPct},
	}
	for _, f := range fractions {
		if f.v <= 0 || f.v > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", f.name, f.v)
		}
	}
	if t.MinSignalStrength < 0 || t.MinSignalStrength > 1 {
		return fmt.Errorf("min_signal_strength must be in [0,1], got %v", t.MinSignalStrength)
	}
	if len(t.Instruments) == 0 {
		return fmt.Errorf("instrument list is empty")
	}
	seen := make(map[string]struct{}, len(t.Instruments))
	for _, inst := range t.Instruments {
		if _, dup := seen[inst]; dup {
			return fmt.Errorf("instrument %s listed twice", inst)
		}
		seen[inst] = struct{}{}
	}
	if t.CandleLimit < 21 {
		return fmt.Errorf("candle_limit must be >= 21, got %d", t.CandleLimit)
	}
	if t.CycleInterval <= 0 || t.IdleInterval <= 0 || t.RequestTimeout <= 0 {
		return fmt.Errorf("cycle_interval, idle_interval and request_timeout must be positive")
	}
	if t.ErrorBackoff <= 0 {
		return fmt.Errorf("error_backoff must be positive")
	}
	return nil
}

// Addr: адрес admin http (health, metrics).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.AdminPort)
}
