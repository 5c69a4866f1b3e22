package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/updown/internal/domain"
)

// Config es la configuración completa del tester.
type Config struct {
	Engine   EngineConfig    `yaml:"engine"`
	Variants VariantsConfig  `yaml:"variants"`
	Coins    map[string]bool `yaml:"coins"` // btc/eth/sol/xrp → habilitado
	API      APIConfig       `yaml:"api"`
	HTTP     HTTPConfig      `yaml:"http"`
	Storage  StorageConfig   `yaml:"storage"`
	Log      LogConfig       `yaml:"log"`
}

// EngineConfig controla el loop y la simulación de cada engine.
type EngineConfig struct {
	IntervalSeconds          float64  `yaml:"interval_seconds"`
	TickTimeoutSeconds       float64  `yaml:"tick_timeout_seconds"` // 0 = interval
	OrderSizeShares          float64  `yaml:"order_size_shares"`
	SimFillProbability       *float64 `yaml:"sim_fill_probability"` // nil = default; 0 es válido
	EntryWindowStart         int      `yaml:"entry_window_start"`   // segundos antes del cierre
	EntryWindowEnd           int      `yaml:"entry_window_end"`
	RecentTradesLimit        int      `yaml:"recent_trades_limit"`
	ResolutionRecheckSeconds float64  `yaml:"resolution_recheck_seconds"`
}

// VariantsConfig lista los thresholds de cada familia.
type VariantsConfig struct {
	Undervalued []float64 `yaml:"undervalued"`
	Momentum    []float64 `yaml:"momentum"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// HTTPConfig controla la API de control.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	Enabled *bool  `yaml:"enabled"` // nil = habilitada
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben el YAML. Un path vacío usa solo
// defaults y entorno.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Interval devuelve el intervalo entre ticks.
func (c *Config) Interval() time.Duration {
	return seconds(c.Engine.IntervalSeconds)
}

// TickTimeout devuelve el límite de cada tick.
func (c *Config) TickTimeout() time.Duration {
	if c.Engine.TickTimeoutSeconds <= 0 {
		return c.Interval()
	}
	return seconds(c.Engine.TickTimeoutSeconds)
}

// ResolutionRecheck devuelve el mínimo entre consultas de resolución.
func (c *Config) ResolutionRecheck() time.Duration {
	return seconds(c.Engine.ResolutionRecheckSeconds)
}

// EntryWindow devuelve la ventana de entrada como tipo de dominio.
func (c *Config) EntryWindow() domain.EntryWindow {
	return domain.EntryWindow{
		Start: time.Duration(c.Engine.EntryWindowStart) * time.Second,
		End:   time.Duration(c.Engine.EntryWindowEnd) * time.Second,
	}
}

// FillProbability devuelve la probabilidad de fill efectiva.
func (c *Config) FillProbability() float64 {
	if c.Engine.SimFillProbability == nil {
		return defaultFillProbability
	}
	return *c.Engine.SimFillProbability
}

// HTTPEnabled indica si hay que levantar la API.
func (c *Config) HTTPEnabled() bool {
	return c.HTTP.Enabled == nil || *c.HTTP.Enabled
}

// VariantSet construye el set de variantes configurado.
func (c *Config) VariantSet() (domain.VariantSet, error) {
	return domain.NewVariantSet(c.Variants.Undervalued, c.Variants.Momentum)
}

// EnabledInstruments devuelve los instrumentos habilitados en orden estable.
func (c *Config) EnabledInstruments() []domain.Instrument {
	var out []domain.Instrument
	for _, in := range domain.Instruments() {
		if enabled, ok := c.Coins[string(in)]; !ok || enabled {
			out = append(out, in)
		}
	}
	return out
}

// OnlyInstruments deja habilitados solo los instrumentos dados.
func (c *Config) OnlyInstruments(list []domain.Instrument) {
	c.Coins = make(map[string]bool, len(domain.Instruments()))
	for _, in := range domain.Instruments() {
		c.Coins[string(in)] = false
	}
	for _, in := range list {
		c.Coins[string(in)] = true
	}
}

// Validate comprueba rangos y coherencia.
func (c *Config) Validate() error {
	var errs []error
	if p := c.FillProbability(); p < 0 || p > 1 {
		errs = append(errs, fmt.Errorf("sim_fill_probability %v out of [0,1]", p))
	}
	if c.Engine.EntryWindowStart <= c.Engine.EntryWindowEnd {
		errs = append(errs, fmt.Errorf("entry_window_start %d must be greater than entry_window_end %d",
			c.Engine.EntryWindowStart, c.Engine.EntryWindowEnd))
	}
	if c.Engine.EntryWindowEnd < 0 {
		errs = append(errs, fmt.Errorf("entry_window_end %d is negative", c.Engine.EntryWindowEnd))
	}
	if _, err := c.VariantSet(); err != nil {
		errs = append(errs, err)
	}
	for coin := range c.Coins {
		if _, err := domain.ParseInstrument(coin); err != nil {
			errs = append(errs, err)
		}
	}
	if len(c.EnabledInstruments()) == 0 {
		errs = append(errs, errors.New("no coins enabled"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q (want text|json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}

	var errs []error
	envFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
				return
			}
			*dst = f
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
				return
			}
			*dst = n
		}
	}

	envFloat("ORDER_SIZE_SHARES", &cfg.Engine.OrderSizeShares)
	envInt("ENTRY_WINDOW_START", &cfg.Engine.EntryWindowStart)
	envInt("ENTRY_WINDOW_END", &cfg.Engine.EntryWindowEnd)
	if v := os.Getenv("SIM_FILL_PROBABILITY"); v != "" {
		var p float64
		envFloat("SIM_FILL_PROBABILITY", &p)
		cfg.Engine.SimFillProbability = &p
	}

	for _, in := range domain.Instruments() {
		key := "ENABLE_" + strings.ToUpper(string(in))
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
			continue
		}
		if cfg.Coins == nil {
			cfg.Coins = make(map[string]bool)
		}
		cfg.Coins[string(in)] = enabled
	}
	return errors.Join(errs...)
}

const defaultFillProbability = 0.7

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.IntervalSeconds <= 0 {
		cfg.Engine.IntervalSeconds = 2
	}
	if cfg.Engine.OrderSizeShares <= 0 {
		cfg.Engine.OrderSizeShares = 10
	}
	if cfg.Engine.EntryWindowStart == 0 {
		cfg.Engine.EntryWindowStart = 1230
	}
	if cfg.Engine.EntryWindowEnd == 0 {
		cfg.Engine.EntryWindowEnd = 930
	}
	if cfg.Engine.RecentTradesLimit <= 0 {
		cfg.Engine.RecentTradesLimit = 200
	}
	if cfg.Engine.ResolutionRecheckSeconds <= 0 {
		cfg.Engine.ResolutionRecheckSeconds = 15
	}
	if len(cfg.Variants.Undervalued) == 0 && len(cfg.Variants.Momentum) == 0 {
		cfg.Variants.Undervalued = []float64{0.49, 0.48, 0.47, 0.46}
		cfg.Variants.Momentum = []float64{0.51, 0.52, 0.53, 0.54}
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "updown.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
