package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errors.New("invalid duration")
	}
}

// UnmarshalText lets env variables carry durations such as "1500ms".
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type GameConfig struct {
	SettleDelay       Duration       `json:"settle_delay" env:"PAIRS_SETTLE_DELAY"`
	TickInterval      Duration       `json:"tick_interval" env:"PAIRS_TICK_INTERVAL"`
	IdleTTL           Duration       `json:"idle_ttl" env:"PAIRS_IDLE_TTL"`
	DefaultDifficulty string         `json:"default_difficulty" env:"PAIRS_DEFAULT_DIFFICULTY"`
	Difficulties      map[string]int `json:"difficulties"`
}

// Dimension resolves a difficulty name. The empty name means the default
// difficulty.
func (g GameConfig) Dimension(difficulty string) (int, bool) {
	if difficulty == "" {
		difficulty = g.DefaultDifficulty
	}
	dimension, ok := g.Difficulties[strings.ToLower(difficulty)]
	return dimension, ok
}

// normalize lowercases difficulty names so lookups ignore case.
func (g *GameConfig) normalize() error {
	g.DefaultDifficulty = strings.ToLower(g.DefaultDifficulty)
	if g.Difficulties == nil {
		return nil
	}
	names := make(map[string]int, len(g.Difficulties))
	for name, dimension := range g.Difficulties {
		lower := strings.ToLower(name)
		if _, ok := names[lower]; ok {
			return fmt.Errorf("difficulty %q is configured more than once", lower)
		}
		names[lower] = dimension
	}
	g.Difficulties = names
	return nil
}

// DifficultyNames lists difficulties ordered by dimension.
func (g GameConfig) DifficultyNames() []string {
	names := make([]string, 0, len(g.Difficulties))
	for name := range g.Difficulties {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if d := g.Difficulties[a] - g.Difficulties[b]; d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return names
}

type JwtConfig struct {
	TokenLifetime  Duration `json:"token_lifetime" env:"JWT_TOKEN_LIFETIME"`
	PrivateKeyPath string   `json:"private_key_path" env:"JWT_PRIVATE_KEY_FILE"`
	PublicKeyPath  string   `json:"public_key_path" env:"JWT_PUBLIC_KEY_FILE"`
}

func (j JwtConfig) Enabled() bool {
	return j.PrivateKeyPath != "" && j.PublicKeyPath != ""
}

// Config is the server configuration. An empty AllowedOrigins allows any
// origin.
type Config struct {
	Mode           string         `json:"mode" env:"PAIRS_MODE"`
	Addr           string         `json:"addr" env:"PAIRS_ADDR"`
	LogFile        string         `json:"log_file" env:"PAIRS_LOG_FILE"`
	LogLevel       string         `json:"log_level" env:"PAIRS_LOG_LEVEL"`
	AllowedOrigins []string       `json:"allowed_origins" env:"PAIRS_ALLOWED_ORIGINS"`
	Game           GameConfig     `json:"game"`
	Postgres       PostgresConfig `json:"postgres"`
	Jwt            JwtConfig      `json:"jwt"`
	Cookies        CookiesConfig  `json:"cookies"`
}

func Default() *Config {
	return &Config{
		Mode:     "development",
		Addr:     ":8080",
		LogLevel: "info",
		Game: GameConfig{
			SettleDelay:       Duration{time.Second},
			TickInterval:      Duration{time.Second},
			IdleTTL:           Duration{time.Hour},
			DefaultDifficulty: "normal",
			Difficulties: map[string]int{
				"easy":   2,
				"normal": 4,
				"hard":   6,
				"expert": 8,
			},
		},
		Jwt: JwtConfig{
			TokenLifetime: Duration{time.Hour * 24 * 30},
		},
		Cookies: CookiesConfig{
			SameSite: "strict",
			Secure:   true,
		},
	}
}

func ReadConfig(path string, config *Config) error {
	if b, err := os.ReadFile(path); err != nil {
		return err
	} else {
		return json.Unmarshal(b, config)
	}
}

// Load reads the defaults, then the JSON file at path (skipped if path is
// empty), then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		// a file that lists difficulties replaces the default set
		defaults := config.Game.Difficulties
		config.Game.Difficulties = nil
		if err := ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to read config %s: %w", path, err)
		}
		if config.Game.Difficulties == nil {
			config.Game.Difficulties = defaults
		}
	}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("unable to parse env: %w", err)
	}
	if err := config.Game.normalize(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if len(c.Game.Difficulties) == 0 {
		return errors.New("no difficulties configured")
	}
	for name, dimension := range c.Game.Difficulties {
		if dimension <= 0 || dimension%2 != 0 {
			return fmt.Errorf(
				"difficulty %q: dimension %d must be a positive even number",
				name, dimension,
			)
		}
	}
	if _, ok := c.Game.Dimension(""); !ok {
		return fmt.Errorf(
			"default difficulty %q is not configured", c.Game.DefaultDifficulty,
		)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Game.SettleDelay.Duration <= 0 {
		return errors.New("settle_delay must be positive")
	}
	if c.Game.TickInterval.Duration <= 0 {
		return errors.New("tick_interval must be positive")
	}
	return nil
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":                 c.Mode,
		"addr":                 c.Addr,
		"log_file":             c.LogFile,
		"log_level":            c.LogLevel,
		"allowed_origins":      c.AllowedOrigins,
		"settle_delay":         c.Game.SettleDelay.String(),
		"tick_interval":        c.Game.TickInterval.String(),
		"idle_ttl":             c.Game.IdleTTL.String(),
		"default_difficulty":   c.Game.DefaultDifficulty,
		"difficulties":         c.Game.DifficultyNames(),
		"pg_host":              c.Postgres.Host,
		"pg_port":              strconv.Itoa(int(c.Postgres.Port)),
		"pg_user":              c.Postgres.User,
		"pg_db_name":           c.Postgres.DbName,
		"jwt_token_lifetime":   c.Jwt.TokenLifetime.String(),
		"jwt_private_key_path": c.Jwt.PrivateKeyPath,
		"jwt_public_key_path":  c.Jwt.PublicKeyPath,
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return c.Mode != "production"
}
