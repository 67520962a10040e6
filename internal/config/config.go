package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "COREPOOLS"

// Config holds configuration for the run command, loaded from flags, env, or config file.
type Config struct {
	Chains         []string
	Endpoints      map[string]string `validate:"dive,keys,required,endkeys,url"`
	Whitelist      string            `validate:"required"`
	Out            string            `validate:"required"`
	SubgraphAPIKey string
	MinLiquidity   decimal.Decimal
	MinYieldFee    decimal.Decimal
	First          int           `validate:"min=1,max=1000"`
	Timeout        time.Duration `validate:"min=0"`
	MaxRetries     int           `validate:"min=0"`
	RetryBackoff   time.Duration `validate:"min=0"`
	PGDSN          string
	MetricsFile    string
	LogLevel       string `validate:"oneof=debug info warn error"`
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("whitelist", "config/whitelist.json")
		v.SetDefault("out", "out/core_pools.json")
		v.SetDefault("min-liquidity", "300000")
		v.SetDefault("min-yield-fee", "0")
		v.SetDefault("first", 1000)
		v.SetDefault("timeout", time.Duration(0))
		v.SetDefault("max-retries", 0)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return Config{}, err
	}

	minLiquidity, err := decimal.NewFromString(strings.TrimSpace(v.GetString("min-liquidity")))
	if err != nil {
		return Config{}, fmt.Errorf("parse min-liquidity: %w", err)
	}
	minYieldFee, err := decimal.NewFromString(strings.TrimSpace(v.GetString("min-yield-fee")))
	if err != nil {
		return Config{}, fmt.Errorf("parse min-yield-fee: %w", err)
	}

	cfg := Config{
		Chains:         getStringSlice(v, "chains"),
		Endpoints:      getStringMap(v, "endpoints"),
		Whitelist:      v.GetString("whitelist"),
		Out:            v.GetString("out"),
		SubgraphAPIKey: v.GetString("subgraph-api-key"),
		MinLiquidity:   minLiquidity,
		MinYieldFee:    minYieldFee,
		First:          v.GetInt("first"),
		Timeout:        v.GetDuration("timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		PGDSN:          v.GetString("pg-dsn"),
		MetricsFile:    v.GetString("metrics-file"),
		LogLevel:       v.GetString("log-level"),
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	envFile := ".env"
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func validate(cfg interface{}) error {
	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
