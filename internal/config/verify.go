package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// VerifyConfig holds configuration for the verify command.
type VerifyConfig struct {
	In       string            `validate:"required"`
	RPC      map[string]string `validate:"dive,keys,required,endkeys,url"`
	LogLevel string            `validate:"oneof=debug info warn error"`
}

// LoadVerify merges .env, config file, environment variables, and flags into VerifyConfig.
func LoadVerify(cfgFile string, flags *pflag.FlagSet) (VerifyConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "out/core_pools.json")
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return VerifyConfig{}, err
	}

	cfg := VerifyConfig{
		In:       v.GetString("in"),
		RPC:      getStringMap(v, "rpc"),
		LogLevel: v.GetString("log-level"),
	}
	if err := validate(cfg); err != nil {
		return VerifyConfig{}, err
	}
	return cfg, nil
}
