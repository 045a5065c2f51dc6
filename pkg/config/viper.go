// Package config initializes the global Viper instance backing the CLI.
// Settings are merged from a config file, environment variables, and
// command-line flags into a single configuration view.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	internalconfig "github.com/openpress/newsimg/internal/config"
)

// Init loads configuration into the global Viper instance. It is called
// once at startup, before any application services are built.
//
// When cfgFile is empty the usual search paths are tried and a missing
// config file is not an error; the defaults and environment variables
// carry the run. An explicit cfgFile must exist and parse.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("newsimg")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.newsimg")
		viper.AddConfigPath("/etc/newsimg/")
	}

	internalconfig.SetDefaults(viper.GetViper())

	// e.g. NEWSIMG_HTTP_TIMEOUT_SECONDS=30
	viper.SetEnvPrefix("NEWSIMG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
