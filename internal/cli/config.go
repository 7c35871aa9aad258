package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configKeys maps config file keys to the persistent flags they set.
var configKeys = map[string]string{
	"verbose":  "verbose",
	"format":   "format",
	"schema":   "schema",
	"backend":  "backend",
	"database": "db",
	"pg_url":   "pg-url",
}

// applyConfig fills options that were not given on the command line from
// the DYNQUERY_* environment and the config file.
//
//	# dynquery.yaml
//	schema: ./records
//	backend: sqlite
//	database: ./dynquery.db
func applyConfig(cmd *cobra.Command, opts *RootOptions) error {
	v := viper.New()
	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("dynquery")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("DYNQUERY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the default file is optional.
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	flags := cmd.Flags()
	for key, flagName := range configKeys {
		f := flags.Lookup(flagName)
		if f == nil || f.Changed || !v.IsSet(key) {
			continue
		}
		if err := flags.Set(flagName, v.GetString(key)); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	return nil
}
