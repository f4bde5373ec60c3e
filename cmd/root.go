package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"snow-mirror/cmd/mirror"
	"snow-mirror/cmd/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	CFG_FLAG_NAME = "config"
)

var RootCmd = &cobra.Command{
	Use:   "snow-mirror",
	Short: "snow-mirror keeps a local Postgres cache of ServiceNow tables",
	Long: `snow-mirror pulls configured ServiceNow tables into a local Postgres cache.
It performs a full synchronization on startup and then keeps the cache fresh with
incremental delta refreshes based on each table's sys_updated_on watermark.`,
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d, b string) {
	version.SetVersionInfo(v, c, d, b)
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVarP(&cfgFile, CFG_FLAG_NAME, "c", "", "path to config file")

	viper.BindPFlag(CFG_FLAG_NAME, RootCmd.PersistentFlags().Lookup(CFG_FLAG_NAME))
	viper.SetEnvPrefix("snow_mirror")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	RootCmd.AddCommand(mirror.MirrorCmd)
	RootCmd.AddCommand(version.VersionCmd)
}

// initConfig runs after flag parsing, so --config can point viper at an
// explicit file. Without the flag the usual search paths are tried, and a
// missing file there is fine: the environment alone can carry the
// configuration.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")                  // For running from project root
		viper.AddConfigPath("/etc/snow-mirror/")  // For production
		viper.AddConfigPath("$HOME/.snow-mirror") // For user-specific config
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Failed to read config file: %v\n", err)
			os.Exit(1)
		}
	}
}
