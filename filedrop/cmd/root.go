package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/config"
	"github.com/ocfl-archive/filedrop/version"
	"github.com/spf13/cobra"
)

const DefaultConfigFile = "filedrop.toml"

// all possible flags of all modules go here
var persistentFlagConfigFile string
var persistentFlagEnvFile string
var persistentFlagLogfile string
var persistentFlagLoglevel string

var conf *config.FileDropConfig

var rootCmd = &cobra.Command{
	Use:   "filedrop",
	Short: "filedrop is a self hosted file drop with key protected upload namespaces",
	Long: fmt.Sprintf(`Upload files over http into key protected namespaces and serve them back,
optionally with a browsable directory listing.
https://github.com/ocfl-archive/filedrop
Version %s`, version.String()),
	Version: version.String(),
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func getFlagString(cmd *cobra.Command, flag string) string {
	str, err := cmd.Flags().GetString(flag)
	if err != nil {
		_ = cmd.Help()
		cobra.CheckErr(errors.Errorf("cannot get flag %s: %v", flag, err))
	}
	return str
}

func getFlagUint(cmd *cobra.Command, flag string) uint {
	n, err := cmd.Flags().GetUint(flag)
	if err != nil {
		_ = cmd.Help()
		cobra.CheckErr(errors.Errorf("cannot get flag %s: %v", flag, err))
	}
	return n
}

// loadConfig reads the env file and the config file and applies the
// persistent flags.
func loadConfig() (*config.FileDropConfig, error) {
	if err := config.LoadEnvFile(persistentFlagEnvFile); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(persistentFlagConfigFile)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", persistentFlagConfigFile)
	}
	c, err := config.LoadFileDropConfig(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "error loading config file %s", persistentFlagConfigFile)
	}
	if persistentFlagLogfile != "" {
		c.Log.File = persistentFlagLogfile
	}
	if persistentFlagLoglevel != "" {
		c.Log.Level = persistentFlagLoglevel
	}
	return c, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&persistentFlagConfigFile, "config", DefaultConfigFile, "config file")
	rootCmd.PersistentFlags().StringVar(&persistentFlagEnvFile, "env-file", "", "dotenv file with variables referenced by the config")
	rootCmd.PersistentFlags().StringVar(&persistentFlagLogfile, "log-file", "", "log output file (default is console)")
	rootCmd.PersistentFlags().StringVar(&persistentFlagLoglevel, "log-level", "", "log level (DEBUG|INFO|WARN|ERROR|FATAL|PANIC)")

	initServe()
	initInit()
	initKeygen()

	rootCmd.AddCommand(serveCmd, initCmd, keygenCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
