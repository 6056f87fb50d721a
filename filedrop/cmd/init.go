package cmd

import (
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/config"
	"github.com/ocfl-archive/filedrop/pkg/namegen"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "write a default configuration",
	Long:    "writes the default configuration with a fresh key for the default namespace to the --config path",
	Example: "filedrop init --config ./filedrop.toml",
	Args:    cobra.NoArgs,
	Run:     doInit,
}

func initInit() {
	initCmd.Flags().Bool("stdout", false, "print the configuration instead of writing it")
}

// writeDefaultConfig creates filename with the default configuration. An
// existing file is never overwritten.
func writeDefaultConfig(filename string) error {
	data, err := defaultConfigData()
	if err != nil {
		return err
	}
	fp, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.Wrapf(err, "cannot create %s", filename)
	}
	if _, err := fp.WriteString(data); err != nil {
		fp.Close()
		return errors.Wrapf(err, "cannot write %s", filename)
	}
	return errors.WithStack(fp.Close())
}

func defaultConfigData() (string, error) {
	key, err := namegen.RandomString(config.DefaultKeyLength, namegen.Alphanumeric)
	if err != nil {
		return "", errors.Wrap(err, "cannot generate key")
	}
	return config.DefaultConfigWithKey(key), nil
}

func doInit(cmd *cobra.Command, args []string) {
	stdout, err := cmd.Flags().GetBool("stdout")
	cobra.CheckErr(err)
	if stdout {
		data, err := defaultConfigData()
		cobra.CheckErr(err)
		fmt.Print(data)
		return
	}
	cobra.CheckErr(writeDefaultConfig(persistentFlagConfigFile))
	fmt.Printf("default configuration written to %s\n", persistentFlagConfigFile)
}
