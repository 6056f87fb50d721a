package cmd

import (
	"fmt"

	"emperror.dev/emperror"
	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/config"
	"github.com/ocfl-archive/filedrop/pkg/namegen"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:     "keygen",
	Short:   "print a random namespace key",
	Example: "filedrop keygen --length 64",
	Args:    cobra.NoArgs,
	Run:     doKeygen,
}

func initKeygen() {
	keygenCmd.Flags().UintP("length", "l", config.DefaultKeyLength, "number of characters")
}

func doKeygen(cmd *cobra.Command, args []string) {
	length := getFlagUint(cmd, "length")
	if length == 0 {
		emperror.Panic(cmd.Help())
		cobra.CheckErr(errors.New("--length must be at least 1"))
	}
	key, err := namegen.RandomString(length, namegen.Alphanumeric)
	cobra.CheckErr(err)
	fmt.Println(key)
}
