package config

import (
	"emperror.dev/errors"
	"github.com/joho/godotenv"
)

// LoadEnvFile adds the variables of a dotenv file to the environment.
// Variables which are already set keep their value.
func LoadEnvFile(filename string) error {
	if filename == "" {
		return nil
	}
	if err := godotenv.Load(filename); err != nil {
		return errors.Wrapf(err, "cannot load env file '%s'", filename)
	}
	return nil
}
