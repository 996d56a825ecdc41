package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// applyEnv fills every flag not given on the command line from
// DAILY_BILLING_<FLAG>, then from the legacy variables.
func applyEnv(fs *pflag.FlagSet) error {
	if err := SetFlagsFromEnv(fs, envPrefix); err != nil {
		return err
	}
	return MapEnvVarToFlag(legacyEnv, fs)
}

// SetFlagsFromEnv parses all registered flags in the given flagset,
// and if they are not already set it attempts to set their values from
// environment variables. Environment variables take the name of the flag but
// are UPPERCASE, and any dashes are replaced by underscores. Environment
// variables additionally are prefixed by the given string followed by
// and underscore. For example, if prefix=PREFIX: some-flag => PREFIX_SOME_FLAG
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if !alreadySet[f.Name] {
			key := prefix + "_" + strings.ToUpper(strings.Replace(f.Name, "-", "_", -1))
			val := os.Getenv(key)
			if val != "" {
				if serr := fs.Set(f.Name, val); serr != nil {
					err = fmt.Errorf("invalid value %q for %s: %v", val, key, serr)
				}
			}
		}
	})
	return err
}

// MapEnvVarToFlag takes a mapping of ENV var names to flag names and sets
// each flag that is still unset from its ENV var.
func MapEnvVarToFlag(vars map[string]string, fs *pflag.FlagSet) error {
	for env, name := range vars {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("the %s flag doesn't exist", name)
		}
		if flag.Changed {
			continue
		}
		if val := os.Getenv(env); val != "" {
			if err := fs.Set(name, val); err != nil {
				return fmt.Errorf("invalid value %q for %s: %v", val, env, err)
			}
		}
	}
	return nil
}
