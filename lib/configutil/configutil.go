package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the path of the local override of a config file,
// `dir/config.json5` becomes `dir/config.local.json5`.
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// readJson5 decodes the file into out, found is false when the file does not exist or
// is empty.
func readJson5(path string, out any) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads a json5 config file and merges its local override (see LocalPath)
// on top of it, values set in the override win. The local file is meant for secrets and
// is not committed. os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readJson5(name, &out)
	if err != nil {
		return out, err
	}

	var override T
	localName := LocalPath(name)
	foundLocal, err := readJson5(localName, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", localName, err)
		}
		slog.Info("merged config with local overrides", "local", localName)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// OverrideFromEnv replaces *target with the value of the environment variable `key`
// when it is set and non-empty.
func OverrideFromEnv(target *string, key string) {
	value, ok := os.LookupEnv(key)
	if ok && value != "" {
		*target = value
	}
}
