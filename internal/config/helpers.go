package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/Gometra/internal/misc"
)

// resolveString returns the first non-empty value among the ENV variable,
// the CLI flag, and the config file entry, otherwise def.
func resolveString(envKey, flagVal, fileVal, def string) string {
	if v := strings.TrimSpace(misc.Getenv(envKey, "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

// resolveDuration picks a duration from the ENV variable (integer seconds or
// Go syntax), a CLI flag given in seconds, or the config file entry, falling
// back to def. Only a malformed config file value is an error; the ENV layer
// falls back like misc.GetDuration does.
func resolveDuration(envKey string, flagSeconds int, fileVal string, def time.Duration) (time.Duration, error) {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		return misc.GetDuration(envKey, def), nil
	}
	if flagSeconds > 0 {
		return time.Duration(flagSeconds) * time.Second, nil
	}
	if fv := strings.TrimSpace(fileVal); fv != "" {
		d, err := parseFlexDuration(fv)
		if err != nil {
			return 0, fmt.Errorf("config file %s: %w", strings.ToLower(envKey), err)
		}
		return d, nil
	}
	return def, nil
}

// resolveInt picks an integer from the ENV variable, the CLI flag, or the
// config file entry, requiring n >= min at every layer.
func resolveInt(envKey string, flagVal, fileVal, def, min int) int {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if n, err := strconv.Atoi(ev); err == nil && n >= min {
			return n
		}
	}
	if flagVal != 0 && flagVal >= min {
		return flagVal
	}
	if fileVal != 0 && fileVal >= min {
		return fileVal
	}
	return def
}

func parseFlexDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
