// Package env provides small helpers for reading configuration from the
// process environment with typed defaults.
package env

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// RequireString returns the value of key or panics when it is unset.
// Intended for secrets and endpoints the service cannot run without.
func RequireString(key string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		panic(fmt.Sprintf("environment variable %q is required", key))
	}

	return val
}

func String(key, def string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	return val
}

func Int(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return val
}

func Int64(key string, def int64) int64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}

	return val
}

func Bool(key string, def bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}

	return val
}

func Duration(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}

	return val
}

func URL(key string, def *url.URL) *url.URL {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return def
	}

	return parsed
}

// RequireURL returns the parsed value of key or panics when it is unset or
// not a valid URL.
func RequireURL(key string) *url.URL {
	parsed, err := url.Parse(RequireString(key))
	if err != nil {
		panic(fmt.Sprintf("environment variable %q is not a valid url: %v", key, err))
	}

	return parsed
}
