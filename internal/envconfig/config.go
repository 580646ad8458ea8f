// Package envconfig reads CONVLSTM_* environment variables used by the
// command line tool as defaults for its flags.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Var returns an environment variable stripped of surrounding whitespace and quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level from CONVLSTM_DEBUG.
//
// A true value enables debug logging; an integer n selects slog.Level(-4n).
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("CONVLSTM_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// BoolWithDefault returns a getter for a boolean variable.
// Set but unparsable values count as true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean variable defaulting to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a getter for a string variable.
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint returns a getter for an unsigned integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Int64 returns a getter for a signed integer variable.
func Int64(key string, defaultValue int64) func() int64 {
	return func() int64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// Float returns a getter for a float variable.
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return f
			}
		}
		return defaultValue
	}
}

var (
	// InputShape is the default "C,H,W" input shape.
	InputShape = String("CONVLSTM_INPUT_SHAPE")
	// Kernel is the default "KH,KW" kernel shape.
	Kernel = String("CONVLSTM_KERNEL")
	// Storage is the default checkpoint storage dtype.
	Storage = String("CONVLSTM_STORAGE")
	// NoProgress disables per-step training logs.
	NoProgress = Bool("CONVLSTM_NOPROGRESS")
)

// NumWorkers returns the CPU worker count (CONVLSTM_NUM_WORKERS).
// Zero or unset means GOMAXPROCS.
func NumWorkers() int {
	if n := Uint("CONVLSTM_NUM_WORKERS", 0)(); n > 0 {
		return int(n)
	}
	return runtime.GOMAXPROCS(0)
}

// Seed returns the random seed (CONVLSTM_SEED, default 1).
func Seed() int64 {
	return Int64("CONVLSTM_SEED", 1)()
}

// HiddenChannels returns the default hidden channel count (CONVLSTM_HIDDEN, default 32).
func HiddenChannels() int {
	return int(Uint("CONVLSTM_HIDDEN", 32)())
}

// NormGroups returns the group norm group count (CONVLSTM_NORM_GROUPS).
// Zero keeps the cell default.
func NormGroups() int {
	return int(Uint("CONVLSTM_NORM_GROUPS", 0)())
}

// LearningRate returns the default optimizer learning rate (CONVLSTM_LR).
// Zero keeps the optimizer default.
func LearningRate() float64 {
	return Float("CONVLSTM_LR", 0)()
}

// EnvVar describes one environment variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every recognised variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"CONVLSTM_DEBUG":       {"CONVLSTM_DEBUG", LogLevel(), "Show additional debug information (e.g. CONVLSTM_DEBUG=1)"},
		"CONVLSTM_NUM_WORKERS": {"CONVLSTM_NUM_WORKERS", NumWorkers(), "Number of CPU worker goroutines (default: GOMAXPROCS)"},
		"CONVLSTM_SEED":        {"CONVLSTM_SEED", Seed(), "Random seed for parameters and synthetic data (default: 1)"},
		"CONVLSTM_INPUT_SHAPE": {"CONVLSTM_INPUT_SHAPE", InputShape(), "Input shape as C,H,W (default: 4,16,16)"},
		"CONVLSTM_HIDDEN":      {"CONVLSTM_HIDDEN", HiddenChannels(), "Hidden channel count (default: 32)"},
		"CONVLSTM_KERNEL":      {"CONVLSTM_KERNEL", Kernel(), "Kernel shape as KH,KW (default: 3,3)"},
		"CONVLSTM_NORM_GROUPS": {"CONVLSTM_NORM_GROUPS", NormGroups(), "Group norm group count (default: 128)"},
		"CONVLSTM_LR":          {"CONVLSTM_LR", LearningRate(), "Optimizer learning rate"},
		"CONVLSTM_STORAGE":     {"CONVLSTM_STORAGE", Storage(), "Checkpoint storage dtype: F32, F16 or F64 (default: F32)"},
		"CONVLSTM_NOPROGRESS":  {"CONVLSTM_NOPROGRESS", NoProgress(), "Do not log every training step"},
	}
}

// Values returns every recognised variable formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
