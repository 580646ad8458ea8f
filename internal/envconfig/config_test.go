package envconfig

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVar(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"  3,8,8  ":   "3,8,8",
		`"3,8,8"`:     "3,8,8",
		"'f16'":       "f16",
		` " spaced "`: " spaced ",
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CONVLSTM_TEST_VAR", value)
			if got := Var("CONVLSTM_TEST_VAR"); got != expect {
				t.Errorf("Var(%q) = %q, want %q", value, got, expect)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"f":     slog.LevelInfo,
		"0":     slog.LevelInfo,
		"true":  slog.LevelDebug,
		"t":     slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
		"bogus": slog.LevelInfo,
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CONVLSTM_DEBUG", value)
			if got := LogLevel(); got != expect {
				t.Errorf("LogLevel() = %v, want %v", got, expect)
			}
		})
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"yes":   true, // unparsable but set
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("CONVLSTM_NOPROGRESS", value)
			if got := NoProgress(); got != expect {
				t.Errorf("NoProgress() = %v, want %v", got, expect)
			}
		})
	}
}

func TestNumericDefaults(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv("CONVLSTM_SEED", "")
		t.Setenv("CONVLSTM_HIDDEN", "")
		t.Setenv("CONVLSTM_NORM_GROUPS", "")
		t.Setenv("CONVLSTM_LR", "")
		t.Setenv("CONVLSTM_NUM_WORKERS", "")

		if got := Seed(); got != 1 {
			t.Errorf("Seed() = %d, want 1", got)
		}
		if got := HiddenChannels(); got != 32 {
			t.Errorf("HiddenChannels() = %d, want 32", got)
		}
		if got := NormGroups(); got != 0 {
			t.Errorf("NormGroups() = %d, want 0", got)
		}
		if got := LearningRate(); got != 0 {
			t.Errorf("LearningRate() = %v, want 0", got)
		}
		if got := NumWorkers(); got != runtime.GOMAXPROCS(0) {
			t.Errorf("NumWorkers() = %d, want GOMAXPROCS", got)
		}
	})

	t.Run("set", func(t *testing.T) {
		t.Setenv("CONVLSTM_SEED", "-7")
		t.Setenv("CONVLSTM_HIDDEN", "64")
		t.Setenv("CONVLSTM_NORM_GROUPS", "16")
		t.Setenv("CONVLSTM_LR", "0.05")
		t.Setenv("CONVLSTM_NUM_WORKERS", "3")

		if got := Seed(); got != -7 {
			t.Errorf("Seed() = %d, want -7", got)
		}
		if got := HiddenChannels(); got != 64 {
			t.Errorf("HiddenChannels() = %d, want 64", got)
		}
		if got := NormGroups(); got != 16 {
			t.Errorf("NormGroups() = %d, want 16", got)
		}
		if got := LearningRate(); got != 0.05 {
			t.Errorf("LearningRate() = %v, want 0.05", got)
		}
		if got := NumWorkers(); got != 3 {
			t.Errorf("NumWorkers() = %d, want 3", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("CONVLSTM_SEED", "abc")
		t.Setenv("CONVLSTM_HIDDEN", "-1")
		t.Setenv("CONVLSTM_LR", "fast")

		if got := Seed(); got != 1 {
			t.Errorf("Seed() = %d, want default 1", got)
		}
		if got := HiddenChannels(); got != 32 {
			t.Errorf("HiddenChannels() = %d, want default 32", got)
		}
		if got := LearningRate(); got != 0 {
			t.Errorf("LearningRate() = %v, want default 0", got)
		}
	})
}

func TestValues(t *testing.T) {
	t.Setenv("CONVLSTM_INPUT_SHAPE", "3,8,8")
	t.Setenv("CONVLSTM_HIDDEN", "16")
	t.Setenv("CONVLSTM_DEBUG", "1")

	got := Values()
	want := map[string]string{
		"CONVLSTM_INPUT_SHAPE": "3,8,8",
		"CONVLSTM_HIDDEN":      "16",
		"CONVLSTM_DEBUG":       "DEBUG",
	}
	for k, v := range want {
		if diff := cmp.Diff(v, got[k]); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", k, diff)
		}
	}
	if len(got) != len(AsMap()) {
		t.Errorf("Values() has %d entries, AsMap() has %d", len(got), len(AsMap()))
	}
}
