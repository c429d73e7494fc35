package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/furlong/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ManifestPath, convey.ShouldEqual, "models/manifest.yaml")
				convey.So(cfg.ScorerConcurrency, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FURLONG_ADDR", ":8080")
			_ = os.Setenv("FURLONG_MAX_BATCH_SIZE", "50")
			_ = os.Setenv("FURLONG_CONFIDENCE_THRESHOLD", "0.7")
			_ = os.Setenv("FURLONG_FALLBACK_ENABLED", "true")
			_ = os.Setenv("FURLONG_FUSION_STRATEGY", "minmax")

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 50)
				convey.So(cfg.ConfidenceThreshold, convey.ShouldEqual, 0.7)
				convey.So(cfg.FallbackEnabled, convey.ShouldBeTrue)
				convey.So(cfg.FusionStrategy, convey.ShouldEqual, "minmax")
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
max_batch_size: 20
fusion_strategy: weighted
model_weights:
  xgboost: 2.5
  lightgbm: 1
history_backend: redis
redis_addr: "redis:6379"
`)
			_ = os.Setenv("FURLONG_CONFIG", path)
			_ = os.Setenv("FURLONG_MAX_BATCH_SIZE", "30")

			cfg, err := config.Load()

			convey.Convey("Then env wins over the file and the file over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 30)
				convey.So(cfg.FusionStrategy, convey.ShouldEqual, "weighted")
				convey.So(cfg.ModelWeights["xgboost"], convey.ShouldEqual, 2.5)
				convey.So(cfg.HistoryBackend, convey.ShouldEqual, config.HistoryRedis)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "redis:6379")
				convey.So(cfg.StreakLength, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("FURLONG_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("FURLONG_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load()

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("FURLONG_ADDR", "")

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}
