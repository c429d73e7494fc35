package config_test

import (
	"errors"
	"testing"

	"github.com/okian/furlong/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 100)
			convey.So(cfg.ConfidenceThreshold, convey.ShouldEqual, 0.65)
			convey.So(cfg.FusionStrategy, convey.ShouldEqual, "mean")
			convey.So(cfg.StreakLength, convey.ShouldEqual, 4)
			convey.So(cfg.DefaultFieldSize, convey.ShouldEqual, 15)
			convey.So(cfg.FallbackEnabled, convey.ShouldBeFalse)
			convey.So(cfg.HistoryBackend, convey.ShouldEqual, config.HistoryNone)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several bad settings", t, func() {
		cfg := config.New()
		cfg.MaxBatchSize = 0
		cfg.ConfidenceThreshold = 1.5
		cfg.FusionStrategy = "median"
		cfg.HistoryBackend = "postgres"
		cfg.ModelWeights = map[string]float64{"xgboost": -1}
		cfg.DefaultFieldSize = 1

		convey.Convey("When it is validated", func() {
			err := cfg.Validate()

			convey.Convey("Then every problem is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				msg := err.Error()
				convey.So(msg, convey.ShouldContainSubstring, "max_batch_size")
				convey.So(msg, convey.ShouldContainSubstring, "confidence_threshold")
				convey.So(msg, convey.ShouldContainSubstring, "fusion_strategy")
				convey.So(msg, convey.ShouldContainSubstring, "history_backend")
				convey.So(msg, convey.ShouldContainSubstring, "model_weights[xgboost]")
				convey.So(msg, convey.ShouldContainSubstring, "default_field_size")
			})
		})

		convey.Convey("When the redis backend has no address", func() {
			cfg := config.New()
			cfg.HistoryBackend = config.HistoryRedis
			cfg.RedisAddr = ""

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
