package config_test

import (
	"errors"
	"testing"

	"github.com/okian/recicla/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 1024)
			convey.So(cfg.MaxRecentLimit, convey.ShouldEqual, 100)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the queue size is zero", func() {
			cfg.MutationQueueSize = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When sqlite is selected without a path", func() {
			cfg.StorageDriver = config.DriverSQLite
			cfg.SQLitePath = " "
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the recent limit exceeds its cap", func() {
			cfg.RecentLimit = 500
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the dedupe window is disabled", func() {
			cfg.DedupeSize = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
