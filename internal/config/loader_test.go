package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/recicla/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:9080")
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.MutationQueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.RecentLimit, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("RECICLA_ADDR", "127.0.0.1:8080")
			_ = os.Setenv("RECICLA_MUTATION_QUEUE_SIZE", "32")
			_ = os.Setenv("RECICLA_STORAGE_DRIVER", "sqlite")
			_ = os.Setenv("RECICLA_SQLITE_PATH", "/tmp/recicla-test.db")
			_ = os.Setenv("RECICLA_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:8080")
				convey.So(cfg.MutationQueueSize, convey.ShouldEqual, 32)
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/recicla-test.db")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# classroom laptop
addr: "127.0.0.1:9090"
mutation_queue_size: 64
dedupe_size: 10
recent_limit: 10  # show more activity
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RECICLA_CONFIG", tmpFile)
			_ = os.Setenv("RECICLA_DEDUPE_SIZE", "20")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, "127.0.0.1:9090")
				convey.So(cfg.MutationQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.RecentLimit, convey.ShouldEqual, 10)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 20)
				convey.So(cfg.MaxRecentLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("RECICLA_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("RECICLA_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("RECICLA_MUTATION_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("RECICLA_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown storage driver", func() {
			_ = os.Setenv("RECICLA_STORAGE_DRIVER", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"RECICLA_CONFIG",
		"RECICLA_ADDR",
		"RECICLA_LOG_FORMAT",
		"RECICLA_MUTATION_QUEUE_SIZE",
		"RECICLA_STORAGE_DRIVER",
		"RECICLA_SQLITE_PATH",
		"RECICLA_DEDUPE_SIZE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "recicla-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
