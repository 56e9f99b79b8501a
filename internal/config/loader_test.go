package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/smartystreets/goconvey/convey"

	"github.com/pable/go-lineup-metrics/internal/config"
	"github.com/pable/go-lineup-metrics/internal/errkind"
)

var configEnvVars = []string{
	"LINEUPS_CONFIG",
	"LINEUPS_DB_PATH",
	"LINEUPS_WORKERS",
	"LINEUPS_MIN_SAMPLE_LOW",
	"LINEUPS_MIN_SAMPLE_HIGH",
	"LINEUPS_LOG_FORMAT",
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		for _, k := range configEnvVars {
			t.Setenv(k, "")
			_ = os.Unsetenv(k)
		}

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MinSampleLow, convey.ShouldEqual, 100)
				convey.So(cfg.MinSampleHigh, convey.ShouldEqual, 400)
				convey.So(cfg.HTTPAddr, convey.ShouldEqual, ":8090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "console")
				convey.So(cfg.Workers, convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When environment variables are set", func() {
			t.Setenv("LINEUPS_DB_PATH", "/tmp/x.db")
			t.Setenv("LINEUPS_WORKERS", "3")
			t.Setenv("LINEUPS_MIN_SAMPLE_LOW", "20")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/x.db")
				convey.So(cfg.Workers, convey.ShouldEqual, 3)
				convey.So(cfg.MinSampleLow, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When a YAML file is named", func() {
			path := filepath.Join(t.TempDir(), "lineups.yaml")
			err := os.WriteFile(path, []byte("workers: 7\nlog_format: json\nmin_sample_high: 900\n"), 0o600)
			convey.So(err, convey.ShouldBeNil)
			t.Setenv("LINEUPS_CONFIG", path)
			t.Setenv("LINEUPS_WORKERS", "9")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.MinSampleHigh, convey.ShouldEqual, 900)
				convey.So(cfg.Workers, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When thresholds are inverted", func() {
			t.Setenv("LINEUPS_MIN_SAMPLE_LOW", "500")
			t.Setenv("LINEUPS_MIN_SAMPLE_HIGH", "100")

			_, err := config.Load(ctx)

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(crerr.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(crerr.Is(err, config.ErrLoadConfig), convey.ShouldBeFalse)
				convey.So(errkind.IsConfig(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file is missing", func() {
			t.Setenv("LINEUPS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(crerr.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(crerr.Is(err, config.ErrInvalidConfig), convey.ShouldBeFalse)
				convey.So(errkind.IsConfig(err), convey.ShouldBeTrue)
			})
		})
	})
}
