package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/basti85goe/geobridge/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"GEOBRIDGE_CONFIG",
	"GEOBRIDGE_ADDR",
	"GEOBRIDGE_SSL",
	"GEOBRIDGE_CERT_FILE",
	"GEOBRIDGE_KEY_FILE",
	"GEOBRIDGE_ACTIVATE_SERVER",
	"GEOBRIDGE_CREATE",
	"GEOBRIDGE_USER_GROUP_NAME",
	"GEOBRIDGE_USER_NAME",
	"GEOBRIDGE_USER_PASSWORD",
	"GEOBRIDGE_ACTIVATE_RELAY",
	"GEOBRIDGE_RELAY_SERVER",
	"GEOBRIDGE_LOG_LEVEL",
	"GEOBRIDGE_STORE_BACKEND",
	"GEOBRIDGE_BADGER_DIR",
	"GEOBRIDGE_QUEUE_SIZE",
	"GEOBRIDGE_WORKER_COUNT",
}

func clearConfigEnvVars() {
	for _, v := range configEnvVars {
		_ = os.Unsetenv(v)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":51988")
				convey.So(cfg.ActivateServer, convey.ShouldBeTrue)
				convey.So(cfg.Create, convey.ShouldBeTrue)
				convey.So(cfg.SSL, convey.ShouldBeFalse)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GEOBRIDGE_ADDR", ":8080")
			_ = os.Setenv("GEOBRIDGE_USER_NAME", "webhook")
			_ = os.Setenv("GEOBRIDGE_STORE_BACKEND", "badger")
			_ = os.Setenv("GEOBRIDGE_QUEUE_SIZE", "500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment overrides the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.UserName, convey.ShouldEqual, "webhook")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendBadger)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config from a YAML file", func() {
			path := filepath.Join(t.TempDir(), "geobridge.yaml")
			yaml := "addr: \":9000\"\nuser_group_name: bridge\nworker_count: 3\n"
			convey.So(os.WriteFile(path, []byte(yaml), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("GEOBRIDGE_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values layer over the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9000")
				convey.So(cfg.UserGroupName, convey.ShouldEqual, "bridge")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})

			convey.Convey("And the environment still wins over the file", func() {
				_ = os.Setenv("GEOBRIDGE_ADDR", ":9001")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9001")
			})
		})

		convey.Convey("When ssl is enabled without a certificate pair", func() {
			_ = os.Setenv("GEOBRIDGE_SSL", "true")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the relay is active without a relay server", func() {
			_ = os.Setenv("GEOBRIDGE_ACTIVATE_RELAY", "true")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("When the store backend is unknown", func() {
			_ = os.Setenv("GEOBRIDGE_STORE_BACKEND", "etcd")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
