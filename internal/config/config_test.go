package config_test

import (
	"runtime"
	"testing"

	"github.com/musterhq/muster/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.WarningLimit, convey.ShouldEqual, 2)
			convey.So(cfg.EventLogCap, convey.ShouldEqual, 50)
			convey.So(cfg.StaleThresholdMS, convey.ShouldEqual, 0)
			convey.So(cfg.SafeFallback, convey.ShouldBeTrue)
			convey.So(cfg.DefaultMode, convey.ShouldEqual, "realtime")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
		})
	})
}
