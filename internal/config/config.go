package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/Garsondee/tactical-vision/internal/vision"
)

// FileName is the config file looked up in the config directory.
const FileName = "tactical_vision.cfg.json"

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; tools that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "console")

	viper.SetDefault("board.size", vision.DefaultBoardSize)
	viper.SetDefault("board.view", "blue")

	viper.SetDefault("masks.dir", "./masks")
	viper.SetDefault("masks.walls", "walls.png")
	viper.SetDefault("masks.foliage", "brush.png")

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "tactical_vision.db")

	d := vision.DefaultParams()
	viper.SetDefault("vision.rayCount", d.RayCount)
	viper.SetDefault("vision.stepCount", d.StepCount)
	viper.SetDefault("vision.workers", d.Workers)
	viper.SetDefault("vision.unitRange", d.UnitRange)
	viper.SetDefault("vision.standardRange", d.StandardRange)
	viper.SetDefault("vision.suppressorRange", d.SuppressorRange)
	viper.SetDefault("vision.longRangeInitial", d.LongRangeInitial)
	viper.SetDefault("vision.longRangeReduced", d.LongRangeReduced)
	viper.SetDefault("vision.tierRanges.outer", d.TierRanges[vision.TierOuter])
	viper.SetDefault("vision.tierRanges.inner", d.TierRanges[vision.TierInner])
	viper.SetDefault("vision.tierRanges.inhibitor", d.TierRanges[vision.TierInhibitor])
	viper.SetDefault("vision.tierRanges.nexus", d.TierRanges[vision.TierNexus])
	viper.SetDefault("vision.disableRadius", d.DisableRadius)
	viper.SetDefault("vision.sameFoliageRadius", d.SameFoliageRadius)
	viper.SetDefault("vision.decayDelay", d.DecayDelay.String())
	viper.SetDefault("vision.decayPollInterval", d.DecayPollInterval.String())
}

// VisionParams maps the vision.* keys onto engine tuning. Unparseable
// durations fall back to the defaults.
func VisionParams() vision.Params {
	d := vision.DefaultParams()
	p := vision.Params{
		RayCount:          viper.GetInt("vision.rayCount"),
		StepCount:         viper.GetInt("vision.stepCount"),
		Workers:           viper.GetInt("vision.workers"),
		UnitRange:         viper.GetFloat64("vision.unitRange"),
		StandardRange:     viper.GetFloat64("vision.standardRange"),
		SuppressorRange:   viper.GetFloat64("vision.suppressorRange"),
		LongRangeInitial:  viper.GetFloat64("vision.longRangeInitial"),
		LongRangeReduced:  viper.GetFloat64("vision.longRangeReduced"),
		DisableRadius:     viper.GetFloat64("vision.disableRadius"),
		SameFoliageRadius: viper.GetFloat64("vision.sameFoliageRadius"),
		DecayDelay:        durationOr("vision.decayDelay", d.DecayDelay),
		DecayPollInterval: durationOr("vision.decayPollInterval", d.DecayPollInterval),
	}
	p.TierRanges[vision.TierOuter] = viper.GetFloat64("vision.tierRanges.outer")
	p.TierRanges[vision.TierInner] = viper.GetFloat64("vision.tierRanges.inner")
	p.TierRanges[vision.TierInhibitor] = viper.GetFloat64("vision.tierRanges.inhibitor")
	p.TierRanges[vision.TierNexus] = viper.GetFloat64("vision.tierRanges.nexus")
	return p
}

func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
