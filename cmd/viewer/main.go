package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Garsondee/tactical-vision/internal/config"
	"github.com/Garsondee/tactical-vision/internal/logging"
	"github.com/Garsondee/tactical-vision/internal/scenario"
	"github.com/Garsondee/tactical-vision/internal/viewer"
	"github.com/Garsondee/tactical-vision/internal/vision"
)

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	name := flag.String("scenario", "", "load a stored scenario instead of the default layout")
	flag.Parse()

	cfgErr := config.Load(*configDir)
	logger := logging.New(logging.Config{
		Level:  viper.GetString("logLevel"),
		Format: viper.GetString("logFormat"),
		Output: os.Stderr,
	})
	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("running on default configuration")
	}

	cfg, err := setup(*name, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("starting viewer")
	}
	g := viewer.New(cfg)
	defer g.Close()

	w, h := g.Size()
	ebiten.SetWindowTitle("Tactical Vision")
	ebiten.SetWindowSize(w, h)
	if err := ebiten.RunGame(g); err != nil {
		g.Close()
		logger.Fatal().Err(err).Msg("viewer stopped")
	}
}

// setup loads the scenario and masks named by the configuration and builds
// the engine the viewer runs on.
func setup(name string, logger zerolog.Logger) (viewer.Config, error) {
	sc := scenario.Default()
	if name != "" {
		store, err := scenario.Open(viper.GetString("store.driver"), viper.GetString("store.dsn"), logger)
		if err != nil {
			return viewer.Config{}, err
		}
		sc, err = store.Load(name)
		_ = store.Close()
		if err != nil {
			return viewer.Config{}, fmt.Errorf("loading scenario %q: %w", name, err)
		}
	}

	files := scenario.DefaultMaskFiles()
	files.Walls = viper.GetString("masks.walls")
	files.Foliage = viper.GetString("masks.foliage")
	masks, err := scenario.LoadMasks(viper.GetString("masks.dir"), files, sc.Zones, logger)
	if err != nil {
		return viewer.Config{}, err
	}

	events := vision.NewEventLog(false)
	engine := vision.NewEngine(masks, config.VisionParams(),
		vision.WithLogger(logger),
		vision.WithEventLog(events),
		vision.WithBoardSize(viper.GetInt("board.size")),
	)
	return viewer.Config{
		Engine: engine,
		Masks:  masks,
		Snap:   sc.Snapshot(),
		Events: events,
		Log:    logger,
	}, nil
}
