package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Garsondee/tactical-vision/internal/config"
	"github.com/Garsondee/tactical-vision/internal/logging"
	"github.com/Garsondee/tactical-vision/internal/scenario"
	"github.com/Garsondee/tactical-vision/internal/vision"
)

type options struct {
	configDir string
	scenario  string
	view      string
	masksDir  string
	pngPath   string
	save      string
	list      bool
	copy      bool
	verbose   bool
}

func main() {
	var opt options
	flag.StringVar(&opt.configDir, "config", ".", "directory containing "+config.FileName)
	flag.StringVar(&opt.scenario, "scenario", "", "stored scenario name (default layout when empty)")
	flag.StringVar(&opt.view, "view", "", "override view: off, blue, red, both")
	flag.StringVar(&opt.masksDir, "masks", "", "override mask directory")
	flag.StringVar(&opt.pngPath, "png", "", "write the fog overlay to this PNG file")
	flag.StringVar(&opt.save, "save", "", "store the evaluated scenario under this name")
	flag.BoolVar(&opt.list, "list", false, "list stored scenarios and exit")
	flag.BoolVar(&opt.copy, "copy", false, "copy the report to the clipboard")
	flag.BoolVar(&opt.verbose, "verbose", false, "include per-pass and per-zone events")
	flag.Parse()

	cfgErr := config.Load(opt.configDir)
	logger := logging.New(logging.Config{
		Level:  viper.GetString("logLevel"),
		Format: viper.GetString("logFormat"),
		Output: os.Stderr,
	})
	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("running on default configuration")
	}

	if err := run(opt, logger); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

func run(opt options, logger zerolog.Logger) error {
	var store *scenario.Store
	if opt.list || opt.save != "" || opt.scenario != "" {
		var err error
		store, err = scenario.Open(viper.GetString("store.driver"), viper.GetString("store.dsn"), logger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if opt.list {
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	}

	sc := scenario.Default()
	if opt.scenario != "" {
		var err error
		if sc, err = store.Load(opt.scenario); err != nil {
			return err
		}
	}
	if opt.view != "" {
		sc.View = opt.view
	}

	masksDir := viper.GetString("masks.dir")
	if opt.masksDir != "" {
		masksDir = opt.masksDir
	}
	files := scenario.DefaultMaskFiles()
	files.Walls = viper.GetString("masks.walls")
	files.Foliage = viper.GetString("masks.foliage")
	masks, err := scenario.LoadMasks(masksDir, files, sc.Zones, logger)
	if err != nil {
		return err
	}

	events := vision.NewEventLog(opt.verbose)
	engine := vision.NewEngine(masks, config.VisionParams(),
		vision.WithLogger(logger),
		vision.WithEventLog(events),
		vision.WithBoardSize(viper.GetInt("board.size")),
	)
	snap := sc.Snapshot()
	decayed := applyDecay(&snap, time.Now(), engine.Params())
	res, err := engine.Compute(context.Background(), snap)
	if err != nil {
		return err
	}

	report := buildReport(sc.Name, snap, res, decayed, events)
	fmt.Print(report)

	if opt.pngPath != "" {
		if err := writeFog(opt.pngPath, res); err != nil {
			return err
		}
		fmt.Printf("fog written to %s\n", opt.pngPath)
	}
	if opt.copy {
		if err := clipboard.WriteAll(report); err != nil {
			return fmt.Errorf("copying report: %w", err)
		}
		fmt.Println("report copied to clipboard")
	}
	if opt.save != "" {
		sc.Name = opt.save
		sc.Sensors = res.Sensors
		if err := store.Save(sc); err != nil {
			return err
		}
		fmt.Printf("scenario saved as %q\n", opt.save)
	}
	return nil
}

// applyDecay brings long-range sensors up to date with their placement
// age and returns the ids that reached the reduced range.
func applyDecay(snap *vision.Snapshot, now time.Time, p vision.Params) []string {
	var decayed []string
	snap.Sensors, decayed = vision.ApplyDecay(snap.Sensors, now, p)
	return decayed
}

func writeFog(path string, res *vision.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, res.Fog); err != nil {
		f.Close()
		return fmt.Errorf("encoding fog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func buildReport(name string, snap vision.Snapshot, res *vision.Result, decayed []string, events *vision.EventLog) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Vision Report ===\n")
	fmt.Fprintf(&sb, "scenario=%s view=%s ready=%t board=%d pass=%d elapsed=%s\n",
		name, res.View, res.Ready, res.BoardSize, res.Seq, res.Elapsed)
	fmt.Fprintf(&sb, "lit=%s sources=%d activations=%d\n\n",
		pct(res.LitFraction()), len(res.Sources), len(res.Activations))

	if len(res.Polygons) > 0 {
		fmt.Fprintf(&sb, "--- Sources ---\n")
		for _, lp := range res.Polygons {
			fmt.Fprintf(&sb, "  %-22s range=%.4f foliage=%-5t area=%s\n",
				lp.Source.EntityID, lp.Source.Range, lp.Source.InFoliage, polygonArea(lp))
		}
		sb.WriteByte('\n')
	}

	fmt.Fprintf(&sb, "--- Visibility ---\n")
	shown, hidden := visibilityLists(snap, res)
	fmt.Fprintf(&sb, "visible(%d): %s\n", len(shown), strings.Join(shown, ", "))
	fmt.Fprintf(&sb, "hidden(%d): %s\n", len(hidden), strings.Join(hidden, ", "))

	var disabled []string
	for _, s := range res.Sensors {
		if s.Disabled {
			disabled = append(disabled, s.ID)
		}
	}
	if len(disabled) > 0 {
		sort.Strings(disabled)
		fmt.Fprintf(&sb, "disabled_sensors: %s\n", strings.Join(disabled, ", "))
	}
	if len(decayed) > 0 {
		fmt.Fprintf(&sb, "decayed_sensors: %s\n", strings.Join(decayed, ", "))
	}
	for _, a := range res.Activations {
		fmt.Fprintf(&sb, "zone_active: %s team=%s via=%s\n", a.ZoneID, a.Team, a.SensorID)
	}

	if n := events.Len(); n > 0 {
		fmt.Fprintf(&sb, "\n--- Events (%d) ---\n", n)
		sb.WriteString(events.Format())
	}
	return sb.String()
}

// polygonArea reports the fan area through its simplefeatures geometry so
// the exported shape is what gets measured.
func polygonArea(lp vision.LightPolygon) string {
	g, err := lp.Geometry()
	if err != nil {
		return "n/a"
	}
	return fmt.Sprintf("%.5f", g.Area())
}

// visibilityLists splits every entity id into sorted visible and hidden lists.
func visibilityLists(snap vision.Snapshot, res *vision.Result) (shown, hidden []string) {
	var ids []string
	for _, u := range snap.Units {
		ids = append(ids, u.ID)
	}
	for _, st := range snap.Structures {
		ids = append(ids, st.ID)
	}
	for _, s := range res.Sensors {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if res.IsVisible(id) {
			shown = append(shown, id)
		} else {
			hidden = append(hidden, id)
		}
	}
	return shown, hidden
}

func pct(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
