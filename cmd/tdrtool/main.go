// tdrtool is a CLI utility for inspecting and checking tdr2024 track assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/tdr2024/internal/browser"
	"github.com/Faultbox/tdr2024/internal/config"
	"github.com/Faultbox/tdr2024/internal/integrity"
	"github.com/Faultbox/tdr2024/internal/logger"
	"github.com/Faultbox/tdr2024/internal/objectmap"
	"github.com/Faultbox/tdr2024/internal/race"
	"github.com/Faultbox/tdr2024/internal/track"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "tiles", "ls":
		cmdTiles(args)
	case "validate", "check":
		cmdValidate(args)
	case "browse":
		cmdBrowse(args)
	case "objects":
		cmdObjects(args)
	case "guidance":
		cmdGuidance(args)
	case "route":
		cmdRoute(args)
	case "race":
		cmdRace(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tdrtool - tdr2024 track asset utility

Usage:
  tdrtool <command> [options]

Commands:
  info <file.tsx|file.tmx>          Show tileset or map information
  tiles <file.tsx>                  List tiles with their images
  validate <file>...                Check tile ids and referenced images
  browse <file.tsx|file.tmx>        Browse tiles and their problems interactively
  objects <file.tmx>                List scenery placements
  guidance <file.tmx> <out.png>     Render the AI guidance field
  route <file.tmx> <x,y> [x,y]      Shortest on-track path between tiles
  race [file.tmx]                   Run a headless race and print the result
  config [-save]                    Print the effective configuration

Common options:
  -config <file>   Config file (default ./tdr2024.yaml)
  -root <dirs>     Comma-separated asset directories
  -debug           Debug logging
  -quiet           No console logging

Examples:
  tdrtool info assets/tdr2024.tsx
  tdrtool validate -root assets assets/tdr2024.tsx assets/level1.tmx
  tdrtool validate -report report.html assets/level*.tmx
  tdrtool guidance assets/level1.tmx guidance.png
  tdrtool route assets/level1.tmx 3,10 12,2
  tdrtool race -steps 1200 -level 2`)
}

// setup parses the shared flags, loads config and starts logging.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatal(err)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, !cfg.Logging.Quiet); err != nil {
		fatal(err)
	}
	return cfg
}

func fatal(err error) {
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool info <file.tsx|file.tmx>")
		os.Exit(1)
	}

	src, err := openSource(cfg, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer src.close()

	if isMap(src.name) {
		m, err := tiled.LoadMap(src.assets, src.name)
		if err != nil {
			fatal(err)
		}
		printMapInfo(fs.Arg(0), m)
		return
	}

	ts, err := tiled.LoadTileset(src.assets, src.name)
	if err != nil {
		fatal(err)
	}
	printTilesetInfo(fs.Arg(0), ts)
}

func printTilesetInfo(name string, ts *tiled.Tileset) {
	kind := "image collection"
	if !ts.IsCollection() {
		kind = fmt.Sprintf("atlas %dx%d", ts.AtlasColumns(), ts.AtlasRows())
	}

	fmt.Println(titleStyle.Render("Tileset " + ts.Name))
	fmt.Println(field("File:", name))
	fmt.Println(field("Kind:", kind))
	fmt.Println(field("Tile size:", fmt.Sprintf("%dx%d", ts.TileWidth, ts.TileHeight)))
	fmt.Println(field("Tile count:", ts.TileCount))
	fmt.Println(field("Entries:", len(ts.Tiles)))
	if ts.TiledVersion != "" {
		fmt.Println(field("Tiled:", ts.TiledVersion))
	}
	for _, p := range ts.Properties {
		fmt.Println(field(p.Name+":", p.Value))
	}
}

func printMapInfo(name string, m *tiled.Map) {
	pw, ph := m.PixelSize()

	fmt.Println(titleStyle.Render("Map " + path.Base(name)))
	fmt.Println(field("Size:", fmt.Sprintf("%dx%d tiles (%dx%d px)", m.Width, m.Height, pw, ph)))
	fmt.Println(field("Tile size:", fmt.Sprintf("%dx%d", m.TileWidth, m.TileHeight)))
	fmt.Println(field("Orientation:", m.Orientation))
	fmt.Println()

	fmt.Println(titleStyle.Render("Tilesets"))
	for _, mt := range m.Tilesets {
		source := mt.Source
		if source == "" {
			source = "(embedded)"
		}
		fmt.Printf("  %-6d %-20s %4d tiles  %s\n", mt.FirstGID, mt.Name, mt.TileCount, source)
	}
	fmt.Println()

	fmt.Println(titleStyle.Render("Layers"))
	for i, l := range m.Layers {
		switch l := l.(type) {
		case *tiled.TileLayer:
			fmt.Printf("  %d  %-20s tiles    %d/%d set\n", i, l.Name, l.Count(), len(l.GIDs))
		case *tiled.ObjectGroup:
			fmt.Printf("  %d  %-20s objects  %d\n", i, l.Name, len(l.Objects))
		}
	}
	if tl, err := track.TrackLayer(m); err == nil {
		fmt.Println()
		fmt.Println(field("Track:", tl.Name))
	}
}

func cmdTiles(args []string) {
	fs := flag.NewFlagSet("tiles", flag.ExitOnError)
	kind := fs.String("kind", "", "Only list tiles of this class")
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool tiles <file.tsx>")
		os.Exit(1)
	}

	src, err := openSource(cfg, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer src.close()

	ts, err := tiled.LoadTileset(src.assets, src.name)
	if err != nil {
		fatal(err)
	}

	count := 0
	for _, t := range ts.Tiles {
		if *kind != "" && t.Kind() != *kind {
			continue
		}
		size, source := "-", "-"
		if t.Image != nil {
			size = fmt.Sprintf("%dx%d", t.Image.Width, t.Image.Height)
			source = ts.ImagePath(t.Image)
		}
		fmt.Printf("%4d  %-10s %-9s %s\n", t.ID, t.Kind(), size, source)
		count++
	}
	fmt.Fprintf(os.Stderr, "\n(%d tiles)\n", count)
}

func cmdValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	noImages := fs.Bool("no-images", false, "Skip image existence and size checks")
	allowGaps := fs.Bool("allow-gaps", false, "Report gaps in tile ids as warnings")
	reportFile := fs.String("report", "", "Also write the report to a .md or .html file")
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool validate <file.tsx|file.tmx>...")
		os.Exit(1)
	}

	opts := integrity.Options{
		CheckImages:       cfg.Validation.CheckImages && !*noImages,
		RequireContiguous: cfg.Validation.RequireContiguous && !*allowGaps,
		Workers:           cfg.Validation.Workers,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Validation.Timeout)
	defer cancel()

	var (
		errCount, warnCount int
		combined            integrity.Report
	)
	for _, file := range fs.Args() {
		report, err := validateFile(ctx, cfg, file, opts)
		if err != nil {
			fmt.Println(errorStyle.Render("✗ "+file) + "  " + err.Error())
			errCount++
			continue
		}
		printReport(file, report)
		errCount += len(report.Errors())
		warnCount += len(report.Warnings())
		combined.Merge(report)
	}

	if *reportFile != "" {
		if err := writeReport(*reportFile, &combined); err != nil {
			fatal(err)
		}
		logger.Info("wrote report", zap.String("file", *reportFile))
	}

	summary := fmt.Sprintf("%d files, %d errors, %d warnings", fs.NArg(), errCount, warnCount)
	if errCount > 0 {
		fmt.Println(summaryStyle.Render(errorStyle.Render(summary)))
		logger.Sync()
		os.Exit(1)
	}
	fmt.Println(summaryStyle.Render(okStyle.Render(summary)))
}

func validateFile(ctx context.Context, cfg *config.Config, file string, opts integrity.Options) (*integrity.Report, error) {
	src, err := openSource(cfg, file)
	if err != nil {
		return nil, err
	}
	defer src.close()

	logger.Debug("validating", zap.String("file", file), zap.Strings("sources", src.assets.Sources()))

	if isMap(src.name) {
		m, err := tiled.LoadMap(src.assets, src.name)
		if err != nil {
			return nil, err
		}
		return integrity.CheckMap(ctx, m, src.assets, opts)
	}

	ts, err := tiled.LoadTileset(src.assets, src.name)
	if err != nil {
		return nil, err
	}
	return integrity.CheckTileset(ctx, ts, src.assets, opts)
}

// writeReport writes r as HTML when file ends in .html, Markdown otherwise.
func writeReport(file string, r *integrity.Report) error {
	const title = "tdr2024 asset report"

	out := r.Markdown(title)
	if ext := strings.ToLower(filepath.Ext(file)); ext == ".html" || ext == ".htm" {
		html, err := r.HTML(title)
		if err != nil {
			return err
		}
		out = html
	}
	return os.WriteFile(file, []byte(out), 0644)
}

func printReport(file string, r *integrity.Report) {
	if len(r.Diagnostics) == 0 {
		fmt.Println(okStyle.Render("✓ " + file))
		return
	}

	mark := warningStyle.Render("! " + file)
	if !r.OK() {
		mark = errorStyle.Render("✗ " + file)
	}
	fmt.Println(mark)

	for _, d := range r.Diagnostics {
		where := d.Subject
		if d.TileID != integrity.NoTile {
			where = fmt.Sprintf("%s tile %d", d.Subject, d.TileID)
		}
		fmt.Printf("  %s %s: %s %s\n",
			styleForSeverity(d.Severity).Render(fmt.Sprintf("%-7s", d.Severity)),
			where,
			d.Message,
			ruleStyle.Render("["+d.Rule+"]"))
	}
}

func cmdBrowse(args []string) {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool browse <file.tsx|file.tmx>")
		os.Exit(1)
	}

	src, err := openSource(cfg, fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer src.close()

	opts := integrity.Options{
		CheckImages:       cfg.Validation.CheckImages,
		RequireContiguous: cfg.Validation.RequireContiguous,
		Workers:           cfg.Validation.Workers,
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Validation.Timeout)
	defer cancel()

	var (
		tilesets []*tiled.Tileset
		report   *integrity.Report
	)
	if isMap(src.name) {
		m, err := tiled.LoadMap(src.assets, src.name)
		if err != nil {
			fatal(err)
		}
		for _, mt := range m.Tilesets {
			tilesets = append(tilesets, mt.Tileset)
		}
		report, err = integrity.CheckMap(ctx, m, src.assets, opts)
		if err != nil {
			fatal(err)
		}
	} else {
		ts, err := tiled.LoadTileset(src.assets, src.name)
		if err != nil {
			fatal(err)
		}
		tilesets = append(tilesets, ts)
		report, err = integrity.CheckTileset(ctx, ts, src.assets, opts)
		if err != nil {
			fatal(err)
		}
	}

	if err := browser.Run(path.Base(src.name), browser.Entries(report, tilesets...)); err != nil {
		fatal(err)
	}
}

func cmdObjects(args []string) {
	fs := flag.NewFlagSet("objects", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool objects <file.tmx>")
		os.Exit(1)
	}

	m, closeSrc := loadMap(cfg, fs.Arg(0))
	defer closeSrc()

	placed, errs := objectmap.Place(m)
	for _, err := range errs {
		logger.Warn("skipping object", zap.Error(err))
	}

	for _, p := range placed {
		fmt.Printf("%4d  %-6s (%8.1f, %8.1f)  %3dx%-3d  %s\n",
			p.ObjectID, p.Collider, p.Position.X, p.Position.Y,
			p.Image.Width, p.Image.Height, p.ImagePath)
	}
	fmt.Fprintf(os.Stderr, "\n(%d placed, %d skipped)\n", len(placed), len(errs))
}

func cmdGuidance(args []string) {
	fs := flag.NewFlagSet("guidance", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool guidance <file.tmx> <out.png>")
		os.Exit(1)
	}

	m, closeSrc := loadMap(cfg, fs.Arg(0))
	defer closeSrc()

	field, err := track.NewGuidanceField(m, guidanceParams(cfg))
	if err != nil {
		fatal(err)
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		fatal(err)
	}
	defer out.Close()

	if err := png.Encode(out, field.Image()); err != nil {
		fatal(fmt.Errorf("writing %s: %w", fs.Arg(1), err))
	}

	w, h := field.Size()
	fmt.Printf("Wrote %dx%d guidance field to %s\n", w, h, fs.Arg(1))
}

func cmdRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tdrtool route <file.tmx> <x,y> [x,y]")
		os.Exit(1)
	}

	m, closeSrc := loadMap(cfg, fs.Arg(0))
	defer closeSrc()

	router, err := track.NewRouter(m)
	if err != nil {
		fatal(err)
	}

	start, err := parseTile(fs.Arg(1))
	if err != nil {
		fatal(err)
	}
	if !router.OnTrack(start) {
		fatal(fmt.Errorf("tile %v is not on the track", start))
	}

	fmt.Println(field("Reachable:", fmt.Sprintf("%d tiles from %v", router.Reachable(start), start)))
	if fs.NArg() < 3 {
		return
	}

	goal, err := parseTile(fs.Arg(2))
	if err != nil {
		fatal(err)
	}
	route := router.FindPath(start, goal)
	if route == nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("No on-track path from %v to %v", start, goal)))
		logger.Sync()
		os.Exit(1)
	}

	steps := make([]string, len(route))
	for i, p := range route {
		steps[i] = fmt.Sprintf("%d,%d", p.X, p.Y)
	}
	fmt.Println(field("Length:", len(route)))
	fmt.Println(field("Path:", strings.Join(steps, " ")))
}

// parseTile parses a tile coordinate written as "x,y".
func parseTile(s string) (image.Point, error) {
	var p image.Point
	if _, err := fmt.Sscanf(s, "%d,%d", &p.X, &p.Y); err != nil {
		return image.Point{}, fmt.Errorf("invalid tile %q, want x,y: %w", s, err)
	}
	return p, nil
}

func cmdRace(args []string) {
	fs := flag.NewFlagSet("race", flag.ExitOnError)
	steps := fs.Int("steps", 0, "Number of steps (default from config)")
	dt := fs.Duration("dt", 0, "Step length (default from config)")
	penalizeAI := fs.Bool("penalize-ai", false, "Apply time penalties to AI racers")
	cfg := setup(fs, args)
	defer logger.Sync()

	if *steps > 0 {
		cfg.Race.Steps = *steps
	}
	if *dt > 0 {
		cfg.Race.Tick = *dt
	}

	file := cfg.LevelPath()
	if fs.NArg() > 0 {
		file = fs.Arg(0)
	}

	m, closeSrc := loadMap(cfg, file)
	defer closeSrc()

	opts := race.DefaultOptions()
	opts.Guidance = guidanceParams(cfg)
	opts.PenalizeAI = *penalizeAI
	opts.Debug = cfg.Race.Debug

	world, err := race.NewWorld(m, opts)
	if err != nil {
		fatal(err)
	}

	// the player drives on autopilot
	autopilot := func(w *race.World) race.Controls {
		return w.Autopilot(w.Player())
	}
	tick := float32(cfg.Race.Tick.Seconds())
	if err := world.Run(context.Background(), cfg.Race.Steps, tick, autopilot); err != nil {
		fatal(err)
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("After %.1fs (%d steps)", world.Elapsed, world.Steps)))
	for _, r := range world.Racers {
		name := r.Name
		if r.Player {
			name += "*"
		}
		fmt.Printf("  %-8s (%8.1f, %8.1f)  speed %6.1f  penalties %5.1f\n",
			name, r.Position.X, r.Position.Y, r.Speed(), r.TotalPenalty)
	}
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write the effective config to the user config directory")
	cfg := setup(fs, args)
	defer logger.Sync()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fatal(err)
	}
	fmt.Print(string(data))

	if *save {
		if err := cfg.Save(); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", filepath.Join(config.ConfigDir(), config.FileName))
	}
}

func guidanceParams(cfg *config.Config) track.Params {
	return track.Params{
		PreScale:  cfg.Guidance.PreScale,
		BlurSigma: cfg.Guidance.BlurSigma,
		Scale:     cfg.Guidance.Scale,
	}
}

func loadMap(cfg *config.Config, file string) (*tiled.Map, func()) {
	src, err := openSource(cfg, file)
	if err != nil {
		fatal(err)
	}
	m, err := tiled.LoadMap(src.assets, src.name)
	if err != nil {
		src.close()
		fatal(err)
	}
	return m, src.close
}

func isMap(name string) bool {
	return strings.EqualFold(path.Ext(name), ".tmx")
}
