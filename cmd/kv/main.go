package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/kinview/internal/datasource"
	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/engine"
	"github.com/vanderheijden86/kinview/pkg/export"
	"github.com/vanderheijden86/kinview/pkg/loader"
	"github.com/vanderheijden86/kinview/pkg/model"
	"github.com/vanderheijden86/kinview/pkg/testutil"
	"github.com/vanderheijden86/kinview/pkg/ui"
	"github.com/vanderheijden86/kinview/pkg/watcher"
)

const appVersion = "0.3.0"

func main() {
	dbPath := flag.String("db", "", "Path to a kinview SQLite dataset")
	cfgPath := flag.String("config", "", "Config file path (default: XDG config dir)")
	exportPath := flag.String("export", "", "Render a snapshot to this path (.svg or .png) and exit")
	manifestPath := flag.String("manifest", "", "With --export, also write a JSON manifest here")
	title := flag.String("title", "", "Snapshot title")
	demo := flag.Bool("demo", false, "Run against a generated synthetic forest")
	seed := flag.Int64("seed", 42, "Demo forest seed")
	watch := flag.Bool("watch", true, "Reload when the dataset file changes (TUI only)")
	versionFlag := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Usage: kv [options]")
		fmt.Println("\nA viewer for large family-tree datasets.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("kv %s\n", appVersion)
		os.Exit(0)
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	var src loader.Source
	var closer func() error
	switch {
	case *demo:
		src = demoSource(*seed)
	case *dbPath != "":
		db, err := datasource.OpenSQLite(*dbPath)
		if err != nil {
			fatal("open dataset: %v", err)
		}
		src = db
		closer = db.Close
	default:
		fatal("either --db or --demo is required")
	}
	if closer != nil {
		defer closer()
	}

	if *exportPath != "" || *demo {
		// Headless export loads everything regardless of the progressive
		// setting; a snapshot of a partial viewport is not useful. The demo
		// forest carries no stored layout hints, so it also loads wholesale.
		cfg.Loader.ProgressiveEnabled = false
	}

	eng, err := engine.New(cfg, src)
	if err != nil {
		fatal("engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := eng.Start(ctx); err != nil {
		fatal("load dataset: %v", err)
	}

	if *exportPath != "" {
		runExport(eng, *exportPath, *manifestPath, *title)
		return
	}

	runTUI(eng, *dbPath, *watch)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func demoSource(seed int64) loader.Source {
	people, marriages := testutil.GenerateForest(testutil.TreeSpec{
		Seed:         seed,
		Roots:        3,
		Generations:  5,
		MaxChildren:  3,
		MarriageRate: 0.35,
	})
	return datasource.NewStatic(people, marriages, nil)
}

func runExport(eng *engine.Engine, path, manifestPath, title string) {
	people := make(map[model.PersonID]model.Person)
	for _, p := range eng.People() {
		people[p.ID] = p
	}
	opts := export.SnapshotOptions{
		Path:          path,
		Title:         title,
		People:        people,
		Layout:        eng.Layout(),
		LayoutVersion: eng.LayoutVersion(),
	}
	if err := export.SaveSnapshot(opts); err != nil {
		fatal("export: %v", err)
	}
	fmt.Printf("wrote %s\n", path)

	if manifestPath != "" {
		m := export.BuildManifest(title, eng.LayoutVersion(), eng.Layout())
		if err := export.SaveManifest(manifestPath, m); err != nil {
			fatal("manifest: %v", err)
		}
		fmt.Printf("wrote %s\n", manifestPath)
	}
}

func runTUI(eng *engine.Engine, dbPath string, watch bool) {
	m := ui.NewModel(eng)
	prog := tea.NewProgram(m, tea.WithAltScreen())

	var w *watcher.Watcher
	if watch && dbPath != "" {
		var err error
		// Engine state is only touched on the bubbletea event path; the
		// watcher goroutine just posts the reload message, and Update
		// performs the invalidation.
		w, err = watcher.New(dbPath, watcher.WithOnChange(func() {
			prog.Send(ui.ReloadMsg{})
		}))
		if err == nil {
			if err := w.Start(); err != nil {
				w = nil
			}
		}
	}
	if w != nil {
		defer w.Stop()
	}

	if _, err := prog.Run(); err != nil {
		fatal("tui: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
