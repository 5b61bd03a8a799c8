package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blueshift/engine/internal/config"
	coresys "github.com/blueshift/engine/internal/core/system"
	"github.com/blueshift/engine/internal/data"
	"github.com/blueshift/engine/internal/persist"
	"github.com/blueshift/engine/internal/scripting"
	"github.com/blueshift/engine/internal/system"
	"github.com/blueshift/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(mapName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            Blueshift  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        headless scene world runner        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmap:\033[0m %s\n\n", mapName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path("config/blueshift.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(bootName(cfg.Map))

	// 3. Optional PostgreSQL snapshot store
	var repo *persist.SceneRepo
	if cfg.Database.Enabled {
		printSection("database")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))
		repo = persist.NewSceneRepo(db, cfg.Database.SnapshotKeep)
		fmt.Println()
	}

	// 4. Scripting and world
	var scripts *scripting.Engine
	if cfg.Scripting.Enabled {
		scripts, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer scripts.Close()
	}
	w := world.New(cfg.World, log, world.WithScripts(scripts))

	// 5. Boot map
	printSection("scene")
	boot, err := loadBootMap(w, cfg, repo)
	if err != nil {
		return err
	}
	printStat("entities", w.NumEntities())
	printStat("broadphase proxies", w.SyncBroadphase())
	printStat("cameras", len(w.Cameras()))
	fmt.Println()

	w.StartGame()
	w.SetTimeScale(boot.timeScale)

	// 6. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewEventSystem(w))
	runner.Register(system.NewFixedUpdateSystem(w, cfg.World.FixedTimeStep, cfg.World.MaxFixedSteps))
	runner.Register(system.NewUpdateSystem(w))
	runner.Register(system.NewLateUpdateSystem(w))
	runner.Register(system.NewBroadphaseSystem(w))
	runner.Register(system.NewCleanupSystem(w))

	var persistSys *system.PersistenceSystem
	if repo != nil && boot.persist {
		interval := int(cfg.Database.SnapshotInterval / cfg.World.TickRate)
		persistSys = system.NewPersistenceSystem(w, repo, snapshotName(cfg.Map), log, interval)
		runner.Register(persistSys)
	}

	// 7. Optional map hot reload
	var mapChanges <-chan string
	if cfg.Map.Watch && len(boot.files) > 0 {
		watcher, err := data.WatchFiles(boot.files, log)
		if err != nil {
			return fmt.Errorf("watch maps: %w", err)
		}
		defer watcher.Close()
		mapChanges = watcher.Changes()
	}

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.World.TickRate)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("game loop started (tick: %s, fixed step: %s)", cfg.World.TickRate, cfg.World.FixedTimeStep))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			// Feed real elapsed time so a slow frame catches up on fixed steps.
			runner.Tick(now.Sub(last))
			last = now
			if w.CheckScriptError() {
				log.Warn("script error reported, stopping game")
				w.StopGame()
			}
		case path := <-mapChanges:
			log.Info("map changed on disk, reloading", zap.String("file", path))
			if err := loadMapFiles(w, boot.files); err != nil {
				log.Error("map reload failed", zap.Error(err))
				continue
			}
			w.StartGame()
			w.SetTimeScale(boot.timeScale)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			w.OnApplicationTerminate()
			if persistSys != nil {
				if err := persistSys.SaveNow(); err != nil {
					log.Error("final snapshot failed", zap.Error(err))
				}
			}
			w.ClearEntities(true)
			log.Info("world stopped")
			return nil
		}
	}
}

type bootInfo struct {
	timeScale float64
	persist   bool     // periodic snapshots enabled for this map
	files     []string // map files loaded, first one Single, the rest Additive
}

// loadBootMap fills the world from a database snapshot, a map list entry or
// a single map file, in that order of preference.
func loadBootMap(w *world.GameWorld, cfg *config.Config, repo *persist.SceneRepo) (bootInfo, error) {
	boot := bootInfo{timeScale: cfg.World.TimeScale, persist: true}

	if cfg.Map.Snapshot != "" && repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		v, err := repo.Load(ctx, cfg.Map.Snapshot)
		switch {
		case err == nil:
			if err := w.RestoreSnapshotValue(v); err != nil {
				return boot, fmt.Errorf("restore snapshot %q: %w", cfg.Map.Snapshot, err)
			}
			printOK(fmt.Sprintf("snapshot %q restored", cfg.Map.Snapshot))
			return boot, nil
		case errors.Is(err, persist.ErrNoSnapshot):
			printOK(fmt.Sprintf("no snapshot %q yet, loading map", cfg.Map.Snapshot))
		default:
			return boot, err
		}
	}

	if cfg.Map.List == "" {
		boot.files = []string{cfg.Map.Path}
		if err := loadMapFiles(w, boot.files); err != nil {
			return boot, err
		}
		printOK(fmt.Sprintf("map %s loaded", cfg.Map.Path))
		return boot, nil
	}

	list, err := data.LoadMapList(cfg.Map.List)
	if err != nil {
		return boot, fmt.Errorf("load map list: %w", err)
	}
	printStat("maps listed", list.Count())

	info := list.Get(cfg.Map.Start)
	if info == nil {
		return boot, fmt.Errorf("map %q is not in %s", cfg.Map.Start, cfg.Map.List)
	}
	boot.files = []string{list.Path(info)}
	for _, name := range info.Additive {
		boot.files = append(boot.files, list.Path(list.Get(name)))
	}
	if err := loadMapFiles(w, boot.files); err != nil {
		return boot, err
	}
	printOK(fmt.Sprintf("map %s loaded (%d additive)", info.Name, len(info.Additive)))
	if info.TimeScale > 0 {
		boot.timeScale = info.TimeScale
	}
	boot.persist = info.Persist
	return boot, nil
}

// loadMapFiles loads the first file as a Single map and the rest on top.
func loadMapFiles(w *world.GameWorld, files []string) error {
	for i, path := range files {
		mode := world.Additive
		if i == 0 {
			mode = world.Single
		}
		if err := w.LoadMap(path, mode); err != nil {
			return fmt.Errorf("load map %s: %w", path, err)
		}
	}
	return nil
}

func bootName(m config.MapConfig) string {
	if m.List != "" {
		return m.Start
	}
	return m.Path
}

// snapshotName is the name periodic snapshots are stored under.
func snapshotName(m config.MapConfig) string {
	if m.Snapshot != "" {
		return m.Snapshot
	}
	if m.List != "" {
		return m.Start
	}
	return strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
