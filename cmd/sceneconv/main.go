// sceneconv inspects and converts map files and database snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/blueshift/engine/internal/component"
	"github.com/blueshift/engine/internal/config"
	"github.com/blueshift/engine/internal/data"
	"github.com/blueshift/engine/internal/persist"
	"github.com/blueshift/engine/internal/world"
)

func printUsage() {
	fmt.Println("Usage: sceneconv <command> [flags] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  convert   <in> <out>   Rewrite a map as YAML, JSON or msgpack (by extension)")
	fmt.Println("  validate  <map...>     Check maps for structural errors")
	fmt.Println("  tree      <map>        Print the entity hierarchy")
	fmt.Println("  stats     <map>        Print broad-phase tree statistics (-rebuild)")
	fmt.Println("  snapshots              List database snapshots (-name <name> lists its entities, -delete <name>)")
	fmt.Println("  export    <out>        Write a database snapshot as a map (-name <name>)")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", config.Path("config/blueshift.toml"), "config file (database commands)")
	name := fs.String("name", "", "snapshot name")
	del := fs.String("delete", "", "snapshot to delete")
	rebuild := fs.Bool("rebuild", false, "stats: also show the tree after a bottom-up rebuild")
	_ = fs.Parse(os.Args[2:])
	args := fs.Args()

	var err error
	switch cmd {
	case "convert":
		err = needArgs(args, 2, func() error { return convert(args[0], args[1]) })
	case "validate":
		err = needArgs(args, 1, func() error { return validate(args) })
	case "tree":
		err = needArgs(args, 1, func() error { return tree(args[0]) })
	case "stats":
		err = needArgs(args, 1, func() error { return stats(args[0], *rebuild) })
	case "snapshots":
		err = snapshots(*cfgPath, *name, *del)
	case "export":
		err = needArgs(args, 1, func() error { return export(*cfgPath, *name, args[0]) })
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func needArgs(args []string, n int, fn func() error) error {
	if len(args) < n {
		return fmt.Errorf("expected %d argument(s), got %d", n, len(args))
	}
	return fn()
}

func convert(in, out string) error {
	v, err := data.ReadMap(in)
	if err != nil {
		return err
	}
	if err := data.ValidateMap(v); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s has %d problem(s)\n", in, len(multierr.Errors(err)))
	}
	if err := data.WriteMap(out, v); err != nil {
		return err
	}
	fmt.Printf("Wrote %d entities to %s\n", len(data.Entities(v)), out)
	return nil
}

func validate(paths []string) error {
	bad := 0
	for _, path := range paths {
		v, err := data.ReadMap(path)
		if err == nil {
			err = data.ValidateMap(v)
		}
		if err == nil {
			fmt.Printf("ok    %s\n", path)
			continue
		}
		bad++
		fmt.Printf("FAIL  %s\n", path)
		for _, e := range multierr.Errors(err) {
			fmt.Printf("      %v\n", e)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d map(s) invalid", bad, len(paths))
	}
	return nil
}

// loadWorld loads a map into a script-less world.
func loadWorld(path string) (*world.GameWorld, error) {
	w := world.New(config.Defaults().World, zap.NewNop())
	if err := w.LoadMap(path, world.Editor); err != nil {
		return nil, err
	}
	return w, nil
}

func tree(path string) error {
	w, err := loadWorld(path)
	if err != nil {
		return err
	}
	var walk func(e *world.Entity, depth int)
	walk = func(e *world.Entity, depth int) {
		classes := make([]string, 0, len(e.Components()))
		for _, c := range e.Components() {
			classes = append(classes, strings.TrimPrefix(c.ClassName(), "Com"))
		}
		fmt.Printf("%s%s \033[90m[%s]\033[0m\n", strings.Repeat("  ", depth), e.Name(), strings.Join(classes, " "))
		for _, c := range e.Children() {
			walk(c, depth+1)
		}
	}
	for _, root := range w.SceneRoots(0) {
		walk(root, 0)
	}
	fmt.Printf("%d entities\n", w.NumEntities())
	return nil
}

func stats(path string, rebuild bool) error {
	w, err := loadWorld(path)
	if err != nil {
		return err
	}
	w.SyncBroadphase()
	if err := w.Broadphase().Validate(); err != nil {
		return fmt.Errorf("broadphase: %w", err)
	}
	fmt.Printf("entities     %d\n", w.NumEntities())
	printTreeStats(w.BroadphaseStats())

	if rebuild {
		w.RebuildBroadphase()
		if err := w.Broadphase().Validate(); err != nil {
			return fmt.Errorf("rebuilt broadphase: %w", err)
		}
		fmt.Println("\nafter bottom-up rebuild:")
		printTreeStats(w.BroadphaseStats())
	}
	return nil
}

func printTreeStats(s world.BroadphaseStats) {
	fmt.Printf("proxies      %d\n", s.Proxies)
	fmt.Printf("nodes        %d / %d (%d bytes)\n", s.Nodes, s.Capacity, s.Bytes)
	fmt.Printf("insertions   %d\n", s.Insertions)
	fmt.Printf("height       %d\n", s.Height)
	fmt.Printf("max balance  %d\n", s.MaxBalance)
	fmt.Printf("area ratio   %.3f\n", s.AreaRatio)
	for depth, n := range s.NodesByDepth {
		fmt.Printf("  depth %-3d  %d\n", depth, n)
	}
}

func openRepo(ctx context.Context, cfgPath string) (*persist.SceneRepo, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return persist.NewSceneRepo(db, cfg.Database.SnapshotKeep), db.Close, nil
}

func snapshots(cfgPath, name, del string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	repo, closeDB, err := openRepo(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer closeDB()

	if del != "" {
		if err := repo.Delete(ctx, del); err != nil {
			return err
		}
		fmt.Printf("Deleted snapshot %s\n", del)
		return nil
	}

	list, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range list {
		if name != "" && s.Name != name {
			continue
		}
		fmt.Printf("%-24s #%-6d %5d entities  %s\n",
			s.Name, s.ID, s.EntityCount, s.CreatedAt.Format(time.DateTime))
		if name == "" {
			continue
		}
		entities, err := repo.Entities(ctx, s.ID, "")
		if err != nil {
			return err
		}
		for _, e := range entities {
			fmt.Printf("  scene %-2d %s %-24s %s\n", e.SceneIndex, e.GUID, e.Name, e.Tag)
		}
	}
	return nil
}

func export(cfgPath, name, out string) error {
	if name == "" {
		return fmt.Errorf("-name is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	repo, closeDB, err := openRepo(ctx, cfgPath)
	if err != nil {
		return err
	}
	defer closeDB()

	v, err := repo.Load(ctx, name)
	if err != nil {
		return err
	}
	var entities []any
	for _, scene := range component.GetList(v, "scenes") {
		if list, ok := scene.([]any); ok {
			entities = append(entities, list...)
		}
	}
	if err := data.WriteMap(out, data.NewMap(entities)); err != nil {
		return err
	}
	fmt.Printf("Wrote %d entities to %s\n", len(entities), out)
	return nil
}
