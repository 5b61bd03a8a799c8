// treebench drives the broad-phase tree with randomly moving proxies and
// optionally profiles the run.
//
//	go build ./cmd/treebench
//	./treebench -profile cpu -proxies 5000
//	go tool pprof -http=":8000" ./treebench cpu.pprof
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/blueshift/engine/internal/core/aabbtree"
	"github.com/blueshift/engine/internal/geom"
)

type body struct {
	id  int32
	box geom.AABB
	vel geom.Vec3
}

func main() {
	proxies := flag.Int("proxies", 2000, "number of proxies")
	frames := flag.Int("frames", 600, "frames to simulate")
	expansion := flag.Float64("expansion", 0.1, "fat AABB margin")
	seed := flag.Int64("seed", 1, "random seed")
	mode := flag.String("profile", "", "cpu, mem or empty")
	dir := flag.String("profile-dir", ".", "profile output directory")
	flag.Parse()

	switch *mode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*dir), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(*dir), profile.NoShutdownHook).Stop()
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q\n", *mode)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	margin := float32(*expansion)
	tree := aabbtree.New[int]()

	bodies := make([]body, *proxies)
	start := time.Now()
	for i := range bodies {
		b := &bodies[i]
		c := geom.V3(rng.Float32()*200-100, rng.Float32()*200-100, rng.Float32()*200-100)
		b.box = geom.BoxAt(c, geom.V3(0.5, 0.5, 0.5))
		b.vel = geom.V3(rng.Float32()-0.5, rng.Float32()-0.5, rng.Float32()-0.5)
		b.id = tree.CreateProxy(b.box, margin, i)
	}
	built := time.Since(start)

	moved, overlaps := 0, 0
	start = time.Now()
	for f := 0; f < *frames; f++ {
		for i := range bodies {
			b := &bodies[i]
			b.box = b.box.Translate(b.vel)
			if tree.MoveProxy(b.id, b.box, margin, b.vel) {
				moved++
			}
		}
		for i := range bodies {
			self := bodies[i].id
			tree.QueryAABB(bodies[i].box, func(id int32) bool {
				if id != self {
					overlaps++
				}
				return true
			})
		}
	}
	simulated := time.Since(start)

	if err := tree.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tree invalid: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("proxies      %d\n", tree.ProxyCount())
	fmt.Printf("build        %s\n", built)
	fmt.Printf("simulate     %s (%s/frame)\n", simulated, simulated/time.Duration(max(*frames, 1)))
	total := *frames * *proxies
	fmt.Printf("reinserts    %d of %d moves\n", moved, total)
	fmt.Printf("overlaps     %d\n", overlaps)
	fmt.Printf("height       %d\n", tree.Height())
	fmt.Printf("max balance  %d\n", tree.MaxBalance())
	fmt.Printf("area ratio   %.3f\n", tree.AreaRatio())
}
