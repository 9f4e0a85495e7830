package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/plus3/tabecs/batch"
	"github.com/plus3/tabecs/ecs"
	"github.com/rs/zerolog"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	components := flag.Int("components", len(adders), "How many component types random entities draw from.")
	workers := flag.Int("workers", 0, "Batch runner workers. Zero sizes the pool from the CPU count, negative runs systems serially.")
	profileMode := flag.String("profile", "", "Write a profile to the working directory: cpu, mem or block.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	verbose := flag.Bool("v", false, "Enable debug logging.")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	if stop := startProfile(*profileMode); stop != nil {
		defer stop()
	} else if *profileMode != "" {
		log.Fatal().Str("profile", *profileMode).Msg("unknown profile mode")
	}

	log.Info().Msg("starting ECS stress test")

	world := ecs.NewWorld(ecs.WithLogger(log))
	registerComponents(world)
	spawner := newSpawner(world, time.Now().UnixNano(), *components)

	var runner *batch.Runner
	if *workers >= 0 {
		runner = batch.NewRunner(context.Background(), batch.WithWorkers(*workers), batch.WithLogger(log))
		defer func() {
			if err := runner.Close(); err != nil {
				log.Error().Err(err).Msg("close runner")
			}
		}()
	}

	scheduler := ecs.NewScheduler(world, runner)
	scheduler.Register(&MovementSystem{log: log})
	scheduler.Register(&HeatSystem{log: log})
	scheduler.Register(&TrailSystem{log: log})
	lifetimes := &LifetimeSystem{spawner: spawner}
	scheduler.Register(lifetimes)
	scheduler.Register(&DecaySystem{})

	log.Info().Int("entities", *entityCount).Msg("populating world")
	for range *entityCount {
		spawner.spawn()
	}
	log.Info().Int("archetypes", world.Archetypes().Count()).Msg("population complete")

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     spawner.kinds,
		Systems:        scheduler.GetStats().SystemCount,
		GCPauseMetrics: *gcPauseMetrics,
	}
	if runner != nil {
		report.Workers = runner.Workers()
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info().Dur("duration", *duration).Msg("running simulation")
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	lastFrameTime := startTime
	for ctx.Err() == nil {
		deltaTime := time.Since(lastFrameTime)
		lastFrameTime = time.Now()

		updateStart := time.Now()
		scheduler.Once(deltaTime.Seconds())
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
		report.TotalUpdates++
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.World = world.Stats()
	report.Expired = lifetimes.expired
	report.SystemStats = scheduler.GetStats()
	if runner != nil {
		stats := runner.Stats()
		report.Runner = &stats
	}

	log.Info().Int64("updates", report.TotalUpdates).Msg("simulation finished")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("failed to generate report")
	}
	fmt.Println("--- End of Report ---")
}

func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return func() {}
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfileAllocs
	case "block":
		opt = profile.BlockProfile
	default:
		return nil
	}
	return profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook).Stop
}
