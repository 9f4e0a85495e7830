package ecs

import (
	"context"
	"reflect"
	"time"

	"github.com/plus3/tabecs/batch"
)

// SchedulerStats provides statistics about scheduler execution.
type SchedulerStats struct {
	SystemCount     int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Scheduler manages and executes systems in order.
type Scheduler struct {
	world       *World
	runner      *batch.Runner
	systems     []System
	systemStats []*systemStatsInternal
}

// NewScheduler creates a new scheduler for the given world. runner may be nil,
// in which case RunQuery calls made by systems execute serially.
func NewScheduler(world *World, runner *batch.Runner) *Scheduler {
	return &Scheduler{
		world:   world,
		runner:  runner,
		systems: make([]System, 0),
	}
}

// Register adds a system to the scheduler, binds its View and Singleton
// fields and calls Setup if the system implements SetupSystem.
func (s *Scheduler) Register(system System) {
	s.bindFields(system)
	if setup, ok := system.(SetupSystem); ok {
		setup.Setup(s.world)
	}
	s.systems = append(s.systems, system)

	systemType := reflect.TypeOf(system)
	if systemType.Kind() == reflect.Pointer {
		systemType = systemType.Elem()
	}

	s.systemStats = append(s.systemStats, &systemStatsInternal{
		name:        systemType.Name(),
		minDuration: time.Duration(1<<63 - 1),
	})
	s.world.log.Debug().Str("system", systemType.Name()).Msg("system registered")
}

func (s *Scheduler) bindFields(system System) {
	systemValue := reflect.ValueOf(system)
	if systemValue.Kind() == reflect.Pointer {
		systemValue = systemValue.Elem()
	}

	if systemValue.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < systemValue.NumField(); i++ {
		field := systemValue.Field(i)
		if !field.CanSet() || field.Kind() != reflect.Struct {
			continue
		}
		if binder, ok := field.Addr().Interface().(worldBinder); ok {
			binder.Init(s.world)
		}
	}
}

// Once executes all registered systems once with the given delta time.
func (s *Scheduler) Once(dt float64) {
	s.once(context.Background(), dt)
}

func (s *Scheduler) once(ctx context.Context, dt float64) {
	frame := newUpdateFrame(ctx, dt, s.world, s.runner)

	for i, system := range s.systems {
		start := time.Now()
		system.Execute(frame)
		duration := time.Since(start)

		stats := s.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration

		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}

	frame.Commands.Flush()
}

// Run executes all systems repeatedly at the given interval until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			s.once(ctx, dt)
		}
	}
}

// GetStats returns statistics about system execution.
func (s *Scheduler) GetStats() *SchedulerStats {
	stats := &SchedulerStats{
		SystemCount: len(s.systems),
		Systems:     make([]SystemStats, len(s.systemStats)),
	}

	var totalExecs int64
	for i, internal := range s.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
