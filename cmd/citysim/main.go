// Command citysim runs the city-grid economy simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/citygrid/internal/api"
	"github.com/talgya/citygrid/internal/catalog"
	"github.com/talgya/citygrid/internal/engine"
	"github.com/talgya/citygrid/internal/grid"
	"github.com/talgya/citygrid/internal/persistence"
	"github.com/talgya/citygrid/internal/tuning"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("citygrid — resource distribution & building performance engine")

	// ── Tuning ────────────────────────────────────────────────────────
	tunPath := "configs/tuning.yaml"
	if len(os.Args) > 1 {
		tunPath = os.Args[1]
	}
	tun, err := tuning.Load(tunPath)
	if err != nil {
		slog.Warn("tuning load failed, using defaults", "path", tunPath, "error", err)
		tun = tuning.Default()
	}
	slog.Info("tuning loaded", "grid_n", tun.GridN, "seed", tun.Seed, "ticks_per_day", tun.TicksPerDay)

	// ── Building catalog ──────────────────────────────────────────────
	cat, err := catalog.Load("configs")
	if err != nil {
		slog.Error("failed to load building catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded", "types", len(cat.Types), "digest", cat.Digest[:12])

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(tun.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", tun.DBPath)

	// ── Grid (always regenerated — deterministic from seed) ───────────
	gcfg := grid.GenConfig{N: tun.GridN, Seed: tun.Seed, BaseLandValue: tun.BaseLandValue}
	g := grid.Generate(gcfg)
	slog.Info("grid generated", "n", g.N, "parcels", g.N*g.N)

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(tun, cat, g)

	var startTick uint64
	if tickStr, err := db.GetMeta("last_tick"); err == nil && tickStr != "" {
		if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
			startTick = t
		}

		slog.Info("found saved city state, loading...")
		buildings, loadErr := db.LoadBuildings()
		if loadErr != nil {
			slog.Error("failed to load buildings", "error", loadErr)
			os.Exit(1)
		}
		segments, routes, loadErr := db.LoadRoads()
		if loadErr != nil {
			slog.Error("failed to load roads", "error", loadErr)
			os.Exit(1)
		}
		if err := sim.Restore(buildings, segments, routes, startTick); err != nil {
			slog.Error("failed to restore city state", "error", err)
			os.Exit(1)
		}
		slog.Info("city state restored",
			"buildings", len(buildings),
			"segments", len(segments),
			"routes", len(routes),
			"tick", startTick,
			"sim_time", engine.SimTime(startTick, tun.TicksPerDay),
		)
	} else {
		slog.Info("no saved state found, starting with an empty city")
		if err := db.SaveCityState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine(time.Duration(tun.TickIntervalMs)*time.Millisecond, tun.TicksPerDay)
	eng.Tick = startTick
	eng.Speed = 1

	// Wire tick callbacks — auto-save every sim-day.
	eng.OnTick = func(tick uint64) {
		sim.AdvanceTick()
	}
	eng.OnDay = func(tick uint64) {
		if err := db.SaveCityState(sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
		slog.Info("day complete",
			"sim_time", engine.SimTime(tick, tun.TicksPerDay),
			"population", sim.Population(),
			"buildings", len(sim.Buildings()),
			"digest", sim.StateDigest()[:12],
		)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("CITYGRID_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("CITYGRID_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     tun.APIPort,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nCity online: %dx%d grid, %d building types in catalog.\n", g.N, g.N, len(cat.Types))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", tun.APIPort)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick, tun.TicksPerDay))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveCityState(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. City state saved.")
}
