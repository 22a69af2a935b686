package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/events"
	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/store"
	"github.com/driftwatch/driftwatch/internal/supervisor"
)

// runtime bundles the wired components behind the run and daemon commands.
type runtime struct {
	cfg     *config.Config
	store   *store.Store
	bus     *notify.Bus
	emitter events.Emitter
	sup     *supervisor.Supervisor
}

// buildRuntime loads config and wires store, bus, sinks, emitter, and
// supervisor. The caller owns Close.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o755); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, err
	}

	bus := notify.NewBus()
	slack := notify.NewSlackSink(cfg.Notify.Slack)
	if err := slack.Start(ctx, bus); err != nil {
		st.Close()
		return nil, err
	}
	go bus.Dispatch(ctx)

	var emitter events.Emitter = events.Noop{}
	if cfg.Events.Brokers != "" {
		emitter = events.NewKafkaEmitter(cfg.Events.Brokers, cfg.Events.Topic)
	}

	sup := supervisor.New(st, supervisor.Options{
		Bus:          bus,
		Emitter:      emitter,
		WindowDays:   cfg.Supervisor.WindowDays,
		CooldownDays: cfg.Supervisor.CooldownDays,
		Concurrency:  cfg.Supervisor.Concurrency,
	})

	return &runtime{cfg: cfg, store: st, bus: bus, emitter: emitter, sup: sup}, nil
}

func (r *runtime) Close() {
	_ = r.emitter.Close()
	_ = r.store.Close()
}
