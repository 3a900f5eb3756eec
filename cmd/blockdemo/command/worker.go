package command

import (
	"context"
	"fmt"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-blockdemo/internal/driver"
	"github.com/pixil98/go-blockdemo/internal/messaging"
	"github.com/pixil98/go-blockdemo/internal/player"
	"github.com/pixil98/go-blockdemo/internal/routing"
	"github.com/pixil98/go-blockdemo/internal/world"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	err := cfg.applyEnv()
	if err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Tracing is installed before anything creates spans
	tracing := cfg.Telemetry.buildTracing()
	err = tracing.Setup(context.Background())
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	// Create the message bus
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	publisher := messaging.NewNatsPublisher(natsServer)

	// The connection manager owns the live connection set
	cm := cfg.Listener.buildConnectionManager(natsServer)
	natsServer.OnSlowConsumer(cm.DropSlowConsumer)

	workers := service.WorkerList{
		"nats":      natsServer,
		"telemetry": tracing,
	}

	var storeOpts []world.StoreOpt
	if j := cfg.Journal.buildJournal(); j != nil {
		storeOpts = append(storeOpts, world.WithJournal(j))
		workers["journal"] = j
	}

	// Game state, dispatched in registration order
	registry := player.NewRegistry(publisher, cm)
	store := world.NewStore(cm, publisher, cm, storeOpts...)
	cm.SetHandler(routing.NewMux(registry, store))

	l, err := cfg.Listener.buildListener(cm, natsServer.Ready())
	if err != nil {
		return nil, fmt.Errorf("creating listener: %w", err)
	}
	workers["listener"] = l

	var driverOpts []driver.DriverOpt
	if d := cfg.statusInterval(); d > 0 {
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	workers["driver"] = driver.NewDriver([]driver.Manager{
		driver.NewStatusReporter(registry, store),
	}, driverOpts...)

	return workers, nil
}
