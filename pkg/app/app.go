// Package app assembles the discovery service, its methods and its
// persistence from configuration. Both binaries start through it.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/lanscout/pkg/config"
	"github.com/urmzd/lanscout/pkg/db"
	"github.com/urmzd/lanscout/pkg/discovery"
	"github.com/urmzd/lanscout/pkg/methods"
	"github.com/urmzd/lanscout/pkg/schedule"
	"go.uber.org/multierr"
)

// App owns the long-lived components of a lanscout process.
type App struct {
	Config     config.Config
	DB         *db.DB
	Registry   *methods.Registry
	Metrics    *discovery.MetricsCollector
	Prometheus *prometheus.Registry
	Service    *discovery.Service

	persister *db.Persister
	scheduler *schedule.Scheduler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the database, seeds it on first run and restores the previous
// cache and method settings into a new service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	log.Info().Str("path", database.Path()).Msg("Database opened")

	if err := prepareDB(ctx, database, cfg.Discovery.Methods); err != nil {
		_ = database.Close()
		return nil, err
	}

	registry := NewRegistry(cfg)
	metrics := discovery.NewMetricsCollector()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	queue := discovery.NewMethodQueue(registry.Executor(), metrics, cfg.QueueConfig())
	svc := discovery.NewService(queue, discovery.NewInvalidationManager(), metrics, cfg.ServiceConfig())

	a := &App{
		Config:     cfg,
		DB:         database,
		Registry:   registry,
		Metrics:    metrics,
		Prometheus: promRegistry,
		Service:    svc,
		persister:  db.NewPersister(database, svc),
	}

	if err := a.persister.Restore(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	log.Info().
		Strs("methods", registry.Names()).
		Str("strategy", svc.QueueConfig().Strategy.String()).
		Msg("Discovery service ready")
	return a, nil
}

func prepareDB(ctx context.Context, database *db.DB, seed []discovery.Method) error {
	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	seeded, err := database.Bootstrap(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to bootstrap database: %w", err)
	}
	if seeded {
		log.Info().Msg("First run detected, seeded discovery method settings")
	}
	return nil
}

// NewRegistry registers every built-in discovery method with its configured
// settings.
func NewRegistry(cfg config.Config) *methods.Registry {
	r := methods.NewRegistry()

	mdns := &methods.MDNSBrowser{
		Services:  cfg.MDNS.Services,
		Domain:    cfg.MDNS.Domain,
		Interface: cfg.MDNS.Interface,
	}
	r.Register(discovery.MethodMDNS, mdns.Discover)

	scan := &methods.NetworkScanner{
		Subnets:      cfg.Scan.Subnets,
		Ports:        cfg.Scan.Ports,
		Concurrency:  cfg.Scan.Concurrency,
		ResolveNames: cfg.Scan.ResolveNames,
	}
	r.Register(discovery.MethodNetworkScan, scan.Discover)

	snmp := &methods.SNMPProber{
		Targets:     cfg.SNMP.Targets,
		Subnets:     cfg.SNMP.Subnets,
		Community:   cfg.SNMP.Community,
		Port:        cfg.SNMP.Port,
		Concurrency: cfg.SNMP.Concurrency,
	}
	r.Register(discovery.MethodSNMP, snmp.Discover)

	serial := &methods.SerialEnumerator{
		USBOnly:        cfg.Serial.USBOnly,
		Probe:          cfg.Serial.Probe,
		BaudRate:       cfg.Serial.BaudRate,
		IdentifyZigbee: cfg.Serial.IdentifyZigbee,
	}
	r.Register(discovery.MethodSerial, serial.Discover)

	manual := &methods.ManualProber{
		Addresses:         cfg.Manual.Addresses,
		HardwareAddresses: cfg.Manual.HardwareAddresses,
	}
	r.Register(discovery.MethodManual, manual.Discover)

	return r
}

// Start runs the persister and, when a schedule is configured, periodic
// discovery. Both stop on Close.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.persister.Run(ctx)
	}()

	if a.Config.Discovery.Schedule == "" {
		return nil
	}
	a.scheduler = schedule.New()
	if err := a.scheduler.Add(a.Config.Discovery.Schedule, "discovery", a.scheduledDiscovery); err != nil {
		return err
	}
	a.scheduler.Start()
	log.Info().Time("next", a.scheduler.Next()).Msg("Periodic discovery enabled")
	return nil
}

func (a *App) scheduledDiscovery(ctx context.Context) error {
	res := a.Service.Discover(ctx, discovery.ExecuteOptions{})
	if res.Cancelled {
		return nil
	}
	if res.HasErrors && len(res.Devices) == 0 {
		return fmt.Errorf("discovery %s found nothing: %d errors", res.Method, len(res.Errors))
	}
	log.Info().Str("method", res.Method).Int("devices", len(res.Devices)).Msg("Scheduled discovery completed")
	return nil
}

// Close stops background work, writes the final state and closes the
// database.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.cancel != nil {
		a.cancel()
		a.wg.Wait()
	}
	a.Service.Cancel()

	var err error
	if a.cancel == nil {
		// never started, so the persister has not flushed
		err = multierr.Append(err, a.persister.Flush(context.Background()))
	}
	err = multierr.Append(err, a.DB.Close())
	return err
}
