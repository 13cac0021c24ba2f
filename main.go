package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/kardianos/service"
	_ "github.com/kidoman/embd/host/rpi"
	"github.com/sirupsen/logrus"

	"onvif-ptz/internal/config"
	"onvif-ptz/internal/driver"
	"onvif-ptz/internal/logging"
	"onvif-ptz/internal/mqttbridge"
	"onvif-ptz/internal/ptz"
	"onvif-ptz/internal/server"
)

// program runs the bridge under the OS service manager, or in the
// foreground when started interactively.
type program struct {
	cfg config.Config
	log *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	disp   *ptz.Dispatcher
	setup  *driver.Setup
	srv    *server.Server
	bridge *mqttbridge.Bridge
}

func (p *program) Start(s service.Service) error {
	// Start must not block.
	go p.run()
	return nil
}

func (p *program) run() {
	p.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	setup, err := driver.Build(p.cfg, p.log)
	if err != nil {
		p.log.WithError(err).Error("ptz output disabled")
		setup = driver.None()
	}
	p.setup = setup

	router := ptz.NewRouter(setup.Encoder, p.log, ptz.WithRelays(p.cfg.Relays))
	p.disp = ptz.NewDispatcher(router)
	go p.disp.Run(ctx)
	setup.Start(ctx, router)

	if p.cfg.MQTT.Broker != "" {
		p.bridge = mqttbridge.New(mqttbridge.Config{
			Broker:   p.cfg.MQTT.Broker,
			ClientID: p.cfg.MQTT.ClientID,
			Topic:    p.cfg.MQTT.Topic,
		}, p.disp, p.log)
		if err := p.bridge.Start(); err != nil {
			p.log.WithError(err).Warn("mqtt commands disabled")
		}
	}

	p.srv = server.New(server.Config{
		ListenAddr: p.cfg.Listen,
		Driver:     setup.Encoder.Name(),
		Transport:  setup.TransportName(),
	}, p.disp, p.log)
	srv := p.srv
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"driver":    setup.Encoder.Name(),
		"transport": setup.TransportName(),
		"listen":    p.cfg.Listen,
	}).Info("ptz bridge running")

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		p.log.WithError(err).Error("server error")
	}
}

func (p *program) Stop(s service.Service) error {
	p.log.Info("shutting down")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.srv != nil {
		p.srv.Stop()
	}
	if p.bridge != nil {
		p.bridge.Stop()
	}
	if p.disp != nil {
		stopHead(p.disp, p.log, time.Second)
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.setup != nil {
		if err := p.setup.Close(); err != nil {
			p.log.WithError(err).Warn("closing ptz output")
		}
	}
	return nil
}

// stopHead leaves the head stationary before the output is closed.
func stopHead(h server.Handler, log logrus.FieldLogger, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := h.Handle(ctx, "stop", ptz.Data{}); err != nil {
		log.WithError(err).Warn("stopping ptz head")
	}
}

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to YAML configuration file")
	listenAddr := flag.String("listen", "", "Websocket listen address (overrides config)")
	svcAction := flag.String("service", "", "Service control action: install, uninstall, start, stop, restart")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	var cfgErr *config.Error
	if err != nil && !errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		log = logrus.New()
		log.WithError(err).Warn("bad log configuration, using defaults")
	}

	if cfgErr != nil {
		log.WithError(cfgErr).Error("ptz output disabled")
	}

	prg := &program{cfg: cfg, log: log}
	svcConfig := &service.Config{
		Name:        "onvif-ptz",
		DisplayName: "ONVIF PTZ bridge",
		Description: "Translates ONVIF PTZ commands into Pelco D, VISCA or turret control",
	}
	if *configPath != "" {
		svcConfig.Arguments = []string{"-config", *configPath}
	}
	svc, err := service.New(prg, svcConfig)
	if err != nil {
		log.WithError(err).Fatal("failed to create service")
	}

	if *svcAction != "" {
		if err := service.Control(svc, *svcAction); err != nil {
			log.WithError(err).Fatalf("service %s failed", *svcAction)
		}
		return
	}

	if err := svc.Run(); err != nil {
		log.WithError(err).Fatal("service run failed")
	}
}
