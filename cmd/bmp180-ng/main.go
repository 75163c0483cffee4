package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"bmp180-ng/internal/baro"
	"bmp180-ng/internal/config"
	"bmp180-ng/internal/sensors/bmp180"
	"bmp180-ng/internal/udp"
	"bmp180-ng/internal/web"
)

func main() {
	var configPath string
	var once bool
	var baseline bool
	flag.StringVar(&configPath, "config", "./bmp180.yaml", "Path to YAML config")
	flag.BoolVar(&once, "once", false, "Take one measurement, print it and exit")
	flag.BoolVar(&baseline, "baseline", false, "With -once: average over sensor.baseline_window and use it as the reference")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if once {
		if err := measureOnce(ctx, cfg.Sensor, baseline, os.Stdout); err != nil {
			log.Fatalf("measure failed: %v", err)
		}
		return
	}

	logs := web.NewLogBuffer(0)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	svc := baro.New(serviceConfig(cfg.Sensor, reg))
	defer svc.Close()

	log.Printf("bmp180-ng starting")
	log.Printf("sensor enable=%t transport=%s bus=%d addr=0x%02X oss=%d interval=%s",
		cfg.Sensor.Enable, cfg.Sensor.Transport, cfg.Sensor.I2CBus, cfg.Sensor.Address, cfg.Sensor.OversamplingSetting(), cfg.Sensor.Interval)

	if err := svc.Start(ctx); err != nil {
		// Keep serving so the failure is visible through /api/status.
		log.Printf("baro start failed: %v", err)
	}

	if cfg.UDP.Dest != "" {
		b, err := udp.NewBroadcaster(cfg.UDP.Dest)
		if err != nil {
			log.Fatalf("udp broadcaster init failed: %v", err)
		}
		defer b.Close()
		log.Printf("udp dest=%s interval=%s", cfg.UDP.Dest, cfg.UDP.Interval)

		go func() {
			err := b.Run(ctx, cfg.UDP.Interval, func() ([]byte, error) {
				return json.Marshal(svc.Snapshot())
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("udp broadcaster stopped: %v", err)
				cancel()
			}
		}()
	}

	go func() {
		log.Printf("web listen=%s", cfg.Web.Listen)
		err := web.Serve(ctx, cfg.Web.Listen, web.Handler(svc, svc, logs, reg))
		if err != nil && ctx.Err() == nil {
			log.Printf("web server stopped: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Printf("bmp180-ng stopping")
}

func serviceConfig(s config.SensorConfig, reg prometheus.Registerer) baro.Config {
	return baro.Config{
		Enable:         s.Enable,
		Transport:      s.Transport,
		I2CBus:         s.I2CBus,
		I2CDevice:      s.I2CDevice,
		Addr:           s.Address,
		Oversampling:   bmp180.Oversampling(s.OversamplingSetting()),
		ReferencePa:    s.ReferencePa,
		Interval:       s.Interval,
		BaselineWindow: s.BaselineWindow,
		EOCPin:         s.EOCPin,
		Registry:       reg,
	}
}
