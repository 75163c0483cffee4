package baro

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bmp180-ng/internal/sensors/bmp180"
)

type Config struct {
	Enable    bool
	Transport string
	I2CBus    int
	I2CDevice string
	Addr      uint16

	Oversampling   bmp180.Oversampling
	ReferencePa    float64
	Interval       time.Duration
	BaselineWindow time.Duration
	EOCPin         int

	// Registry receives the service metrics; nil skips registration.
	Registry prometheus.Registerer
}

type Snapshot struct {
	Valid    bool `json:"valid"`
	Detected bool `json:"detected"`

	TemperatureC     float64 `json:"temperature_c"`
	PressurePa       int32   `json:"pressure_pa"`
	AltitudeM        float64 `json:"altitude_m"`
	VerticalSpeedMps float64 `json:"vertical_speed_mps"`

	ReferencePa  float64 `json:"reference_pa"`
	Oversampling int     `json:"oversampling"`
	Samples      uint64  `json:"samples"`

	BaselineActive bool `json:"baseline_active"`

	LastError    string    `json:"last_error,omitempty"`
	LastSampleAt time.Time `json:"last_sample_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	pollInterval  = time.Millisecond
	reinitAfter   = 10
	reinitBackoff = 2 * time.Second
	vsAlpha       = 0.2
)

// Service owns one sensor. All device access happens on the run goroutine;
// other goroutines talk to it through request channels.
type Service struct {
	cfg Config
	m   *metrics

	ctlCh      chan ctlReq
	baselineCh chan baselineReq

	mu   sync.RWMutex
	snap Snapshot

	sensor *Sensor

	stopOnce sync.Once
	stopCh   chan struct{}
}

type ctlReq struct {
	apply func(d *bmp180.Device) error
	done  chan error
}

// baselineReq carries the caller's ctx so the loop drops the collection
// once the caller has given up.
type baselineReq struct {
	ctx  context.Context
	done chan error
}

func New(cfg Config) *Service {
	if cfg.I2CBus == 0 {
		cfg.I2CBus = 1
	}
	if cfg.Addr == 0 {
		cfg.Addr = bmp180.DefaultAddress()
	}
	if cfg.ReferencePa == 0 {
		cfg.ReferencePa = bmp180.SeaLevelPa
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BaselineWindow <= 0 {
		cfg.BaselineWindow = time.Second
	}
	s := &Service{
		cfg:        cfg,
		m:          newMetrics(cfg.Registry),
		ctlCh:      make(chan ctlReq),
		baselineCh: make(chan baselineReq, 1),
		stopCh:     make(chan struct{}),
	}
	s.snap.ReferencePa = cfg.ReferencePa
	s.snap.Oversampling = int(cfg.Oversampling)
	return s
}

// Close stops the measurement loop. Pending and later control calls fail.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// BaselineWindow is how long SetBaseline collects samples.
func (s *Service) BaselineWindow() time.Duration { return s.cfg.BaselineWindow }

// Start opens the bus, initializes the sensor and starts the measurement
// loop. It returns without starting anything when the service is disabled.
// The loop stops when ctx is done or Close is called.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("baro: service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}

	sn, err := Open(s.cfg)
	if err != nil {
		s.m.fail(err)
		s.setErr(err.Error())
		return err
	}
	s.sensor = sn

	dev := sn.Device()
	cal := dev.Calibration()
	log.Printf("baro detected %s chip_id=% X ac1=%d md=%d", dev, dev.ChipID(), cal.AC1, cal.MD)
	s.mu.Lock()
	s.snap.Detected = true
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// SetReference changes the altitude reference pressure.
func (s *Service) SetReference(ctx context.Context, pa float64) error {
	return s.control(ctx, func(d *bmp180.Device) error {
		if err := d.SetReference(pa); err != nil {
			return err
		}
		s.cfg.ReferencePa = pa
		s.mu.Lock()
		s.snap.ReferencePa = pa
		s.mu.Unlock()
		log.Printf("baro reference set pa=%.0f", pa)
		return nil
	})
}

// SetOversampling changes the oversampling used from the next cycle on.
func (s *Service) SetOversampling(ctx context.Context, o bmp180.Oversampling) error {
	return s.control(ctx, func(d *bmp180.Device) error {
		if err := d.SetOversampling(o); err != nil {
			return err
		}
		s.cfg.Oversampling = o
		s.mu.Lock()
		s.snap.Oversampling = int(o)
		s.mu.Unlock()
		log.Printf("baro oversampling set oss=%d (%s)", o, o)
		return nil
	})
}

func (s *Service) ready() error {
	if s == nil {
		return fmt.Errorf("baro: service is nil")
	}
	if !s.Snapshot().Detected {
		return fmt.Errorf("baro: sensor not detected")
	}
	select {
	case <-s.stopCh:
		return fmt.Errorf("baro: service stopped")
	default:
	}
	return nil
}

func (s *Service) control(ctx context.Context, fn func(d *bmp180.Device) error) error {
	if err := s.ready(); err != nil {
		return err
	}
	done := make(chan error, 1)
	select {
	case s.ctlCh <- ctlReq{apply: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("baro: service stopped")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("baro: service stopped")
	}
}

// SetBaseline measures back to back for the baseline window and makes the
// average pressure the new reference, so altitude reads as height above the
// current position. If ctx ends first the collection is dropped and the
// reference is left unchanged.
func (s *Service) SetBaseline(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	done := make(chan error, 1)
	select {
	case s.baselineCh <- baselineReq{ctx: ctx, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("baro: baseline already in progress")
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopCh:
		return fmt.Errorf("baro: service stopped")
	}
}

func (s *Service) run(ctx context.Context) {
	measureTick := time.NewTicker(s.cfg.Interval)
	pollTick := time.NewTicker(pollInterval)
	pollTick.Stop()
	defer measureTick.Stop()
	defer pollTick.Stop()
	defer func() { _ = s.sensor.Close() }()
	defer s.Close()

	var pending bool
	var pollC <-chan time.Time
	var failures int
	var lastReinitAt time.Time

	startCycle := func() {
		if pending {
			return
		}
		if err := s.sensor.Device().Start(); err != nil {
			failures++
			s.fail(err)
			return
		}
		pending = true
		pollTick.Reset(pollInterval)
		pollC = pollTick.C
	}
	endCycle := func() {
		pending = false
		pollTick.Stop()
		pollC = nil
	}

	// Baseline state. blCancel is nil while no baseline is active.
	var bl baselineReq
	var blActive bool
	var blCancel <-chan struct{}
	var blStart time.Time
	var blSum float64
	var blN int

	finishBaseline := func(err error) {
		bl.done <- err
		bl = baselineReq{}
		blActive = false
		blCancel = nil
		s.clearBaseline()
	}

	var lastAltM float64
	var lastAt time.Time
	var lastRef float64
	var vs float64

	startCycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return

		case req := <-s.ctlCh:
			req.done <- req.apply(s.sensor.Device())

		case req := <-s.baselineCh:
			if blActive && bl.ctx.Err() != nil {
				finishBaseline(bl.ctx.Err())
			}
			if blActive {
				req.done <- fmt.Errorf("baro: baseline already in progress")
				continue
			}
			if err := req.ctx.Err(); err != nil {
				req.done <- err
				continue
			}
			bl = req
			blActive = true
			blCancel = req.ctx.Done()
			blStart = time.Now().UTC()
			blSum, blN = 0, 0
			s.mu.Lock()
			s.snap.BaselineActive = true
			s.mu.Unlock()
			startCycle()

		case <-blCancel:
			log.Printf("baro baseline abandoned after %d samples: %v", blN, bl.ctx.Err())
			finishBaseline(bl.ctx.Err())

		case <-measureTick.C:
			if failures >= reinitAfter && time.Since(lastReinitAt) >= reinitBackoff {
				endCycle()
				lastReinitAt = time.Now()
				if err := s.reinit(); err != nil {
					s.fail(fmt.Errorf("reinit: %w", err))
					continue
				}
				failures = 0
			}
			startCycle()

		case <-pollC:
			dev := s.sensor.Device()
			sample, ok, err := dev.Poll()
			if err != nil {
				endCycle()
				failures++
				s.fail(err)
				if blActive {
					finishBaseline(fmt.Errorf("baro: baseline failed: %w", err))
				}
				continue
			}
			if !ok {
				continue
			}
			endCycle()
			failures = 0

			now := time.Now().UTC()
			altM, altErr := dev.Altitude(sample)
			if altErr != nil {
				s.fail(altErr)
				continue
			}
			// A new reference shifts altitude as a step; restart the rate
			// estimate instead of reporting it as a climb.
			if ref := dev.Reference(); ref != lastRef {
				lastRef = ref
				lastAt = time.Time{}
				vs = 0
			}
			if !lastAt.IsZero() {
				dt := now.Sub(lastAt).Seconds()
				if dt > 0 {
					// Simple low-pass to reduce noise.
					vs = (1-vsAlpha)*vs + vsAlpha*(altM-lastAltM)/dt
				}
			}
			lastAt = now
			lastAltM = altM
			s.m.observe(sample, altM)

			s.mu.Lock()
			s.snap.Valid = true
			s.snap.TemperatureC = sample.TemperatureC()
			s.snap.PressurePa = sample.PressurePa
			s.snap.AltitudeM = altM
			s.snap.VerticalSpeedMps = vs
			s.snap.Samples++
			s.snap.LastError = ""
			s.snap.LastSampleAt = now
			s.snap.UpdatedAt = now
			s.mu.Unlock()

			if blActive {
				if err := bl.ctx.Err(); err != nil {
					finishBaseline(err)
					continue
				}
				blSum += float64(sample.PressurePa)
				blN++
				if now.Sub(blStart) >= s.cfg.BaselineWindow {
					finishBaseline(s.applyBaseline(blSum / float64(blN)))
					continue
				}
				// Back to back while collecting.
				startCycle()
			}
		}
	}
}

func (s *Service) applyBaseline(pa float64) error {
	if err := s.sensor.Device().SetReference(pa); err != nil {
		return err
	}
	s.cfg.ReferencePa = pa
	s.mu.Lock()
	s.snap.ReferencePa = pa
	s.mu.Unlock()
	log.Printf("baro baseline set pa=%.1f", pa)
	return nil
}

func (s *Service) clearBaseline() {
	s.mu.Lock()
	s.snap.BaselineActive = false
	s.mu.Unlock()
}

// reinit re-reads identity and calibration on the open bus. Settings changed
// at runtime carry over through s.cfg.
func (s *Service) reinit() error {
	if err := s.sensor.init(s.cfg); err != nil {
		return err
	}
	s.m.reinits.Inc()
	log.Printf("baro reinitialized %s", s.sensor.Device())
	return nil
}

func (s *Service) fail(err error) {
	s.m.fail(err)
	s.setErr(err.Error())
}

func (s *Service) setErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastError = msg
	s.snap.Valid = false
	s.snap.UpdatedAt = time.Now().UTC()
}
