package baro

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"bmp180-ng/internal/sensors/bmp180"
)

type metrics struct {
	temperature prometheus.Gauge
	pressure    prometheus.Gauge
	altitude    prometheus.Gauge
	cycles      prometheus.Counter
	reinits     prometheus.Counter
	errors      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_temperature_celsius",
			Help: "Compensated temperature.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_pressure_pascals",
			Help: "Compensated pressure.",
		}),
		altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmp180_altitude_meters",
			Help: "Altitude above the reference pressure.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmp180_measurement_cycles_total",
			Help: "Completed measurement cycles.",
		}),
		reinits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmp180_reinits_total",
			Help: "Sensor re-initializations after repeated failures.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bmp180_errors_total",
			Help: "Failed operations by error kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.temperature, m.pressure, m.altitude, m.cycles, m.reinits, m.errors)
	}
	return m
}

func (m *metrics) observe(s bmp180.Sample, altM float64) {
	m.cycles.Inc()
	m.temperature.Set(s.TemperatureC())
	m.pressure.Set(float64(s.PressurePa))
	m.altitude.Set(altM)
}

func (m *metrics) fail(err error) {
	m.errors.With(prometheus.Labels{"kind": errKind(err)}).Inc()
}

func errKind(err error) string {
	switch {
	case errors.Is(err, bmp180.ErrTransport):
		return "transport"
	case errors.Is(err, bmp180.ErrConfig):
		return "config"
	case errors.Is(err, bmp180.ErrComputation):
		return "computation"
	case errors.Is(err, bmp180.ErrState):
		return "state"
	}
	return "other"
}
