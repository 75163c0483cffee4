package main

import (
	"context"
	"fmt"
	"io"
	"log"

	"bmp180-ng/internal/baro"
	"bmp180-ng/internal/config"
	"bmp180-ng/internal/sensors/bmp180"
)

type closer func()

var openDevice = func(s config.SensorConfig) (*bmp180.Device, closer, error) {
	sn, err := baro.Open(serviceConfig(s, nil))
	if err != nil {
		return nil, nil, err
	}
	return sn.Device(), func() { _ = sn.Close() }, nil
}

// measureOnce runs a single blocking measurement and prints it as key=value
// pairs. With baseline set, the reference is first replaced by the average
// pressure over the configured window.
func measureOnce(ctx context.Context, s config.SensorConfig, baseline bool, w io.Writer) error {
	dev, release, err := openDevice(s)
	if err != nil {
		return err
	}
	defer release()
	log.Printf("baro detected %s chip_id=% X", dev, dev.ChipID())

	if baseline {
		pa, err := dev.Baseline(ctx, s.BaselineWindow)
		if err != nil {
			return err
		}
		if err := dev.SetReference(pa); err != nil {
			return err
		}
	}

	sample, err := dev.Measure(ctx)
	if err != nil {
		return err
	}
	alt, err := dev.Altitude(sample)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "temperature_c=%.1f pressure_pa=%d altitude_m=%.2f reference_pa=%.1f oss=%d\n",
		sample.TemperatureC(), sample.PressurePa, alt, dev.Reference(), dev.Oversampling())
	return err
}
