package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bmp180-ng/internal/baro"
	"bmp180-ng/internal/sensors/bmp180"
)

type StatusSource interface {
	Snapshot() baro.Snapshot
}

// Controller is the runtime control surface of the barometer service.
type Controller interface {
	SetReference(ctx context.Context, pa float64) error
	SetOversampling(ctx context.Context, o bmp180.Oversampling) error
	SetBaseline(ctx context.Context) error
	BaselineWindow() time.Duration
}

const (
	controlTimeout = 5 * time.Second
	// Added to the baseline window for the first cycle and the reply.
	baselineSlack = 3 * time.Second
	maxBodyBytes  = 1 << 16
)

type referenceRequest struct {
	PressurePa *float64 `json:"pressure_pa"`
}

type oversamplingRequest struct {
	Oversampling *int `json:"oversampling"`
}

func Handler(src StatusSource, ctl Controller, logs *LogBuffer, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var snap baro.Snapshot
		if src != nil {
			snap = src.Snapshot()
		}
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/api/reference", func(w http.ResponseWriter, r *http.Request) {
		if !allowPost(w, r, ctl) {
			return
		}
		var req referenceRequest
		if err := decodeBody(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.PressurePa == nil {
			http.Error(w, "pressure_pa is required", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
		defer cancel()
		if err := ctl.SetReference(ctx, *req.PressurePa); err != nil {
			http.Error(w, err.Error(), controlStatus(err))
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/oversampling", func(w http.ResponseWriter, r *http.Request) {
		if !allowPost(w, r, ctl) {
			return
		}
		var req oversamplingRequest
		if err := decodeBody(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Oversampling == nil {
			http.Error(w, "oversampling is required", http.StatusBadRequest)
			return
		}
		if *req.Oversampling < 0 || *req.Oversampling > int(bmp180.UltraHighResolution) {
			http.Error(w, "oversampling must be 0..3", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), controlTimeout)
		defer cancel()
		if err := ctl.SetOversampling(ctx, bmp180.Oversampling(*req.Oversampling)); err != nil {
			http.Error(w, err.Error(), controlStatus(err))
			return
		}
		writeOK(w)
	})

	mux.HandleFunc("/api/baseline", func(w http.ResponseWriter, r *http.Request) {
		if !allowPost(w, r, ctl) {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), ctl.BaselineWindow()+baselineSlack)
		defer cancel()
		if err := ctl.SetBaseline(ctx); err != nil {
			http.Error(w, err.Error(), controlStatus(err))
			return
		}
		writeOK(w)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func allowPost(w http.ResponseWriter, r *http.Request, ctl Controller) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if ctl == nil {
		http.Error(w, "barometer unavailable", http.StatusNotFound)
		return false
	}
	return true
}

// decodeBody accepts exactly one JSON object with no unknown fields. An empty
// body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read failed: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %v", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid json: trailing data")
	}
	return nil
}

func controlStatus(err error) int {
	switch {
	case errors.Is(err, bmp180.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("{\"ok\":true}\n"))
}

func Serve(ctx context.Context, listenAddr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
