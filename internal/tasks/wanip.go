// Package tasks implements the periodic maintenance loops of spec.md §4.9:
// WAN-IP discovery, daily chat rollover, and global rank recomputation.
// Grounded on the teacher's long-running match-runtime goroutines
// (server/evr_match.go's tick loop), reworked from a per-match ticker into
// three independent process-lifetime loops started by cmd/fiveserver.
package tasks

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	wanProbeTimeout    = 10 * time.Second
	wanProbeMaxBackoff = 120 * time.Second
	wanProbeMinBackoff = 2 * time.Second
)

// WANIPTarget is the subset of *fiveserver.Server the probe needs, kept
// narrow to avoid tasks depending on fiveserver (cmd/fiveserver passes
// the Server in at wiring time).
type WANIPTarget interface {
	SetWANIP(ip string)
	SetStartedAt(t time.Time)
}

// Requery is a one-shot trigger channel; sending on it (e.g. from the
// admin "requery" endpoint) wakes the probe loop immediately instead of
// waiting out its current backoff.
type Requery chan struct{}

// NewRequery creates a requery trigger with room for one pending signal.
func NewRequery() Requery { return make(chan struct{}, 1) }

// WANIPProbe runs until ctx is cancelled, fetching url and updating
// target on success. Failures retry with exponential backoff doubling
// from wanProbeMinBackoff up to wanProbeMaxBackoff (spec.md §4.9). A
// limiter bounds how often an admin-triggered requery can force an
// immediate fetch, so a burst of admin requests can't bypass backoff
// entirely.
func WANIPProbe(ctx context.Context, url string, target WANIPTarget, requery Requery, logger *zap.Logger) {
	if url == "" {
		return
	}
	limiter := rate.NewLimiter(rate.Every(wanProbeMinBackoff), 1)
	backoff := wanProbeMinBackoff

	client := &http.Client{Timeout: wanProbeTimeout}

	for {
		ip, err := fetchWANIP(ctx, client, url)
		if err != nil {
			logger.Warn("wan-ip probe failed", zap.Error(err), zap.Duration("retry_in", backoff))
		} else {
			target.SetWANIP(ip)
			target.SetStartedAt(time.Now())
			logger.Info("wan-ip updated", zap.String("ip", ip))
			backoff = wanProbeMinBackoff
		}

		wait := backoff
		if err == nil {
			wait = wanProbeMaxBackoff // steady-state recheck interval once healthy
		} else {
			backoff *= 2
			if backoff > wanProbeMaxBackoff {
				backoff = wanProbeMaxBackoff
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-requery:
			_ = limiter.Wait(ctx)
		case <-time.After(wait):
		}
	}
}

func fetchWANIP(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
