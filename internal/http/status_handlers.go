package http

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"go-process-table-ui/internal/connectors/processapi"
)

func upstreamStatusHandler(client *processapi.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"generated_at": time.Now().UTC(),
			"services": map[string]any{
				"backend": backendStatus(ctx, client),
			},
		})
	}
}

func readyHandler(client *processapi.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := backendStatus(ctx, client)
		if ok, _ := status["ok"].(bool); !ok {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status":  "not_ready",
				"backend": status,
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func backendStatus(ctx context.Context, client *processapi.Client) map[string]any {
	if client == nil {
		return map[string]any{"enabled": false, "ok": false, "error": "backend client not configured"}
	}

	start := time.Now()
	probe := client.Probe(ctx)
	var err error
	if !probe.OK {
		if probe.Error == "" {
			probe.Error = fmt.Sprintf("unexpected status %d", probe.Status)
		}
		err = errors.New(probe.Error)
	}
	recordUpstreamCall("backend", "Probe", time.Since(start).Seconds(), err)

	out := map[string]any{"enabled": true, "ok": probe.OK, "probe": probe}
	if probe.Error != "" {
		out["error"] = probe.Error
	}
	return out
}
