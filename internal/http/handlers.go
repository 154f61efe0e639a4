package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"time"

	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/orchestrator"
	"go-process-table-ui/internal/render"
	"go-process-table-ui/internal/render/dom"
)

func dashboardHandler(doc *dom.Document) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(nethttp.StatusOK)
		_ = doc.Render(w)
	}
}

// actionHandler runs one orchestrator cycle. Browsers are redirected back
// to the page; JSON clients get the resulting state.
func actionHandler(run func(context.Context) error, renderer *render.Renderer, timeout time.Duration) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		// The cycle outlives a client that navigates away.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
		defer cancel()

		err := run(ctx)
		if !wantsJSON(r) {
			nethttp.Redirect(w, r, "/", nethttp.StatusSeeOther)
			return
		}

		if errors.Is(err, orchestrator.ErrBusy) {
			writeJSON(w, nethttp.StatusConflict, map[string]any{
				"error": err.Error(),
				"data":  renderer.State(),
			})
			return
		}
		payload := map[string]any{"data": renderer.State()}
		if err != nil {
			payload["error"] = err.Error()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func wantsJSON(r *nethttp.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func stateHandler(renderer *render.Renderer) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": renderer.State(),
		})
	}
}

func inputParamsHandler(client *processapi.Client) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		text, err := client.FetchInputParams(r.Context())
		recordUpstreamCall("backend", "FetchInputParams", time.Since(start).Seconds(), err)
		if err != nil {
			status := nethttp.StatusBadGateway
			var se *processapi.StatusError
			if errors.As(err, &se) && se.Status == nethttp.StatusNotFound {
				status = nethttp.StatusNotFound
			}
			writeJSON(w, status, map[string]any{
				"error": "failed to fetch input parameters",
			})
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": strings.TrimSpace(text),
		})
	}
}
