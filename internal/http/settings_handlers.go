package http

import (
	nethttp "net/http"

	"go-process-table-ui/internal/config"
)

func settingsHandler(cfg config.Config) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"data": cfg.Settings(),
		})
	}
}
