package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	inFlight := 0
	if a.Supervisor != nil {
		inFlight = a.Supervisor.InFlight()
	}
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "inFlight": inFlight})
}
