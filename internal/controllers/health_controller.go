package controllers

import (
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"time"

	"sparkd/internal/funnel"
)

type HealthController struct {
	lock      *funnel.DeviceLock
	startTime time.Time
}

type healthResponse struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	DeviceLocked    bool    `json:"device_locked"`
	AccountsCreated int     `json:"accounts_created"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:          "ok",
		Uptime:          formatDuration(uptime),
		UptimeSeconds:   uptime.Seconds(),
		DeviceLocked:    hc.lock.IsGloballyLocked(),
		AccountsCreated: hc.lock.Data().AccountsCreated,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func NewHealthController(lock *funnel.DeviceLock) *HealthController {
	return &HealthController{
		lock:      lock,
		startTime: time.Now(),
	}
}
