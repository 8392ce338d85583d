package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitewatch/internal/domain"
	"sitewatch/internal/probe"
	"sitewatch/internal/repo"
	"sitewatch/internal/scheduler"
)

var validCategories = map[string]bool{
	"website": true, "application": true, "domain": true,
	"api": true, "server": true, "ip": true, "other": true,
}

type sitePayload struct {
	Address          string                    `json:"url"`
	Kind             domain.Kind               `json:"type"`
	Name             string                    `json:"name"`
	Category         string                    `json:"category"`
	AnomalyThreshold *int                      `json:"anomalyThreshold"`
	Notifications    *domain.NotificationPrefs `json:"notifications"`
}

func (s *Server) handleAddSite(w http.ResponseWriter, r *http.Request) {
	var p sitePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Kind == "" {
		p.Kind = domain.KindURL
	}
	if p.Kind != domain.KindURL && p.Kind != domain.KindIP {
		writeError(w, http.StatusBadRequest, "type must be url or ip")
		return
	}
	if p.Address == "" || p.Name == "" {
		writeError(w, http.StatusBadRequest, "url and name are required")
		return
	}
	if p.Kind == domain.KindURL {
		if u, err := url.Parse(p.Address); err != nil || u.Scheme == "" || u.Hostname() == "" {
			writeError(w, http.StatusBadRequest, "invalid url")
			return
		}
	}
	if !validCategories[p.Category] {
		p.Category = "website"
	}

	t := &domain.Target{
		Kind:             p.Kind,
		Address:          p.Address,
		Name:             p.Name,
		Category:         p.Category,
		AnomalyThreshold: 1000,
		Notifications: domain.NotificationPrefs{
			Downtime:     true,
			TLSExpiry:    true,
			DomainExpiry: true,
		},
		Status: domain.StatusUnknown,
	}
	if p.AnomalyThreshold != nil && *p.AnomalyThreshold > 0 {
		t.AnomalyThreshold = *p.AnomalyThreshold
	}
	if p.Notifications != nil {
		t.Notifications = *p.Notifications
	}

	if err := s.Targets.Add(r.Context(), t); err != nil {
		s.Logger.Warn("add_site_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add site")
		return
	}
	s.Logger.Info("added_site",
		zap.String("id", string(t.ID)),
		zap.String("address", t.Address),
		zap.String("type", string(t.Kind)),
	)
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Targets.List(r.Context())
	if err != nil {
		s.Logger.Warn("list_sites_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list error")
		return
	}
	if ts == nil {
		ts = []*domain.Target{}
	}
	writeJSON(w, http.StatusOK, ts)
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	t, err := s.Targets.Get(r.Context(), targetID(r))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updatePayload struct {
	Name             *string                   `json:"name"`
	Category         *string                   `json:"category"`
	AnomalyThreshold *int                      `json:"anomalyThreshold"`
	Notifications    *domain.NotificationPrefs `json:"notifications"`
}

// handleUpdateSite edits user-owned fields. Identity (id, address, kind)
// is immutable; the probe-owned fields belong to the prober.
func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	id := targetID(r)
	t, err := s.Targets.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	var p updatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}
	if p.Name != nil && *p.Name != "" {
		t.Name = *p.Name
	}
	if p.Category != nil && validCategories[*p.Category] {
		t.Category = *p.Category
	}
	if p.AnomalyThreshold != nil && *p.AnomalyThreshold > 0 {
		t.AnomalyThreshold = *p.AnomalyThreshold
	}
	if p.Notifications != nil {
		t.Notifications = *p.Notifications
	}
	if err := s.Targets.Put(r.Context(), t); err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	id := targetID(r)
	if err := s.Targets.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.Monitor.Forget(id)
	w.WriteHeader(http.StatusNoContent)
}

type metricsResponse struct {
	ResponseTimeData []metricPoint `json:"responseTimeData"`
	Timestamps       []string      `json:"timestamps"`
}

type metricPoint struct {
	ResponseTime int `json:"responseTime"`
}

// handleMetrics buckets the last 24 h of history by hour for graphing.
// Down checks count as the 5000 ms sentinel so outages stay visible.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	id := targetID(r)
	if _, err := s.Targets.Get(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	now := time.Now()
	rows, err := s.History.Since(r.Context(), id, now.Add(-24*time.Hour))
	if err != nil {
		s.Logger.Warn("metrics_query_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "metrics error")
		return
	}

	type bucket struct {
		sum   float64
		count int
	}
	start := now.Truncate(time.Hour).Add(-23 * time.Hour)
	buckets := make([]bucket, 24)
	for _, rec := range rows {
		slot := int(rec.Timestamp.Truncate(time.Hour).Sub(start) / time.Hour)
		if slot < 0 || slot > 23 {
			continue
		}
		v := float64(probe.DownLatencyMS)
		if rec.Status != domain.StatusDown && rec.LatencyMS != nil {
			v = *rec.LatencyMS
		}
		buckets[slot].sum += v
		buckets[slot].count++
	}

	resp := metricsResponse{
		ResponseTimeData: make([]metricPoint, 24),
		Timestamps:       make([]string, 24),
	}
	for i := range buckets {
		if buckets[i].count > 0 {
			resp.ResponseTimeData[i] = metricPoint{ResponseTime: int(buckets[i].sum/float64(buckets[i].count) + 0.5)}
		}
		resp.Timestamps[i] = start.Add(time.Duration(i) * time.Hour).Format("15:04")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Monitor.CheckNow(r.Context(), targetID(r))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type portsPayload struct {
	Ports []int `json:"ports"`
}

func (s *Server) handleScanPorts(w http.ResponseWriter, r *http.Request) {
	var p portsPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "bad payload")
			return
		}
	}
	scan, err := s.Monitor.ScanPorts(r.Context(), targetID(r), p.Ports)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, "site not found")
	case errors.Is(err, scheduler.ErrWrongKind), errors.Is(err, scheduler.ErrBadPorts):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.Logger.Warn("port_scan_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scan error")
	default:
		writeJSON(w, http.StatusOK, scan)
	}
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "site not found")
		return
	}
	s.Logger.Warn("store_error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func targetID(r *http.Request) domain.TargetID {
	return domain.TargetID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
