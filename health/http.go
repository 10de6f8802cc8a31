package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const probeTimeout = 5 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one check in a HealthResponse, and the body of
// GET /health/<name>.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func newCheckResponse(r Result) CheckResponse {
	resp := CheckResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		resp.Error = r.Error.Error()
	}
	return resp
}

// LivenessHandler answers 200 as long as the process serves HTTP.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}
}

// ReadinessHandler answers 503 only when some check is unhealthy. A
// degraded layer still serves cached queries and stays in rotation.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	bodies := map[Status]string{StatusHealthy: "OK", StatusDegraded: "DEGRADED", StatusUnhealthy: "UNHEALTHY"}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		status := agg.CheckAll(ctx).Status
		writeText(w, statusCode(status), bodies[status])
	}
}

// DetailedHandler reports every check as JSON.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.CheckAll(r.Context())

		resp := HealthResponse{
			Status:    report.Status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(report.Results)),
		}
		for name, result := range report.Results {
			resp.Checks[name] = newCheckResponse(result)
		}
		writeJSON(w, statusCode(report.Status), resp)
	}
}

// SingleCheckHandler reports the check registered under name.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		result, err := agg.Check(ctx, name)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, statusCode(result.Status), newCheckResponse(result))
	}
}

// Router is the route registration method of *httprouter.Router.
type Router interface {
	Handler(method, path string, handler http.Handler)
}

// RegisterHandlers mounts /healthz, /readyz, /health and /health/<name> for
// each checker registered so far.
func RegisterHandlers(r Router, agg *Aggregator) {
	r.Handler(http.MethodGet, "/healthz", LivenessHandler())
	r.Handler(http.MethodGet, "/readyz", ReadinessHandler(agg))
	r.Handler(http.MethodGet, "/health", DetailedHandler(agg))
	for _, name := range agg.Names() {
		r.Handler(http.MethodGet, "/health/"+name, SingleCheckHandler(agg, name))
	}
}

func statusCode(s Status) int {
	if s >= StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
