package server

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 problem-details body. Every error response
// from the API uses this shape.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const problemTypeBase = "https://dhcplens.dev/problems/"

// problemSlugs covers the statuses this API actually returns. Anything
// else falls back to about:blank per the RFC.
var problemSlugs = map[int]string{
	http.StatusBadRequest:          "bad-request",
	http.StatusNotFound:            "not-found",
	http.StatusTooManyRequests:     "rate-limited",
	http.StatusInternalServerError: "internal-error",
}

func writeProblem(w http.ResponseWriter, status int, detail, instance string) {
	typ := "about:blank"
	if slug, ok := problemSlugs[status]; ok {
		typ = problemTypeBase + slug
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     typ,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	writeProblem(w, http.StatusBadRequest, detail, instance)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	writeProblem(w, http.StatusNotFound, detail, instance)
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	writeProblem(w, http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeProblem(w, http.StatusTooManyRequests, detail, instance)
}
