package mockbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// validationError mirrors one entry of a 422 "detail" list
type validationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]validationError{
		"detail": {{Loc: []string{"body", field}, Msg: msg, Type: "value_error"}},
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, "body", fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// queryInt reads an optional integer query parameter. A malformed value
// writes a 422 and returns ok=false.
func queryInt(w http.ResponseWriter, r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string][]validationError{
			"detail": {{Loc: []string{"query", key}, Msg: "value is not a valid integer", Type: "type_error.integer"}},
		})
		return 0, false
	}
	return n, true
}

// pagination reads page and page_size, clamping to sane bounds
func pagination(w http.ResponseWriter, r *http.Request) (page, size int, ok bool) {
	if page, ok = queryInt(w, r, "page", 1); !ok {
		return 0, 0, false
	}
	if size, ok = queryInt(w, r, "page_size", defaultPageSize); !ok {
		return 0, 0, false
	}
	page = max(page, 1)
	size = min(max(size, 1), maxPageSize)
	return page, size, true
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}
