package server

import (
	"net/http"
	"strconv"

	"github.com/ivall/sifo/catalog"
)

// parseIntQuery extracts an int parameter from query string with a default value.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parsePathID parses a positive numeric id from a path segment.
func parsePathID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &catalog.ValidationError{Msg: "invalid id " + strconv.Quote(s)}
	}
	return id, nil
}
