package metrics

import (
	"net/http"
	"sort"
	"strconv"
)

// StatusBucket is the number of results that finished with one status code.
type StatusBucket struct {
	Code  int
	Label string
	Count int
}

// FlattenStatusBuckets converts a code->count map into rows sorted by
// descending count, then ascending code for stability.
func FlattenStatusBuckets(codes map[int]int) []StatusBucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusBucket{Code: code, Label: StatusLabel(code), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// StatusLabel renders a status code for reports. Code 0 means the request
// never received a response.
func StatusLabel(code int) string {
	if code == 0 {
		return "no response"
	}
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + text
}
