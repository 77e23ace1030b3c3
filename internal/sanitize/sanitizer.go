// Package sanitize trims oversized page data before a behavioral context is
// attached to a logged event or shipped upstream. Long strings and large
// arrays are cut down in place; if the trimmed tree still blows the byte
// budget, page data is dropped wholesale and the rest of the context is kept.
package sanitize

import (
	"encoding/json"
	"fmt"
	"sort"

	"mira/internal/behavior"
	"mira/internal/logging"
)

const (
	// maxStringLen is the rune cap per string value. Truncated strings get a
	// trailing ellipsis, so the result is at most maxStringLen+1 runes.
	maxStringLen = 256
	// maxArrayLen is the element cap per array value.
	maxArrayLen = 20
	// maxPageDataBytes is the serialized budget for the whole page data tree.
	maxPageDataBytes = 4096
)

// Metrics reports what sanitization did to a context.
type Metrics struct {
	OriginalBytes  int      `json:"original_bytes"`
	SanitizedBytes int      `json:"sanitized_bytes"`
	TrimmedPaths   []string `json:"trimmed_paths,omitempty"`
	// PageDataDropped is set when the trimmed tree still exceeded the byte
	// budget and page data was removed entirely.
	PageDataDropped bool `json:"page_data_dropped,omitempty"`
}

// Sanitize returns a trimmed copy of the context plus metrics. The input is
// never mutated. A nil context returns nil and zero metrics.
func Sanitize(ctx *behavior.Context) (*behavior.Context, Metrics) {
	if ctx == nil {
		return nil, Metrics{}
	}

	out := *ctx
	if ctx.PageData == nil {
		return &out, Metrics{}
	}

	metrics := Metrics{OriginalBytes: serializedSize(ctx.PageData)}

	trimmed := make(map[string]interface{}, len(ctx.PageData))
	var paths []string
	for k, v := range ctx.PageData {
		trimmed[k] = trimValue(v, k, &paths)
	}
	sort.Strings(paths)
	metrics.TrimmedPaths = paths

	metrics.SanitizedBytes = serializedSize(trimmed)
	if metrics.SanitizedBytes > maxPageDataBytes {
		logging.Sanitize("Page data still %d bytes after trimming, dropping it", metrics.SanitizedBytes)
		out.PageData = nil
		metrics.PageDataDropped = true
		metrics.SanitizedBytes = 0
		return &out, metrics
	}

	if len(paths) > 0 {
		logging.SanitizeDebug("Trimmed %d paths (%d -> %d bytes)", len(paths), metrics.OriginalBytes, metrics.SanitizedBytes)
	}

	out.PageData = trimmed
	return &out, metrics
}

// trimValue recursively copies a value, capping strings and arrays. Trimmed
// field paths are recorded in dotted form.
func trimValue(v interface{}, path string, paths *[]string) interface{} {
	switch val := v.(type) {
	case string:
		runes := []rune(val)
		if len(runes) <= maxStringLen {
			return val
		}
		*paths = append(*paths, path)
		return string(runes[:maxStringLen]) + "…"

	case []interface{}:
		elems := val
		if len(elems) > maxArrayLen {
			*paths = append(*paths, path)
			elems = elems[:maxArrayLen]
		}
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = trimValue(e, fmt.Sprintf("%s[%d]", path, i), paths)
		}
		return out

	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = trimValue(e, path+"."+k, paths)
		}
		return out

	default:
		return v
	}
}

func serializedSize(v interface{}) int {
	if v == nil {
		return 0
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(data)
}
