package sanitize

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mira/internal/behavior"
)

func TestNilContext(t *testing.T) {
	ctx, metrics := Sanitize(nil)
	if ctx != nil {
		t.Errorf("Expected nil context, got %v", ctx)
	}
	if metrics.OriginalBytes != 0 || metrics.SanitizedBytes != 0 || len(metrics.TrimmedPaths) != 0 {
		t.Errorf("Expected zero metrics, got %+v", metrics)
	}
}

func TestLongStringTruncated(t *testing.T) {
	ctx := &behavior.Context{
		CurrentPage: "/customers",
		PageData: map[string]interface{}{
			"notes": strings.Repeat("a", 600),
		},
	}

	out, metrics := Sanitize(ctx)

	got, ok := out.PageData["notes"].(string)
	if !ok {
		t.Fatalf("Expected string notes, got %T", out.PageData["notes"])
	}
	if n := len([]rune(got)); n > 257 {
		t.Errorf("Expected at most 257 runes, got %d", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	if len(metrics.TrimmedPaths) != 1 || metrics.TrimmedPaths[0] != "notes" {
		t.Errorf("Expected trimmed path [notes], got %v", metrics.TrimmedPaths)
	}
	// Input stays untouched.
	if len(ctx.PageData["notes"].(string)) != 600 {
		t.Error("Input context was mutated")
	}
}

func TestShortStringUntouched(t *testing.T) {
	ctx := &behavior.Context{
		PageData: map[string]interface{}{"title": "hello"},
	}

	out, metrics := Sanitize(ctx)

	if out.PageData["title"] != "hello" {
		t.Errorf("Expected untouched string, got %v", out.PageData["title"])
	}
	if len(metrics.TrimmedPaths) != 0 {
		t.Errorf("Expected no trimmed paths, got %v", metrics.TrimmedPaths)
	}
}

func TestLargeArrayCapped(t *testing.T) {
	items := make([]interface{}, 50)
	for i := range items {
		items[i] = i
	}
	ctx := &behavior.Context{
		PageData: map[string]interface{}{"rows": items},
	}

	out, metrics := Sanitize(ctx)

	rows, ok := out.PageData["rows"].([]interface{})
	if !ok {
		t.Fatalf("Expected array, got %T", out.PageData["rows"])
	}
	if len(rows) != 20 {
		t.Errorf("Expected 20 elements, got %d", len(rows))
	}
	if len(metrics.TrimmedPaths) != 1 || metrics.TrimmedPaths[0] != "rows" {
		t.Errorf("Expected trimmed path [rows], got %v", metrics.TrimmedPaths)
	}
}

func TestNestedTrimmingRecordsPaths(t *testing.T) {
	ctx := &behavior.Context{
		PageData: map[string]interface{}{
			"customer": map[string]interface{}{
				"bio": strings.Repeat("x", 300),
			},
		},
	}

	_, metrics := Sanitize(ctx)

	if len(metrics.TrimmedPaths) != 1 || metrics.TrimmedPaths[0] != "customer.bio" {
		t.Errorf("Expected trimmed path [customer.bio], got %v", metrics.TrimmedPaths)
	}
}

func TestCompliantTreePassesThroughUnchanged(t *testing.T) {
	data := map[string]interface{}{
		"customer": map[string]interface{}{
			"name":  "Acme",
			"tags":  []interface{}{"hot", "enterprise"},
			"score": 0.92,
		},
		"open_tasks": []interface{}{1.0, 2.0, 3.0},
	}
	ctx := &behavior.Context{CurrentPage: "/customers/detail", PageData: data}

	out, metrics := Sanitize(ctx)

	if diff := cmp.Diff(data, out.PageData); diff != "" {
		t.Errorf("Compliant tree changed (-want +got):\n%s", diff)
	}
	if len(metrics.TrimmedPaths) != 0 {
		t.Errorf("Expected no trimmed paths, got %v", metrics.TrimmedPaths)
	}
	if metrics.SanitizedBytes != metrics.OriginalBytes {
		t.Errorf("Expected byte counts equal, got %d vs %d", metrics.SanitizedBytes, metrics.OriginalBytes)
	}
}

func TestOverBudgetDropsPageData(t *testing.T) {
	// 30 distinct 250-char strings stay under the per-string cap but blow the
	// total budget even after trimming.
	data := make(map[string]interface{}, 30)
	for i := 0; i < 30; i++ {
		data[fmt.Sprintf("field_%02d", i)] = strings.Repeat("v", 250)
	}
	ctx := &behavior.Context{
		CurrentPage:   "/analytics",
		CurrentModule: "analytics",
		PageData:      data,
	}

	out, metrics := Sanitize(ctx)

	if out.PageData != nil {
		t.Errorf("Expected page data dropped, got %d keys", len(out.PageData))
	}
	if !metrics.PageDataDropped {
		t.Error("Expected PageDataDropped metric")
	}
	if out.CurrentPage != "/analytics" || out.CurrentModule != "analytics" {
		t.Error("Expected rest of context preserved")
	}
}

func TestNoPageData(t *testing.T) {
	ctx := &behavior.Context{CurrentPage: "/dashboard"}

	out, metrics := Sanitize(ctx)

	if out.PageData != nil {
		t.Errorf("Expected nil page data, got %v", out.PageData)
	}
	if metrics.OriginalBytes != 0 {
		t.Errorf("Expected zero original bytes, got %d", metrics.OriginalBytes)
	}
	if metrics.SanitizedBytes != 0 || len(metrics.TrimmedPaths) != 0 || metrics.PageDataDropped {
		t.Errorf("Expected zero metrics, got %+v", metrics)
	}
}
