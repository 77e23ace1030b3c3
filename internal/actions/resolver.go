package actions

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// PageResolver maps a logical page name plus params to a concrete path.
type PageResolver interface {
	Resolve(page string, params map[string]string) (string, error)
}

// StaticPageResolver resolves pages against a fixed logical-name to path
// table. The page string may carry inline query params ("CustomerDetail?id=abc")
// which are preserved in their written order; extra params are appended in
// sorted key order.
type StaticPageResolver struct {
	routes map[string]string
}

// DefaultRoutes is the built-in page table of the hosting application.
func DefaultRoutes() map[string]string {
	return map[string]string{
		"Dashboard":      "/dashboard",
		"CustomerList":   "/customers",
		"CustomerDetail": "/customers/detail",
		"ProposalList":   "/proposals",
		"ProposalCreate": "/proposals/new",
		"Analytics":      "/analytics",
		"TaskList":       "/tasks",
		"Settings":       "/settings",
	}
}

// NewStaticPageResolver creates a resolver over the given route table.
// A nil table uses DefaultRoutes.
func NewStaticPageResolver(routes map[string]string) *StaticPageResolver {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &StaticPageResolver{routes: routes}
}

// Resolve maps "CustomerDetail?id=abc" + {filter:"hot"} to
// "/customers/detail?id=abc&filter=hot".
func (r *StaticPageResolver) Resolve(page string, params map[string]string) (string, error) {
	if page == "" {
		return "", fmt.Errorf("empty page name")
	}

	name := page
	inline := ""
	if i := strings.Index(page, "?"); i >= 0 {
		name = page[:i]
		inline = page[i+1:]
	}

	path, ok := r.routes[name]
	if !ok {
		return "", fmt.Errorf("unknown page %q", name)
	}

	var parts []string
	if inline != "" {
		parts = append(parts, inline)
	}
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
		}
	}

	if len(parts) == 0 {
		return path, nil
	}
	return path + "?" + strings.Join(parts, "&"), nil
}
