package routes

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/osprey/pkg/openapi"
)

// Group organizes routes under a common prefix. Children inherit the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux and returns
// the registered patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	Walk(func(pattern string, route Route) {
		mux.HandleFunc(pattern, route.Handler)
		patterns = append(patterns, pattern)
	}, groups...)
	return patterns
}

// Walk calls fn for every route with its full "METHOD /prefix/pattern" form.
func Walk(fn func(pattern string, route Route), groups ...Group) {
	for _, group := range groups {
		walkGroup(fn, "", group)
	}
}

func walkGroup(fn func(string, Route), parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		fn(route.Method+" "+fullPrefix+route.Pattern, route)
	}
	for _, child := range group.Children {
		walkGroup(fn, fullPrefix, child)
	}
}

// Document adds every route that carries an OpenAPI operation to spec.
// Paths are recorded without the method and relative to the spec's servers.
func Document(spec *openapi.Spec, groups ...Group) error {
	var err error
	Walk(func(pattern string, route Route) {
		if err != nil || route.OpenAPI == nil {
			return
		}
		method, path, _ := strings.Cut(pattern, " ")
		if path == "" {
			path = "/"
		}
		err = spec.AddOperation(method, path, route.OpenAPI)
	}, groups...)
	return err
}
