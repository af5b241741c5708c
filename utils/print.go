package utils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/leeforge/imgpress/json"
)

// PrintJson writes the indented json of the given value.
func PrintJson(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// PrintRoutes writes all the registered routes in a given chi.Routes.
func PrintRoutes(w io.Writer, r chi.Routes) {
	fmt.Fprintln(w, "\n=== Registered Routes ===")
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		fmt.Fprintf(w, "%-6s %s\n", method, strings.Replace(route, "/*/", "/", -1))
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		fmt.Fprintf(w, "Error walking routes: %v\n", err)
	}
	fmt.Fprintln(w, "========================")
}
