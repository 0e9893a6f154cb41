package block

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnknownRoute is returned for a route name with no pattern.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrMissingParam is returned when a pattern placeholder has no value.
	ErrMissingParam = errors.New("missing route parameter")
)

// RouteBuilder produces a URL from a route name and its parameters.
type RouteBuilder interface {
	URL(route string, params map[string]string) (string, error)
}

// Routes maps route names to path patterns with {param} placeholders.
type Routes map[string]string

// DefaultRoutes returns the routes the blocks link to.
func DefaultRoutes() Routes {
	return Routes{
		RouteContentCreateForm: "/group/{group}/content/create/{plugin_id}",
	}
}

// URL substitutes params into the named pattern. Values are path-escaped;
// parameters with no placeholder are ignored.
func (rs Routes) URL(route string, params map[string]string) (string, error) {
	pattern, ok := rs[route]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, route)
	}

	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("route %s: unterminated placeholder in %q", route, pattern)
		}
		end += open
		name := rest[open+1 : end]
		v, ok := params[name]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s for route %s", ErrMissingParam, name, route)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(v))
		rest = rest[end+1:]
	}
	return b.String(), nil
}
