package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Guard denies every route that is not on the public allowlist unless the
// request carries a principal. Patterns are exact paths or a prefix ending
// in "/**".
type Guard struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewGuard(publicRoutes []string) (*Guard, error) {
	g := &Guard{exact: make(map[string]struct{})}
	for _, route := range publicRoutes {
		route = strings.TrimSpace(route)
		if route == "" {
			continue
		}
		if isMatchAll(route) {
			return nil, fmt.Errorf("public route %q would disable authentication for every path", route)
		}
		if !strings.HasPrefix(route, "/") {
			return nil, fmt.Errorf("public route %q must start with /", route)
		}

		if prefix, ok := strings.CutSuffix(route, "/**"); ok {
			g.prefixes = append(g.prefixes, prefix)
			continue
		}
		g.exact[route] = struct{}{}
	}

	return g, nil
}

func isMatchAll(route string) bool {
	switch route {
	case "*", "**", "/*", "/**":
		return true
	}
	return false
}

func (g *Guard) IsPublic(path string) bool {
	if _, ok := g.exact[path]; ok {
		return true
	}
	for _, prefix := range g.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			WriteUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority rejects requests whose principal lacks authority.
func RequireAuthority(authority string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			WriteUnauthorized(w)
			return
		}
		if !principal.HasAuthority(authority) {
			WriteAccessDenied(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
