package catalog

import (
	"net/http"

	"Storefront/pkg/kit"
)

func NewHandler(s *Server, deps kit.HTTPDeps) http.Handler {
	r := kit.NewRouter(deps)
	r.Mount("/", s.Routes())
	return r
}
