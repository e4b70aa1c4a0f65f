package storefront

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"Storefront/pkg/kit"
)

const SessionCookie = "storefront_session"

type Server struct {
	Sessions   *Sessions
	Templates  *template.Template
	Log        *zap.Logger
	CatalogURL string
	Limiter    *kit.IPRateLimiter

	// SessionLimiter bounds how often one client may start a session.
	SessionLimiter *kit.IPRateLimiter

	SecureCookies bool
	SessionTTL    time.Duration
}

type ctxKey struct{}

func pageFrom(ctx context.Context) *Page {
	p, _ := ctx.Value(ctxKey{}).(*Page)
	return p
}

type cartResponse struct {
	Outcome string `json:"outcome"`
	View    View   `json:"view"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Group(func(pr chi.Router) {
		pr.Use(s.withPage)

		pr.Get("/", s.home)
		pr.Get("/api/view", s.apiView)

		pr.Group(func(mr chi.Router) {
			if s.Limiter != nil {
				mr.Use(s.Limiter.Middleware)
			}
			mr.Post("/cart/{id}", s.addToCart)
			mr.Post("/reload", s.reload)
			mr.Post("/api/cart/{id}", s.apiAddToCart)
		})
	})

	return r
}

func (s *Server) withPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}

		var admit func() bool
		if s.SessionLimiter != nil {
			admit = func() bool { return s.SessionLimiter.AllowRequest(r) }
		}

		page, newToken, err := s.Sessions.Acquire(token, admit)
		switch {
		case errors.Is(err, ErrSessionRateLimited):
			w.Header().Set("Retry-After", s.SessionLimiter.RetryAfter())
			kit.WriteError(w, r, http.StatusTooManyRequests, "too many new sessions", nil)
			return
		case errors.Is(err, ErrSessionLimit):
			w.Header().Set("Retry-After", "60")
			kit.WriteError(w, r, http.StatusServiceUnavailable, "storefront is full", nil)
			return
		case err != nil:
			s.logError("acquire session failed", err)
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}
		if newToken != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    newToken,
				Path:     "/",
				MaxAge:   int(s.SessionTTL.Seconds()),
				HttpOnly: true,
				Secure:   s.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, page)))
	})
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	if err := kit.WriteHTML(w, http.StatusOK, s.Templates, "home", v); err != nil {
		s.logError("render home failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) apiView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, v)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if _, ok := s.dispatch(w, r, AddToCart{ProductID: id}); !ok {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.dispatch(w, r, RequestProducts{}); !ok {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) apiAddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	out, ok := s.dispatch(w, r, AddToCart{ProductID: id})
	if !ok {
		return
	}
	v, ok := s.view(w, r)
	if !ok {
		return
	}

	status := http.StatusOK
	if out == OutcomeIgnored {
		status = http.StatusNotFound
	}
	kit.WriteJSON(w, status, cartResponse{Outcome: out.String(), View: v})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := checkCatalogReady(ctx, s.CatalogURL); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed: catalog", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) (View, bool) {
	v, err := pageFrom(r.Context()).View(r.Context())
	if err != nil {
		s.writePageError(w, r, err)
		return View{}, false
	}
	return v, true
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, msg Msg) (Outcome, bool) {
	out, err := pageFrom(r.Context()).Dispatch(r.Context(), msg)
	if err != nil {
		s.writePageError(w, r, err)
		return out, false
	}
	return out, true
}

func (s *Server) writePageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrPageClosed):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "session closed", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logError("page error", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logError(msg string, err error) {
	if s.Log != nil {
		s.Log.Error(msg, zap.Error(err))
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad product id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
