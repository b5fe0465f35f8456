package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/service"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/pkg/httpx"
	"github.com/kavineksith/user-management-api/pkg/jwtx"
	"github.com/kavineksith/user-management-api/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer  *jwtx.Signer
	store   store.Store
	logger  *slog.Logger
	env     string
	cookies cookieOptions

	AccountService *service.AccountService
	UserService    *service.UserService
}

func NewRouter(
	signer *jwtx.Signer,
	st store.Store,
	logger *slog.Logger,
	env string,
	corsConfig httpx.CORSConfig,
) *Router {
	secure := env != "dev"

	r := &Router{
		Mux:    http.NewServeMux(),
		signer: signer,
		store:  st,
		logger: logger,
		env:    env,
		cookies: cookieOptions{
			Secure:     secure,
			AccessTTL:  signer.AccessTTL,
			RefreshTTL: signer.RefreshTTL,
		},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORSMiddleware(corsConfig),
		httpx.CSRFMiddleware(secure),
		httpx.RateLimitByIP(httpx.APILimit),
	}

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Accounts: r.AccountService,
		Cookies:  r.cookies,
		Env:      r.env,
	}

	session := SessionMiddleware(r.signer, r.store)

	// Unauthenticated credential endpoints carry the strictest limit; they
	// are the brute-force surface.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.AuthLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.AuthLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.AuthLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.AuthLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.AuthLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/update-password",
		httpx.Chain(http.HandlerFunc(h.HandleUpdatePassword),
			session,
			httpx.RateLimitByIP(httpx.UserActionLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe), session),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout), session),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		Users: r.UserService,
		Env:   r.env,
	}

	session := SessionMiddleware(r.signer, r.store)
	adminOnly := RequireRoles(domain.RoleAdmin)

	// Self-service routes. Registered before the {id} patterns so "me" never
	// resolves as an id.
	r.Mux.Handle("PATCH /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateMe),
			session,
			httpx.RateLimitByIP(httpx.UserActionLimit),
		),
	)
	r.Mux.Handle("DELETE /api/users/me",
		httpx.Chain(http.HandlerFunc(h.HandleDeleteMe),
			session,
			httpx.RateLimitByIP(httpx.UserActionLimit),
		),
	)

	// Admin routes.
	r.Mux.Handle("GET /api/users",
		httpx.Chain(http.HandlerFunc(h.HandleList), session, adminOnly),
	)
	r.Mux.Handle("GET /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), session, adminOnly),
	)
	r.Mux.Handle("PATCH /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			session,
			adminOnly,
			httpx.RateLimitByIP(httpx.UserActionLimit),
		),
	)
	r.Mux.Handle("DELETE /api/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			session,
			adminOnly,
			httpx.RateLimitByIP(httpx.UserActionLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "API is running")
	})

	// Readiness: the service is only useful if the database answers.
	r.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := r.store.Ping(req.Context()); err != nil {
			httpx.WriteError(w, req, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
	})

	// Catch-all so unknown paths answer with the JSON envelope instead of
	// the stdlib plain-text 404.
	r.Mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(w, req, http.StatusNotFound,
			fmt.Sprintf("Can't find %s on this server", req.URL.Path))
	})
}
