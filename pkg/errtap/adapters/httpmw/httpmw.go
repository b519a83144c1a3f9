// Package httpmw reports panics in HTTP handlers as exceptions.
package httpmw

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/strongdm/errtap/pkg/errtap"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	repanic bool
}

// WithRepanic re-raises the panic after reporting, leaving recovery to an
// outer handler or net/http itself.
func WithRepanic() Option {
	return func(c *config) {
		c.repanic = true
	}
}

// Middleware recovers panics from the wrapped handler, reports them through
// m and answers 500. The route template is part of the reported error when
// the request was matched by a gorilla/mux router.
//
// http.ErrAbortHandler is passed through untouched.
//
// Usage:
//
//	r := mux.NewRouter()
//	r.Use(httpmw.Middleware(errtap.Default()))
func Middleware(m *errtap.Monitor, opts ...Option) mux.MiddlewareFunc {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				errtap.ReportPanic(m, annotate(r, rec))
				if cfg.repanic {
					panic(rec)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// annotate prefixes the panic value with the request method and route.
func annotate(r *http.Request, rec any) error {
	where := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			where = tpl
		}
	}
	if err, ok := rec.(error); ok {
		return fmt.Errorf("%s %s: %w", r.Method, where, err)
	}
	return fmt.Errorf("%s %s: %v", r.Method, where, rec)
}
