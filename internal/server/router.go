package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/onlinelabs/urenwerk/auth"
	"github.com/onlinelabs/urenwerk/httpx"
	"github.com/onlinelabs/urenwerk/internal/config"
	"github.com/onlinelabs/urenwerk/internal/db"
	"github.com/onlinelabs/urenwerk/internal/gemini"
	"github.com/onlinelabs/urenwerk/internal/handlers"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(gdb *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	st := store.New(gdb)
	tr := tracker.New(st)

	// The verifier lets RequireAuth drop sessions whose user was deleted.
	auth.SetUserVerifier(func(ctx context.Context, uid string) bool {
		var count int64
		if err := gdb.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := gdb.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authed := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}

	ah := handlers.NewAuthHandler(st, tr)
	mux.Handle("POST /auth/login", auth.Middleware(http.HandlerFunc(ah.Login)))
	mux.Handle("POST /auth/logout", authed(ah.Logout))
	mux.Handle("GET /auth/me", authed(ah.Me))

	th := handlers.NewTimerHandler(st, tr)
	mux.Handle("GET /timers", authed(th.Active))
	mux.Handle("POST /timers/start", authed(th.Start))
	mux.Handle("POST /timers/{id}/pause", authed(th.Pause))
	mux.Handle("POST /timers/{id}/resume", authed(th.Resume))
	mux.Handle("POST /timers/{id}/stop", authed(th.Stop))
	mux.Handle("POST /timers/{id}/restart", authed(th.Restart))

	eh := handlers.NewEntryHandler(st, tr)
	mux.Handle("POST /time-entries", authed(eh.CreateManual))
	mux.Handle("PATCH /time-entries/{id}", authed(eh.Update))
	mux.Handle("DELETE /time-entries/{id}", authed(eh.Delete))
	mux.Handle("POST /admin/time-entries/reset", authed(eh.ResetAll))

	ch := handlers.NewClientHandler(st)
	mux.Handle("GET /clients", authed(ch.List))
	mux.Handle("POST /clients", authed(ch.Create))
	mux.Handle("PATCH /clients/{id}", authed(ch.Update))
	mux.Handle("DELETE /clients/{id}", authed(ch.Delete))

	ph := handlers.NewProjectHandler(st)
	mux.Handle("GET /projects", authed(ph.List))
	mux.Handle("POST /projects", authed(ph.Create))
	mux.Handle("PATCH /projects/{id}", authed(ph.Update))

	uh := handlers.NewUserHandler(st)
	mux.Handle("GET /users", authed(uh.List))
	mux.Handle("POST /users", authed(uh.Create))
	mux.Handle("PATCH /users/{id}", authed(uh.Update))
	mux.Handle("DELETE /users/{id}", authed(uh.Delete))

	gem := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	ih := handlers.NewInvoiceHandler(st, gem, cfg.InvoiceFloor, cfg.InvoiceDueDays, cfg.DefaultTaxRate)
	mux.Handle("GET /invoices", authed(ih.List))
	mux.Handle("POST /invoices", authed(ih.Create))
	mux.Handle("PATCH /invoices/{id}", authed(ih.Update))
	mux.Handle("DELETE /invoices/{id}", authed(ih.Delete))
	mux.Handle("POST /invoices/{id}/refine-subject", authed(ih.Refine))

	rh := handlers.NewReportHandler(st)
	// Seeds the reference data when the store is still empty, then answers
	// with the same full snapshot /snapshot serves.
	mux.Handle("GET /bootstrap", authed(func(w http.ResponseWriter, r *http.Request) {
		if err := db.SeedIfEmpty(gdb); err != nil {
			slog.Error("bootstrap seed failed", "err", err)
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		rh.Snapshot(w, r)
	}))
	mux.Handle("GET /snapshot", authed(rh.Snapshot))
	mux.Handle("GET /dashboard", authed(rh.Dashboard))
	mux.Handle("GET /projects/{id}/budget", authed(rh.Budget))
	mux.Handle("GET /reports/prognose", authed(rh.Prognose))
	mux.Handle("GET /reports/turnover", authed(rh.Turnover))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "path", r.URL.Path, "panic", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
