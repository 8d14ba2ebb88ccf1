package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/onlinelabs/urenwerk/auth"
	"github.com/onlinelabs/urenwerk/internal/models"
	"github.com/onlinelabs/urenwerk/internal/store"
	"github.com/onlinelabs/urenwerk/internal/tracker"
)

func setupHandlerStore(t *testing.T) *store.Store {
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Client{}, &models.Project{}, &models.UserBudget{},
		&models.TimeEntry{}, &models.Invoice{}, &models.InvoiceLineItem{}, &models.InvoiceEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

func seedUser(t *testing.T, st *store.Store, email, password, role string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{Name: "Tester", Email: email, PasswordHash: string(hash), Role: role}
	if err := st.CreateUser(t.Context(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func sessionCookie(userID string) *http.Cookie {
	rec := httptest.NewRecorder()
	auth.CreateSession(rec, userID)
	return rec.Result().Cookies()[0]
}

// doJSON runs a JSON request through the handler behind the session
// middleware, as the router wires it in production.
func doJSON(t *testing.T, h http.Handler, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	auth.Middleware(h).ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func seedProject(t *testing.T, st *store.Store) (models.Client, models.Project) {
	t.Helper()
	client := models.Client{Name: "Bakkerij Jansen"}
	if err := st.CreateClient(t.Context(), &client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	project := models.Project{Name: "Webshop", ClientID: client.ID, Rate: 100}
	if err := st.CreateProject(t.Context(), &project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return client, project
}

func seedFinishedEntry(t *testing.T, st *store.Store, projectID, userID string, hours float64) models.TimeEntry {
	t.Helper()
	end := time.Now()
	entry := models.TimeEntry{
		ProjectID: projectID, UserID: userID, Description: "werk",
		StartTime:     end.Add(-time.Duration(hours * float64(time.Hour))),
		EndTime:       &end,
		AccumulatedMS: int64(hours * 3_600_000),
	}
	if err := st.CreateTimeEntry(t.Context(), &entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return entry
}

func newTracker(st *store.Store) *tracker.Service { return tracker.New(st) }
