package db

import (
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/onlinelabs/urenwerk/internal/models"
)

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db", "postgres://u:p@localhost:5432/db"},
		{` "postgres://u:p@localhost/db" `, "postgres://u:p@localhost/db"},
		{"host=localhost user=app dbname=app", "host=localhost user=app dbname=app sslmode=disable"},
		{"host=localhost   user=app  dbname=app sslmode=require", "host=localhost user=app dbname=app sslmode=require"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeDSN(tc.in); got != tc.want {
			t.Fatalf("NormalizeDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("postgres://app:geheim@db:5432/app"); got != "postgres://app:***@db:5432/app" {
		t.Fatalf("url mask = %q", got)
	}
	if got := MaskDSN("host=db password=geheim dbname=app"); got != "host=db password=*** dbname=app" {
		t.Fatalf("kv mask = %q", got)
	}
}

func TestClassifyConnectError(t *testing.T) {
	cases := map[string]string{
		"FATAL: password authentication failed for user": "database access denied: check the credentials in DATABASE_DSN",
		"dial tcp 127.0.0.1:5432: connection refused":    "database unreachable: check the host/port in DATABASE_DSN and your network",
		"something odd": "database misconfigured: something odd",
	}
	for in, want := range cases {
		if got := ClassifyConnectError(fmt.Errorf("%s", in)); got != want {
			t.Fatalf("classify(%q) = %q, want %q", in, got, want)
		}
	}
	if got := ClassifyConnectError(nil); got != "" {
		t.Fatalf("classify(nil) = %q", got)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := SeedIfEmpty(gdb); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var users, clients, projects int64
	gdb.Model(&models.User{}).Count(&users)
	gdb.Model(&models.Client{}).Count(&clients)
	gdb.Model(&models.Project{}).Count(&projects)
	if users != 4 || clients != 16 || projects != 16 {
		t.Fatalf("seeded %d users, %d clients, %d projects", users, clients, projects)
	}

	var admin models.User
	if err := gdb.First(&admin, "email = ?", "imre@onlinelabs.nl").Error; err != nil {
		t.Fatalf("admin missing: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", admin.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("wachtwoord")) != nil {
		t.Fatal("seed password does not verify")
	}

	// second run must not duplicate anything
	if err := SeedIfEmpty(gdb); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	gdb.Model(&models.Client{}).Count(&clients)
	if clients != 16 {
		t.Fatalf("reseed duplicated clients: %d", clients)
	}
}
