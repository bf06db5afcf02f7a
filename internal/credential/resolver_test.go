package credential

import (
	"context"
	"errors"
	"testing"

	"github.com/mwhitford/domaincred/internal/storage"
	"github.com/mwhitford/domaincred/internal/storage/memory"
)

func seedStore(t *testing.T, recs ...storage.CredentialRecord) *memory.Store {
	t.Helper()

	s := memory.New(100)
	for _, rec := range recs {
		if err := s.SaveCredential(context.Background(), rec); err != nil {
			t.Fatalf("SaveCredential(%s) error = %v", rec.ID, err)
		}
	}
	return s
}

func noEnv(string) (string, bool) { return "", false }

func TestResolve_ClientScopedBeatsGlobal(t *testing.T) {
	store := seedStore(t,
		storage.CredentialRecord{ID: "c1", Username: "global-user", Password: "global-pass", Active: true},
		storage.CredentialRecord{ID: "c2", ClientCode: "acme", Username: "acme-user", Password: "acme-pass", Active: true},
	)

	r := NewResolver(store)
	r.lookupEnv = noEnv

	creds, err := r.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve(acme) error = %v", err)
	}
	if creds.Username != "acme-user" {
		t.Errorf("Username = %q, want acme-user (client scope wins over global)", creds.Username)
	}
}

func TestResolve_GlobalForUnknownClient(t *testing.T) {
	store := seedStore(t,
		storage.CredentialRecord{ID: "c1", ClientCode: "acme", Username: "acme-user", Password: "acme-pass", Active: true},
		storage.CredentialRecord{ID: "c2", Username: "global-user", Password: "global-pass", Active: true},
	)

	r := NewResolver(store)
	r.lookupEnv = noEnv

	creds, err := r.Resolve(context.Background(), "globex")
	if err != nil {
		t.Fatalf("Resolve(globex) error = %v", err)
	}
	if creds.Username != "global-user" {
		t.Errorf("Username = %q, want global-user", creds.Username)
	}
}

func TestResolve_FirstActiveWhenNoGlobal(t *testing.T) {
	store := seedStore(t,
		storage.CredentialRecord{ID: "c1", ClientCode: "acme", Username: "inactive", Password: "x", Active: false},
		storage.CredentialRecord{ID: "c2", ClientCode: "globex", Username: "globex-user", Password: "globex-pass", Active: true},
	)

	r := NewResolver(store)
	r.lookupEnv = noEnv

	creds, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if creds.Username != "globex-user" {
		t.Errorf("Username = %q, want globex-user (first active record)", creds.Username)
	}
}

func TestResolve_InvalidRecord(t *testing.T) {
	store := seedStore(t,
		storage.CredentialRecord{ID: "c1", Username: "user-only", Active: true},
	)

	r := NewResolver(store)
	r.lookupEnv = noEnv

	_, err := r.Resolve(context.Background(), "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Resolve() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestResolve_EnvFallback(t *testing.T) {
	env := map[string]string{
		"DATAFORSEO_LOGIN":   "env-user",
		"DATAFORSEO_API_KEY": "env-pass",
	}

	r := NewResolver(nil)
	r.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	creds, err := r.Resolve(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if creds.Username != "env-user" || creds.Password != "env-pass" {
		t.Errorf("creds = %+v, want env pair", creds)
	}
}

func TestResolve_EnvPrimaryNamesWin(t *testing.T) {
	env := map[string]string{
		"DATAFORSEO_USERNAME": "primary-user",
		"DATAFORSEO_LOGIN":    "alias-user",
		"DATAFORSEO_PASSWORD": "primary-pass",
		"DATAFORSEO_API_KEY":  "alias-pass",
	}

	r := NewResolver(nil)
	r.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	creds, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if creds.Username != "primary-user" || creds.Password != "primary-pass" {
		t.Errorf("creds = %+v, want primary env names to win", creds)
	}
}

func TestResolve_NoCredentialsAnywhere(t *testing.T) {
	r := NewResolver(seedStore(t))
	r.lookupEnv = noEnv

	_, err := r.Resolve(context.Background(), "acme")
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Resolve() error = %v, want ErrNoCredentials", err)
	}
}

func TestResolve_StoreBeatsEnv(t *testing.T) {
	store := seedStore(t,
		storage.CredentialRecord{ID: "c1", Username: "store-user", Password: "store-pass", Active: true},
	)

	r := NewResolver(store)
	r.lookupEnv = func(string) (string, bool) { return "env-value", true }

	creds, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if creds.Username != "store-user" {
		t.Errorf("Username = %q, want store-user (store wins over env)", creds.Username)
	}
}
