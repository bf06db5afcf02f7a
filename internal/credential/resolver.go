// Package credential resolves provider credentials from the credential store
// with an environment-variable fallback.
package credential

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mwhitford/domaincred/internal/storage"
)

// Credentials is a username/password pair for the provider's Basic auth.
// Values are loaded per request and never persisted by this layer.
type Credentials struct {
	Username string
	Password string
}

// ErrNoCredentials is returned when no active credential exists in the store
// or the environment. Callers should surface this as a blocking configuration
// error, not a retryable condition.
var ErrNoCredentials = errors.New("no active provider credentials configured")

// ErrInvalidCredentials is returned when a matched record is missing a
// required field.
var ErrInvalidCredentials = errors.New("provider credential record is missing username or password")

// Environment fallback variables, checked in order.
var (
	envUsernameKeys = []string{"DATAFORSEO_USERNAME", "DATAFORSEO_LOGIN"}
	envPasswordKeys = []string{"DATAFORSEO_PASSWORD", "DATAFORSEO_API_KEY"}
)

// Resolver loads credentials with the priority: client-scoped record, global
// default record, first active record of any scope, environment pair.
type Resolver struct {
	store     storage.CredentialStore
	lookupEnv func(string) (string, bool)
}

// NewResolver creates a resolver backed by the given store. A nil store is
// allowed; resolution then relies on the environment fallback alone.
func NewResolver(store storage.CredentialStore) *Resolver {
	return &Resolver{store: store, lookupEnv: os.LookupEnv}
}

// Resolve returns credentials for the given client code. Client-scoped
// records always win over global defaults; the environment pair is the last
// resort.
func (r *Resolver) Resolve(ctx context.Context, clientCode string) (Credentials, error) {
	if r.store != nil {
		recs, err := r.store.ListCredentials(ctx)
		if err != nil {
			return Credentials{}, fmt.Errorf("list credentials: %w", err)
		}

		if rec, ok := pickRecord(recs, clientCode); ok {
			if rec.Username == "" || rec.Password == "" {
				return Credentials{}, ErrInvalidCredentials
			}
			return Credentials{Username: rec.Username, Password: rec.Password}, nil
		}
	}

	if creds, ok := r.fromEnv(); ok {
		return creds, nil
	}

	return Credentials{}, ErrNoCredentials
}

// pickRecord applies the resolution order over active records: exact client
// scope, unscoped global, then first active of any scope.
func pickRecord(recs []storage.CredentialRecord, clientCode string) (storage.CredentialRecord, bool) {
	var (
		global   *storage.CredentialRecord
		anyScope *storage.CredentialRecord
	)

	for i := range recs {
		rec := &recs[i]
		if !rec.Active {
			continue
		}
		if clientCode != "" && rec.ClientCode == clientCode {
			return *rec, true
		}
		if rec.ClientCode == "" && global == nil {
			global = rec
		}
		if anyScope == nil {
			anyScope = rec
		}
	}

	if global != nil {
		return *global, true
	}
	if anyScope != nil {
		return *anyScope, true
	}
	return storage.CredentialRecord{}, false
}

func (r *Resolver) fromEnv() (Credentials, bool) {
	var creds Credentials
	for _, key := range envUsernameKeys {
		if v, ok := r.lookupEnv(key); ok && v != "" {
			creds.Username = v
			break
		}
	}
	for _, key := range envPasswordKeys {
		if v, ok := r.lookupEnv(key); ok && v != "" {
			creds.Password = v
			break
		}
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, false
	}
	return creds, true
}
