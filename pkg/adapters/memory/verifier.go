package memory

import (
	"context"
	"sync"
)

// Verifier implements ports.CodeVerifier in memory. Identifiers registered
// as known accounts get a deterministic code; everyone else gets sent=false,
// the "no verification required" branch. Useful for tests and local dev.
type Verifier struct {
	mu    sync.Mutex
	known map[string]string // identifier -> expected code
}

// NewVerifier creates a verifier with no known identifiers.
func NewVerifier() *Verifier {
	return &Verifier{known: make(map[string]string)}
}

// Register marks an identifier as an existing account with the given code.
func (v *Verifier) Register(identifier, code string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.known[identifier] = code
}

// RequestCode reports sent=true only for registered identifiers.
func (v *Verifier) RequestCode(ctx context.Context, identifier string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.known[identifier]
	return ok, nil
}

// VerifyCode checks the code against the registered one.
func (v *Verifier) VerifyCode(ctx context.Context, identifier, code string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	expected, ok := v.known[identifier]
	return ok && expected == code, nil
}
