package ports

import "context"

// CodeVerifier is the opaque one-time-passcode collaborator. Rate limiting,
// delivery channel, and code lifetime are its concern, not the wizard's.
type CodeVerifier interface {
	// RequestCode asks the collaborator to deliver a code to the identifier.
	// sent == false is not an error: it means no verification is required for
	// this identifier (a legitimate branch for unknown users).
	RequestCode(ctx context.Context, identifier string) (sent bool, err error)

	// VerifyCode checks a code previously delivered to the identifier.
	VerifyCode(ctx context.Context, identifier, code string) (ok bool, err error)
}
