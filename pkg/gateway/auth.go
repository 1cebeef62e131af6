package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apiguardian/apiguardian/pkg/gateway/secretcipher"
)

// KeyPrefix distinguishes gateway keys from raw provider keys. A bearer
// token without this prefix is rejected before any directory lookup.
const KeyPrefix = "ag-"

// RejectReason identifies why a request was rejected, independent of the
// HTTP status used to surface it.
type RejectReason string

const (
	ReasonMissingOrInvalidKey  RejectReason = "missing_or_invalid_key"
	ReasonKeyNotFound          RejectReason = "key_not_found"
	ReasonSecretNotConfigured  RejectReason = "secret_not_configured"
	ReasonServerMisconfigured  RejectReason = "server_misconfigured"
	ReasonSecretDecryption     RejectReason = "secret_decryption_failed"
	ReasonUnknownProvider      RejectReason = "unknown_provider"
	ReasonRateLimited          RejectReason = "rate_limited"
	ReasonUpstreamUnreachable  RejectReason = "upstream_unreachable"
	ReasonInternal             RejectReason = "internal_error"
)

// Rejection is a structured terminal outcome of the pipeline. Message is
// safe to echo to the caller; Cause is for server-side logs only.
type Rejection struct {
	Reason  RejectReason
	Status  int
	Message string
	Cause   error
}

func (r *Rejection) Error() string {
	return string(r.Reason) + ": " + r.Message
}

// Unwrap exposes the underlying cause for errors.Is checks in logs/tests.
func (r *Rejection) Unwrap() error {
	return r.Cause
}

func reject(reason RejectReason, status int, message string, cause error) *Rejection {
	return &Rejection{Reason: reason, Status: status, Message: message, Cause: cause}
}

// Authenticator validates an inbound gateway key against the directory and
// recovers the plaintext provider secret.
type Authenticator struct {
	directory Directory
	cipher    *secretcipher.Cipher
}

func NewAuthenticator(directory Directory, cipher *secretcipher.Cipher) *Authenticator {
	return &Authenticator{directory: directory, cipher: cipher}
}

// Authenticate resolves the Authorization header into an AuthContext or a
// Rejection. Client-attributable failures map to 401; a missing master key
// or an undecryptable secret are server-side conditions and map to 500.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*AuthContext, *Rejection) {
	ctx, span := tracer.Start(ctx, "Gateway.Authenticate")
	defer span.End()

	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || !strings.HasPrefix(token, KeyPrefix) {
		return nil, reject(ReasonMissingOrInvalidKey, http.StatusUnauthorized,
			"Missing or invalid gateway API key.", nil)
	}

	record, err := a.directory.FindByGatewayKey(ctx, token)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, reject(ReasonKeyNotFound, http.StatusUnauthorized,
				"Gateway API key not found.", nil)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, reject(ReasonInternal, http.StatusInternalServerError,
			"Internal Server Error", err)
	}

	if record.EncryptedSecret == nil || *record.EncryptedSecret == "" {
		return nil, reject(ReasonSecretNotConfigured, http.StatusUnauthorized,
			"Provider API key is not configured for this project.", nil)
	}

	if a.cipher == nil || !a.cipher.Configured() {
		err := errors.New("encryption master key is not configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, reject(ReasonServerMisconfigured, http.StatusInternalServerError,
			"Internal Server Configuration Error", err)
	}

	secret, err := a.cipher.Decrypt(*record.EncryptedSecret)
	if err != nil {
		// Master key rotated without re-encrypting, or a corrupted row.
		// Never the caller's fault.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("project_id", record.ID.String()))
		return nil, reject(ReasonSecretDecryption, http.StatusInternalServerError,
			"Internal Security Error", err)
	}

	return &AuthContext{
		ProjectID:     record.ID,
		OwnerID:       record.OwnerID,
		MonthlyBudget: record.MonthlyBudget,
		Secret:        secret,
		rateLimits:    record.RateLimits,
	}, nil
}
