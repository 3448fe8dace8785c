package verifier

import "errors"

// Set of error variables for the attestation and administration paths.
// Every rejection leaves the verifier state completely unchanged and is
// terminal for that specific attestation value.
var (
	ErrStaleTimestamp          = errors.New("timestamp not newer than last update")
	ErrTimestampTooFarInFuture = errors.New("timestamp too far in the future")
	ErrDigestAlreadyUsed       = errors.New("digest already used")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrUntrustedSigner         = errors.New("signer is not trusted")
	ErrUnauthorized            = errors.New("caller is not the administrator")
	ErrInvalidSigner           = errors.New("signer cannot be the zero address")
	ErrRoundIncomplete         = errors.New("feed round not complete")
)
