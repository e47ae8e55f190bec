package shared

import (
	"errors"

	"github.com/karyana-pos/karyana-pos/internal/platform/httpx"
)

// Domain modules return these sentinels; they are aliases of the httpx ones
// so handlers can hand unrecognised errors straight to httpx.RespondError
// and still get the right status code.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = httpx.ErrDuplicate
	// ErrForbidden indicates the actor lacks permission.
	ErrForbidden = httpx.ErrForbidden
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
