package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass partitions provider failures by how a cascade should react.
type ErrorClass int

const (
	// ErrClassGeneric covers timeouts, 5xx responses, malformed payloads.
	// A cascade gives up on the provider when it sees one.
	ErrClassGeneric ErrorClass = iota
	// ErrClassKeyInvalid means the API key was rejected outright.
	ErrClassKeyInvalid
	// ErrClassPermission means the key is known but denied: quota exhausted,
	// suspended account, forbidden model.
	ErrClassPermission
)

func (c ErrorClass) String() string {
	switch c {
	case ErrClassKeyInvalid:
		return "key_invalid"
	case ErrClassPermission:
		return "permission_denied"
	default:
		return "generic"
	}
}

// ProviderError is a classified failure from an external provider.
type ProviderError struct {
	Provider string
	Status   int
	Class    ErrorClass
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api error (%s): %s", e.Provider, e.Class, e.Message)
	}
	return fmt.Sprintf("%s api error (%s): status %d", e.Provider, e.Class, e.Status)
}

// Classify returns the error class, ErrClassGeneric for anything
// that is not a ProviderError.
func Classify(err error) ErrorClass {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	return ErrClassGeneric
}

// RotatesKey reports whether the failure justifies retrying with the
// next key of the same provider.
func RotatesKey(err error) bool {
	switch Classify(err) {
	case ErrClassKeyInvalid, ErrClassPermission:
		return true
	default:
		return false
	}
}

func classifyStatus(status int, message string) ErrorClass {
	switch status {
	case 401:
		return ErrClassKeyInvalid
	case 400:
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		if strings.Contains(strings.ToLower(message), "api key") {
			return ErrClassKeyInvalid
		}
		return ErrClassGeneric
	case 403, 429:
		return ErrClassPermission
	default:
		return ErrClassGeneric
	}
}
