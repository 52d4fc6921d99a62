package reconciliation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxErrorMessageLength bounds messages copied from remote responses into audit records
const maxErrorMessageLength = 1000

var (
	ErrUnknownObjectType = errors.New("reconciliation: unknown object type")
	ErrUnknownMethod     = errors.New("reconciliation: unknown synchronization method")
	ErrInvalidEvent      = errors.New("reconciliation: invalid event name")

	// Mapping errors
	ErrAlreadyMapped    = errors.New("reconciliation: object is already mapped")
	ErrNotMapped        = errors.New("reconciliation: mapped object does not exist")
	ErrCreateInProgress = errors.New("reconciliation: create already in progress for this object")
	ErrInvalidMapping   = errors.New("reconciliation: invalid identity mapping")

	// Translation errors
	ErrTaxBracketNotFound    = errors.New("reconciliation: no tax bracket matches percentage")
	ErrTaxBracketAmbiguous   = errors.New("reconciliation: more than one tax bracket matches percentage")
	ErrLedgerAccountNotFound = errors.New("reconciliation: ledger account not found")
	ErrInvalidDueDate        = errors.New("reconciliation: invalid due date")
	ErrRelationNotFound      = errors.New("reconciliation: relation could not be resolved")
	ErrInvoiceNotFound       = errors.New("reconciliation: invoice not found")
	ErrMissingField          = errors.New("reconciliation: required field is missing")

	// Configuration errors
	ErrSettingMissing = errors.New("reconciliation: required setting is missing")
	ErrSettingInvalid = errors.New("reconciliation: setting has an invalid value")

	// ErrNotApplicable signals that an object needs no remote call. Attempts
	// ending with it are recorded as successful no-ops.
	ErrNotApplicable = errors.New("reconciliation: nothing to synchronize for object")

	ErrOperationNotSupported     = errors.New("reconciliation: operation not supported for object type")
	ErrSynchronizerNotRegistered = errors.New("reconciliation: no synchronizer registered for object type")
	ErrSynchronizerRegistered    = errors.New("reconciliation: synchronizer already registered for object type")
	ErrSynchronizerNotPrepared   = errors.New("reconciliation: synchronizer setup has not completed")
	ErrRecordNotFound            = errors.New("reconciliation: synchronization record not found")
	ErrRunNotFound               = errors.New("reconciliation: synchronization run not found")
	ErrInvalidRecord             = errors.New("reconciliation: invalid synchronization record")
)

// ---------------------------------------------------------------------------
// RemoteAPIError
// ---------------------------------------------------------------------------

// RemoteAPIError is a non-2xx or malformed response from a gateway
type RemoteAPIError struct {
	Service    Service
	StatusCode int
	Message    string
}

// NewRemoteAPIError creates a RemoteAPIError with a bounded message
func NewRemoteAPIError(service Service, statusCode int, message string) *RemoteAPIError {
	return &RemoteAPIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    truncate(strings.TrimSpace(message), maxErrorMessageLength),
	}
}

// Error implements the error interface
func (e *RemoteAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s api request failed: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// IsNotFound reports whether the remote system answered 404
func (e *RemoteAPIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// ---------------------------------------------------------------------------
// TranslationError
// ---------------------------------------------------------------------------

// TranslationError means a remote object could not be converted into the
// target system's representation. It is fatal for that object only.
type TranslationError struct {
	Field  string
	Cause  error
	Detail string
}

// NewTranslationError creates a TranslationError
func NewTranslationError(field string, cause error, detail string) *TranslationError {
	return &TranslationError{Field: field, Cause: cause, Detail: detail}
}

// Error implements the error interface
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("translation of %s failed: %v", e.Field, e.Cause)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ---------------------------------------------------------------------------
// MappingError
// ---------------------------------------------------------------------------

// MappingError reports an identity-mapping precondition violation:
// "already mapped" on create, "not mapped" on update or delete.
type MappingError struct {
	Key   MappingKey
	Cause error
}

// NewMappingError creates a MappingError
func NewMappingError(key MappingKey, cause error) *MappingError {
	return &MappingError{Key: key, Cause: cause}
}

// Error implements the error interface
func (e *MappingError) Error() string {
	return fmt.Sprintf("%v: %s", e.Cause, e.Key)
}

// Unwrap returns the underlying cause
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// ---------------------------------------------------------------------------
// ConfigurationError
// ---------------------------------------------------------------------------

// ConfigurationError means a required setting is absent or unusable.
// During setup it aborts the whole run.
type ConfigurationError struct {
	Setting string
	Cause   error
	Detail  string
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(setting string, cause error, detail string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Cause: cause, Detail: detail}
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error for %s: %v", e.Setting, e.Cause)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// IsRetryable reports whether repeating the same attempt later could succeed
// without anyone changing data or configuration.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var mappingErr *MappingError
	var translationErr *TranslationError
	var configErr *ConfigurationError
	if errors.As(err, &mappingErr) || errors.As(err, &translationErr) || errors.As(err, &configErr) {
		return false
	}
	if errors.Is(err, ErrOperationNotSupported) || errors.Is(err, ErrNotApplicable) {
		return false
	}

	var remoteErr *RemoteAPIError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode == 0 || remoteErr.StatusCode == 429 || remoteErr.StatusCode >= 500
	}
	return true
}

// ErrorMessage returns the human-readable message stored with a failed attempt
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return truncate(err.Error(), maxErrorMessageLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
