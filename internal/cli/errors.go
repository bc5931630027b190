// Package cli implements the command-line interface.
package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Vault errors
	ErrVaultNotFound     = "VAULT_NOT_FOUND"
	ErrVaultNotSpecified = "VAULT_NOT_SPECIFIED"
	ErrConfigInvalid     = "CONFIG_INVALID"

	// Book errors
	ErrBookNotFound  = "BOOK_NOT_FOUND"
	ErrBookAmbiguous = "BOOK_AMBIGUOUS"

	// File errors
	ErrFileNotFound   = "FILE_NOT_FOUND"
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Pipeline errors
	ErrExtractFailed = "EXTRACT_FAILED"
	ErrIntakeFailed  = "INTAKE_FAILED"
	ErrCatalogError  = "CATALOG_ERROR"

	// Sync errors
	ErrClippingsNotFound = "CLIPPINGS_NOT_FOUND"
	ErrSyncFailed        = "SYNC_FAILED"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)
