// Package errors implements the VSI core's error taxonomy (spec §7):
// INVALID, NO_ENTRY, ALREADY_EXISTS, NO_DATA, NO_MEMORY, NO_SYS, TIMED_OUT,
// and CORRUPT, plus the ambient IO/INTERNAL codes any Go library needs for
// the plumbing underneath those — opening and truncating the two backing
// segment files.
//
// The taxonomy is implemented as a small hierarchy of concrete error types
// — ValidationError, StorageError, CatalogError — that all embed a common
// baseError. Each adds the context relevant to where it originates: a
// ValidationError knows which field and rule failed, a StorageError knows
// which segment and byte offset were involved, and a CatalogError knows
// which domain/signal/group a lookup was about. Callers that just want the
// code can call GetErrorCode instead of type-switching.
package errors

import (
	stdErrors "errors"
	"os"
	"syscall"
)

// IsValidationError checks if the given error is a ValidationError or
// contains one in its error chain.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return stdErrors.As(err, &ve)
}

// IsStorageError determines if an error originated from the shared-segment
// or allocator layer — mapping failures, truncation failures, or
// allocator CORRUPT/NO_MEMORY conditions.
func IsStorageError(err error) bool {
	var se *StorageError
	return stdErrors.As(err, &se)
}

// IsCatalogError identifies errors that occurred during an id/name/private-id/
// group-id index operation.
func IsCatalogError(err error) bool {
	var ce *CatalogError
	return stdErrors.As(err, &ce)
}

// AsValidationError safely extracts a ValidationError from an error chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stdErrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsStorageError extracts StorageError context from an error chain.
func AsStorageError(err error) (*StorageError, bool) {
	var se *StorageError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsCatalogError extracts CatalogError context from an error chain.
func AsCatalogError(err error) (*CatalogError, bool) {
	var ce *CatalogError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from any error that supports it, or
// returns ErrorCodeInternal for errors that don't carry a specific code.
func GetErrorCode(err error) ErrorCode {
	if ve, ok := AsValidationError(err); ok {
		return ve.Code()
	}
	if se, ok := AsStorageError(err); ok {
		return se.Code()
	}
	if ce, ok := AsCatalogError(err); ok {
		return ce.Code()
	}
	return ErrorCodeInternal
}

// GetErrorDetails extracts structured details from any error that supports
// them, returning an empty map for errors without details.
func GetErrorDetails(err error) map[string]any {
	if ve, ok := AsValidationError(err); ok {
		if details := ve.Details(); details != nil {
			return details
		}
	}
	if se, ok := AsStorageError(err); ok {
		if details := se.Details(); details != nil {
			return details
		}
	}
	if ce, ok := AsCatalogError(err); ok {
		if details := ce.Details(); details != nil {
			return details
		}
	}
	return make(map[string]any)
}

// ClassifyDirectoryCreationError analyzes a failure to create the directory
// that holds the two backing segment files and returns an appropriately
// coded StorageError.
func ClassifyDirectoryCreationError(err error, path string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodeIO, "insufficient permissions to create segment directory",
		).WithPath(path).WithDetail("operation", "directory_creation")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeIO, "insufficient disk space to create segment directory",
				).WithPath(path).WithDetail("operation", "directory_creation").WithDetail("errno", "ENOSPC")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeIO, "cannot create directory on read-only filesystem",
				).WithPath(path).WithDetail("operation", "directory_creation").WithDetail("errno", "EROFS")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "failed to create segment directory",
	).WithPath(path).WithDetail("operation", "directory_creation")
}

// ClassifyFileOpenError analyzes a failure to open or create one of the two
// backing segment files and returns an appropriately coded StorageError.
func ClassifyFileOpenError(err error, filePath, fileName string) error {
	if os.IsPermission(err) {
		return NewStorageError(
			err, ErrorCodeIO, "insufficient permissions to open segment file",
		).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
	}

	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeIO, "insufficient disk space to create segment file",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open").WithDetail("errno", "ENOSPC")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeIO, "cannot create file on read-only filesystem",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open").WithDetail("errno", "EROFS")
			case syscall.EMFILE, syscall.ENFILE:
				return NewStorageError(
					err, ErrorCodeIO, "too many open files while opening segment file",
				).WithPath(filePath).WithFileName(fileName).WithDetail("operation", "file_open")
			}
		}
	}

	return NewStorageError(err, ErrorCodeIO, "failed to open segment file").
		WithPath(filePath).
		WithFileName(fileName).
		WithDetail("operation", "file_open").
		WithDetail("flags", []string{"O_CREATE", "O_RDWR"})
}

// ClassifySyncError analyzes a failure to fsync or truncate one of the two
// backing segment files and returns an appropriately coded StorageError.
func ClassifySyncError(err error, fileName, filePath string, offset int) error {
	if pathErr, ok := err.(*os.PathError); ok {
		if errno, ok := pathErr.Err.(syscall.Errno); ok {
			switch errno {
			case syscall.ENOSPC:
				return NewStorageError(
					err, ErrorCodeIO, "cannot sync segment file: insufficient disk space",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).
					WithDetail("operation", "file_sync").WithDetail("errno", "ENOSPC")
			case syscall.EROFS:
				return NewStorageError(
					err, ErrorCodeIO, "cannot sync segment file: filesystem is read-only",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).
					WithDetail("operation", "file_sync").WithDetail("errno", "EROFS")
			case syscall.EIO:
				return NewStorageError(
					err, ErrorCodeIO, "I/O error during segment file sync",
				).WithFileName(fileName).WithPath(filePath).WithOffset(offset).
					WithDetail("operation", "file_sync").WithDetail("errno", "EIO")
			}
		}
	}

	return NewStorageError(
		err, ErrorCodeIO, "failed to sync segment file to disk",
	).WithFileName(fileName).WithPath(filePath).WithOffset(offset).
		WithDetail("operation", "file_sync")
}
