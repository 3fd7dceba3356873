package errors

import (
	"errors"
	"fmt"
)

// User errors: validation failures reported to the caller. The batch's
// transaction aborts cleanly, no partial commit is visible.
var (
	// ErrInvalidDocumentID is returned when a primary-key value fails the
	// external-id regex [A-Za-z0-9_-]+.
	ErrInvalidDocumentID = errors.New("invalid document id")

	// ErrMissingDocumentID is returned when a document has no value for the
	// primary-key field and autogeneration is disabled.
	ErrMissingDocumentID = errors.New("missing document id")

	// ErrMissingPrimaryKey is returned when no primary key is configured and
	// none of the document's fields contain "id" as a case-insensitive substring.
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrPrimaryKeyCannotBeChanged is returned when a batch infers a primary
	// key different from the one already persisted for this index.
	ErrPrimaryKeyCannotBeChanged = errors.New("primary key cannot be changed")

	// ErrAttributeLimitReached is returned once the fields-id map would
	// exceed 65,535 distinct fields.
	ErrAttributeLimitReached = errors.New("attribute limit reached")

	// ErrDocumentLimitReached is returned once internal ids would exceed 2^32-1.
	ErrDocumentLimitReached = errors.New("document limit reached")

	// ErrInvalidGeoField is returned when a document's "_geo" field is not an
	// object of finite lat/lng numbers.
	ErrInvalidGeoField = errors.New("invalid geo field")

	// ErrInvalidFacetValue is returned when a faceted field's value cannot be
	// coerced to either a number or a string.
	ErrInvalidFacetValue = errors.New("invalid facet distribution value")

	// ErrInvalidSortableAttribute is returned when a sort request names a
	// field outside the configured filterable/facet fields.
	ErrInvalidSortableAttribute = errors.New("invalid sortable attribute")

	// ErrMaxDatabaseSizeReached mirrors the backing store's map-size ceiling.
	ErrMaxDatabaseSizeReached = errors.New("max database size reached")

	// ErrNoSpaceLeftOnDevice wraps the OS-level disk-full condition.
	ErrNoSpaceLeftOnDevice = errors.New("no space left on device")

	// ErrInvalidStoreFile is returned when the on-disk store fails to open
	// because its file header or version does not match.
	ErrInvalidStoreFile = errors.New("invalid store file")
)

// Internal errors: indicate a bug or on-disk corruption rather than bad
// input. These are never expected to occur against a store this package
// built and maintained itself.
var (
	ErrDatabaseMissingEntry    = errors.New("database missing entry")
	ErrFieldsIDMapMissingEntry = errors.New("fields id map missing entry")
	ErrFST                     = errors.New("fst error")
	ErrInvalidChunkFormat      = errors.New("invalid chunk compression type or format version")
	ErrIndexingMergeFailure    = errors.New("indexing merge failure")
	ErrInvalidDatabaseTyping   = errors.New("invalid database typing")
	ErrSerialization           = errors.New("serialization error")
	ErrStore                   = errors.New("store error")
	ErrUTF8                    = errors.New("utf8 error")
	ErrThreadPoolBuild         = errors.New("thread pool build error")
)

// DocumentIDError reports why a particular document's primary-key value was
// rejected, keeping the offending value for diagnostics.
type DocumentIDError struct {
	Sentinel error
	Value    string
	Field    string
}

func (e *DocumentIDError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q value %q", e.Sentinel, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %q", e.Sentinel, e.Value)
}

func (e *DocumentIDError) Is(target error) bool {
	return target == e.Sentinel
}

// NewInvalidDocumentIDError reports a primary-key value that failed the
// external-id regex.
func NewInvalidDocumentIDError(value string) *DocumentIDError {
	return &DocumentIDError{Sentinel: ErrInvalidDocumentID, Value: value}
}

// NewMissingDocumentIDError reports a document with no value at all for the
// configured primary-key field.
func NewMissingDocumentIDError(field string) *DocumentIDError {
	return &DocumentIDError{Sentinel: ErrMissingDocumentID, Field: field}
}

// LimitReachedError reports that a hard capacity limit (fields, documents)
// was hit mid-batch.
type LimitReachedError struct {
	Sentinel error
	Limit    uint64
	Kind     string
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("%s limit of %d reached", e.Kind, e.Limit)
}

func (e *LimitReachedError) Is(target error) bool {
	return target == e.Sentinel
}

// NewAttributeLimitReachedError reports that the 65,535-field ceiling of the
// FieldsIdMap was hit.
func NewAttributeLimitReachedError() *LimitReachedError {
	return &LimitReachedError{Sentinel: ErrAttributeLimitReached, Limit: 65535, Kind: "attribute"}
}

// NewDocumentLimitReachedError reports that internal ids would overflow
// their 32-bit range.
func NewDocumentLimitReachedError() *LimitReachedError {
	return &LimitReachedError{Sentinel: ErrDocumentLimitReached, Limit: 1<<32 - 1, Kind: "document"}
}

// GeoFieldError explains why a "_geo" field was rejected.
type GeoFieldError struct {
	Reason string
}

func (e *GeoFieldError) Error() string {
	return fmt.Sprintf("invalid geo field: %s", e.Reason)
}

func (e *GeoFieldError) Is(target error) bool {
	return target == ErrInvalidGeoField
}

// NewInvalidGeoFieldError wraps a human-readable reason a "_geo" field was
// rejected (missing lat/lng, non-finite value, wrong type, ...).
func NewInvalidGeoFieldError(reason string) *GeoFieldError {
	return &GeoFieldError{Reason: reason}
}

// MergeFailureError wraps an error raised by a sorter's merge function,
// fatal to the enclosing transaction.
type MergeFailureError struct {
	Database string
	Key      []byte
	Err      error
}

func (e *MergeFailureError) Error() string {
	return fmt.Sprintf("indexing merge failure in database %q for key %x: %v", e.Database, e.Key, e.Err)
}

func (e *MergeFailureError) Unwrap() error {
	return e.Err
}

func (e *MergeFailureError) Is(target error) bool {
	return target == ErrIndexingMergeFailure
}

// NewMergeFailureError wraps the merge function's error with the database
// and key it failed on.
func NewMergeFailureError(database string, key []byte, err error) *MergeFailureError {
	return &MergeFailureError{Database: database, Key: key, Err: err}
}
