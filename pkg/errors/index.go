package errors

// CatalogError provides specialized error handling for the id/name/private-id/
// group-id index operations of §4.6 and §4.5. It extends the base error
// system with the context needed to tell which signal or group a lookup
// failure was about.
type CatalogError struct {
	// Embed the base error to inherit all standard error functionality
	// including error chaining, structured details, and error codes.
	*baseError

	// domain identifies the signal's domain namespace, when applicable.
	domain uint16

	// signalID identifies which signal was being looked up, when applicable.
	signalID uint32

	// groupID identifies which signal group was being processed, when
	// the error originated from a group operation.
	groupID uint32

	// name records the textual name involved, for name-index lookups.
	name string

	// operation describes what catalog operation was being performed
	// (e.g. "Define", "NameToId", "CreateGroup").
	operation string
}

// NewCatalogError creates a new catalog-specific error with the provided
// context.
func NewCatalogError(err error, code ErrorCode, msg string) *CatalogError {
	return &CatalogError{
		baseError: NewBaseError(err, code, msg),
	}
}

// Override base error methods to return *CatalogError instead of *baseError.

// WithMessage updates the error message while maintaining the CatalogError type.
func (ce *CatalogError) WithMessage(msg string) *CatalogError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithCode sets the error code while preserving the CatalogError type.
func (ce *CatalogError) WithCode(code ErrorCode) *CatalogError {
	ce.baseError.WithCode(code)
	return ce
}

// WithDetail adds contextual information while maintaining the CatalogError type.
func (ce *CatalogError) WithDetail(key string, value any) *CatalogError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithDomain records which domain was being queried.
func (ce *CatalogError) WithDomain(domain uint16) *CatalogError {
	ce.domain = domain
	return ce
}

// WithSignalID records which signal id was being queried.
func (ce *CatalogError) WithSignalID(id uint32) *CatalogError {
	ce.signalID = id
	return ce
}

// WithGroupID records which group id was being processed.
func (ce *CatalogError) WithGroupID(id uint32) *CatalogError {
	ce.groupID = id
	return ce
}

// WithName records which signal name was being looked up.
func (ce *CatalogError) WithName(name string) *CatalogError {
	ce.name = name
	return ce
}

// WithOperation records what catalog operation was being performed.
func (ce *CatalogError) WithOperation(operation string) *CatalogError {
	ce.operation = operation
	return ce
}

// Domain returns the domain involved in the error, if any.
func (ce *CatalogError) Domain() uint16 { return ce.domain }

// SignalID returns the signal id involved in the error, if any.
func (ce *CatalogError) SignalID() uint32 { return ce.signalID }

// GroupID returns the group id involved in the error, if any.
func (ce *CatalogError) GroupID() uint32 { return ce.groupID }

// Name returns the signal name involved in the error, if any.
func (ce *CatalogError) Name() string { return ce.name }

// Operation returns the name of the catalog operation that was being
// performed.
func (ce *CatalogError) Operation() string { return ce.operation }

// NewNoEntryError builds the NO_ENTRY error for a failed (domain, signal)
// lookup in the id-index.
func NewNoEntryError(domain uint16, signalID uint32) *CatalogError {
	return NewCatalogError(nil, ErrorCodeNoEntry, "no signal registered for (domain, signal)").
		WithDomain(domain).
		WithSignalID(signalID).
		WithOperation("Lookup")
}

// NewNameNotFoundError builds the NO_ENTRY error for a failed name-index
// lookup.
func NewNameNotFoundError(domain uint16, name string) *CatalogError {
	return NewCatalogError(nil, ErrorCodeNoEntry, "no signal registered under that name").
		WithDomain(domain).
		WithName(name).
		WithOperation("NameToId")
}

// NewGroupAlreadyExistsError builds the ALREADY_EXISTS error for
// CreateGroup on an id that is already in use.
func NewGroupAlreadyExistsError(groupID uint32) *CatalogError {
	return NewCatalogError(nil, ErrorCodeAlreadyExists, "group id already exists").
		WithGroupID(groupID).
		WithOperation("CreateGroup")
}

// NewGroupNotFoundError builds the NO_ENTRY error for an operation against
// an unknown group id.
func NewGroupNotFoundError(groupID uint32) *CatalogError {
	return NewCatalogError(nil, ErrorCodeNoEntry, "no such signal group").
		WithGroupID(groupID).
		WithOperation("Lookup")
}
