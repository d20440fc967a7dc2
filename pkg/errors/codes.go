package errors

// ErrorCode represents a standardized way to categorize different types of errors.
type ErrorCode string

// Base error codes mirror the VSI core error taxonomy: every public
// operation returns one of these, or wraps one deeper in its chain.
const (
	// ErrorCodeInvalid is raised when a required argument is missing or
	// out of range — e.g. a signal name longer than the catalog allows, or
	// a node pool block size too small to hold a free-list link.
	ErrorCodeInvalid ErrorCode = "INVALID"

	// ErrorCodeNoEntry is raised when a lookup in an index (id, name,
	// private-id, or group) finds nothing.
	ErrorCodeNoEntry ErrorCode = "NO_ENTRY"

	// ErrorCodeAlreadyExists is raised by CreateGroup when the group id
	// already has a group.
	ErrorCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrorCodeNoData is raised by a non-blocking fetch against an empty
	// signal list.
	ErrorCodeNoData ErrorCode = "NO_DATA"

	// ErrorCodeNoMemory is raised when the allocator cannot satisfy a
	// request out of the user segment.
	ErrorCodeNoMemory ErrorCode = "NO_MEMORY"

	// ErrorCodeNoSys marks a variant the source leaves unimplemented.
	// Nothing in this implementation returns it, but it is preserved so
	// callers written against the abstract API surface can still match
	// on it.
	ErrorCodeNoSys ErrorCode = "NO_SYS"

	// ErrorCodeTimedOut is raised when a blocking fetch or listen_any ends
	// because its context was canceled or its deadline passed before data
	// arrived.
	ErrorCodeTimedOut ErrorCode = "TIMED_OUT"

	// ErrorCodeCorrupt is raised when an allocator sanity check fails —
	// a chunk marker is neither FREE nor IN_USE, or a payload offset
	// falls outside the segment — or when a segment file's header does not
	// validate on attach. It is returned as an error like every other
	// code; nothing in this module panics or aborts on it.
	ErrorCodeCorrupt ErrorCode = "CORRUPT"

	// ErrorCodeIO represents failures in the underlying mmap/file
	// plumbing: opening, truncating, or mapping a segment file.
	ErrorCodeIO ErrorCode = "IO_ERROR"

	// ErrorCodeInternal represents unexpected failures that don't fit
	// into any of the above — bugs, assertion failures, or other
	// programming errors that shouldn't occur during normal operation.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)
