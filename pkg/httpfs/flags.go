package httpfs

// AccessMode is the caller's declared access intent.
type AccessMode int

const (
	// ReadAccess opens for reading only.
	ReadAccess AccessMode = iota
	// WriteAccess opens for writing.
	WriteAccess
	// ReadWriteAccess opens for reading and writing.
	ReadWriteAccess
)

// ExistsAction governs what happens when the opened path already
// resolves to a file. On an immutable store only ExistsNop can
// succeed: creation and truncation are meaningless.
type ExistsAction int

const (
	// ExistsNop opens the existing content as-is.
	ExistsNop ExistsAction = iota
	// ExistsThrow fails because the file unexpectedly exists.
	ExistsThrow
	// ExistsTruncate would truncate the existing file.
	ExistsTruncate
)

// OpenFlags describes how a file is to be opened. The zero value is
// read-only with ExistsNop, the only combination this store accepts.
type OpenFlags struct {
	Access   AccessMode
	OnExists ExistsAction
}

// DefaultFlags is a plain read-only open.
var DefaultFlags = OpenFlags{Access: ReadAccess, OnExists: ExistsNop}

func (of OpenFlags) wantsWrite() bool {
	return of.Access == WriteAccess || of.Access == ReadWriteAccess
}
