// Package shm provides the shared-memory foundation every other layer of
// the VSI core is built on: two backing files — a user segment (the
// variable-size allocator's arena) and a system segment (the fixed-size
// node pool backing every B-tree index) — mapped into the process address
// space so that offsets into them mean the same thing to every goroutine
// that touches them.
//
// Bootstrap follows the same shape as the rest of this module's
// subsystems: a Config carrying Options and a Logger, a New(ctx, config)
// constructor that creates the backing directory if needed, and a
// first-time-initialization path distinguished from a reattach to an
// already-populated segment pair.
package shm

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/iamNilotpal/vsi-core/pkg/errors"
	"github.com/iamNilotpal/vsi-core/pkg/filesys"
	"github.com/iamNilotpal/vsi-core/pkg/options"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// magic identifies a file as a VSI segment so that attaching to a stale or
// foreign file fails fast instead of corrupting memory.
const magic uint32 = 0x56534931 // "VSI1"

// formatVersion is bumped whenever the on-disk header layout changes.
const formatVersion uint32 = 1

// headerSize is the number of bytes reserved at the start of each backing
// file for the Header below. Kept 8-byte aligned so payload data starting
// immediately after it is itself 8-byte aligned.
const headerSize = 32

var ErrSegmentClosed = stdErrors.New("operation failed: cannot access closed segment")

// Header occupies the first headerSize bytes of every backing file.
type Header struct {
	Magic    uint32
	Version  uint32
	Size     uint64
	Reserved [16]byte
}

// Segment owns the two memory-mapped backing files that make up one VSI
// shared-memory region: the user segment (allocator arena) and the system
// segment (node pool arena).
type Segment struct {
	log *zap.SugaredLogger

	userFile   *os.File
	systemFile *os.File

	userMap   []byte
	systemMap []byte

	userBase   uintptr
	systemBase uintptr

	userDataSize   uint64
	systemDataSize uint64

	closed bool
}

// Config carries the parameters needed to attach to (or create) a VSI
// segment pair.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New attaches to the configured user/system segment files, creating and
// formatting them on first use. It is safe to call from multiple processes
// pointed at the same directory — an flock on the system file serializes
// first-time initialization so only one caller actually formats the
// headers.
func New(ctx context.Context, config *Config) (*Segment, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, fmt.Errorf("invalid shm configuration")
	}
	opts := config.Options
	log := config.Logger

	dir := opts.SegmentFiles.Directory
	log.Infow("attaching shared segment", "directory", dir)

	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return nil, errors.ClassifyDirectoryCreationError(err, dir)
	}

	userPath := filepath.Join(dir, opts.SegmentFiles.UserFile)
	systemPath := filepath.Join(dir, opts.SegmentFiles.SystemFile)

	userTotal := int64(headerSize + opts.UserSegmentSize)
	systemTotal := int64(headerSize + opts.SystemSegmentSize)

	userFile, err := filesys.OpenSegmentFile(userPath, userTotal, 0644)
	if err != nil {
		return nil, errors.ClassifyFileOpenError(err, userPath, opts.SegmentFiles.UserFile)
	}

	systemFile, err := filesys.OpenSegmentFile(systemPath, systemTotal, 0644)
	if err != nil {
		userFile.Close()
		return nil, errors.ClassifyFileOpenError(err, systemPath, opts.SegmentFiles.SystemFile)
	}

	// The system file's flock gates first-time formatting of both files:
	// whichever process gets the lock first initializes the headers, and
	// every later attacher just validates them.
	if err := unix.Flock(int(systemFile.Fd()), unix.LOCK_EX); err != nil {
		userFile.Close()
		systemFile.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to lock system segment for initialization").
			WithPath(systemPath).WithFileName(opts.SegmentFiles.SystemFile)
	}
	defer unix.Flock(int(systemFile.Fd()), unix.LOCK_UN)

	userMap, err := unix.Mmap(int(userFile.Fd()), 0, int(userTotal), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		userFile.Close()
		systemFile.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to map user segment").
			WithPath(userPath).WithFileName(opts.SegmentFiles.UserFile)
	}

	systemMap, err := unix.Mmap(int(systemFile.Fd()), 0, int(systemTotal), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Munmap(userMap)
		userFile.Close()
		systemFile.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to map system segment").
			WithPath(systemPath).WithFileName(opts.SegmentFiles.SystemFile)
	}

	seg := &Segment{
		log:            log,
		userFile:       userFile,
		systemFile:     systemFile,
		userMap:        userMap,
		systemMap:      systemMap,
		userBase:       uintptr(unsafe.Pointer(&userMap[0])),
		systemBase:     uintptr(unsafe.Pointer(&systemMap[0])),
		userDataSize:   opts.UserSegmentSize,
		systemDataSize: opts.SystemSegmentSize,
	}

	if err := seg.ensureHeader(seg.userMap, opts.UserSegmentSize, userPath); err != nil {
		seg.unmapAll()
		return nil, err
	}
	if err := seg.ensureHeader(seg.systemMap, opts.SystemSegmentSize, systemPath); err != nil {
		seg.unmapAll()
		return nil, err
	}

	log.Infow(
		"shared segment attached",
		"userSize", opts.UserSegmentSize,
		"systemSize", opts.SystemSegmentSize,
	)
	return seg, nil
}

// ensureHeader validates an existing header or writes a fresh one when the
// backing file was just created (all-zero header).
func (s *Segment) ensureHeader(mapped []byte, dataSize uint64, path string) error {
	hdr := (*Header)(unsafe.Pointer(&mapped[0]))

	if hdr.Magic == 0 && hdr.Version == 0 && hdr.Size == 0 {
		hdr.Magic = magic
		hdr.Version = formatVersion
		hdr.Size = dataSize
		return nil
	}

	if hdr.Magic != magic {
		return errors.NewStorageError(nil, errors.ErrorCodeCorrupt, "segment file has an invalid magic number").
			WithPath(path).WithDetail("expectedMagic", magic).WithDetail("actualMagic", hdr.Magic)
	}
	if hdr.Version != formatVersion {
		return errors.NewStorageError(nil, errors.ErrorCodeCorrupt, "segment file format version mismatch").
			WithPath(path).WithDetail("expectedVersion", formatVersion).WithDetail("actualVersion", hdr.Version)
	}
	if hdr.Size != dataSize {
		return errors.NewStorageError(nil, errors.ErrorCodeCorrupt, "segment file size does not match configured size").
			WithPath(path).WithDetail("expectedSize", dataSize).WithDetail("actualSize", hdr.Size)
	}
	return nil
}

// UserBase returns the base address of the user segment's data region,
// immediately after its header.
func (s *Segment) UserBase() uintptr { return s.userBase + headerSize }

// SystemBase returns the base address of the system segment's data
// region, immediately after its header.
func (s *Segment) SystemBase() uintptr { return s.systemBase + headerSize }

// UserSize returns the usable size, in bytes, of the user segment's data
// region.
func (s *Segment) UserSize() uint64 { return s.userDataSize }

// SystemSize returns the usable size, in bytes, of the system segment's
// data region.
func (s *Segment) SystemSize() uint64 { return s.systemDataSize }

// Close unmaps both backing files and closes their file descriptors. It is
// safe to call more than once.
func (s *Segment) Close() error {
	if s.closed {
		return ErrSegmentClosed
	}
	s.closed = true

	var errs []error
	if err := unix.Munmap(s.userMap); err != nil {
		errs = append(errs, err)
	}
	if err := unix.Munmap(s.systemMap); err != nil {
		errs = append(errs, err)
	}
	if err := s.userFile.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.systemFile.Close(); err != nil {
		errs = append(errs, err)
	}

	s.log.Infow("shared segment detached")
	return stdErrors.Join(errs...)
}

func (s *Segment) unmapAll() {
	unix.Munmap(s.userMap)
	unix.Munmap(s.systemMap)
	s.userFile.Close()
	s.systemFile.Close()
}
