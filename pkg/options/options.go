// Package options provides data structures and functions for configuring
// the VSI core. It defines the parameters that control the shared segment
// layout, the allocator's splitting behavior, and the B-tree index order,
// following the same functional-options shape used across the rest of the
// VSI core.
package options

import "strings"

// segmentFileOptions controls the naming and location of the two
// memory-mapped backing files that make up a VSI segment pair.
type segmentFileOptions struct {
	// Directory is the base path under which both backing files are
	// created.
	//
	// Default: "/var/lib/vsicore"
	Directory string `json:"directory"`

	// UserFile is the filename of the user segment (chunk allocator +
	// payload data).
	//
	// Default: "vsi_user.seg"
	UserFile string `json:"userFile"`

	// SystemFile is the filename of the system segment (node pool +
	// B-tree nodes).
	//
	// Default: "vsi_system.seg"
	SystemFile string `json:"systemFile"`
}

// Options defines the configuration parameters for the VSI core.
type Options struct {
	// SegmentFiles configures the on-disk location of the two backing
	// segment files.
	SegmentFiles *segmentFileOptions `json:"segmentFiles"`

	// UserSegmentSize is the size, in bytes, of the user segment's data
	// region (the variable-size allocator's arena); the backing file is
	// this plus a 32-byte header. Must be a multiple of 8.
	//
	//  - Default: 64MB
	//  - Minimum: 1MB
	//  - Maximum: 4GB
	UserSegmentSize uint64 `json:"userSegmentSize"`

	// SystemSegmentSize is the size, in bytes, of the system segment's
	// data region (the fixed-size node pool backing the B-tree indices);
	// the backing file is this plus a 32-byte header.
	//
	//  - Default: 16MB
	//  - Minimum: 256KB
	//  - Maximum: 1GB
	SystemSegmentSize uint64 `json:"systemSegmentSize"`

	// SplitThreshold is the SPLIT_THRESHOLD of the allocator: the minimum
	// number of leftover bytes required before a found chunk is split
	// into an in-use head and a free remainder. Below this threshold the
	// whole chunk is handed out, accepting some internal fragmentation
	// rather than creating slivers too small to ever be reused.
	//
	// Default: 64 bytes
	SplitThreshold uint64 `json:"splitThreshold"`

	// NodeOrder is the order (branching factor) used for every B-tree
	// index built on top of the node pool: the allocator's bySize and
	// byOffset trees, and the id/name/private-id/group-id indices.
	//
	// Default: 32
	NodeOrder int `json:"nodeOrder"`
}

// OptionFunc is a function type that modifies the VSI core's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration
// values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithSegmentDir sets the base directory for both backing segment files.
func WithSegmentDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.SegmentFiles.Directory = directory
		}
	}
}

// WithUserSegmentSize sets the total size of the user segment.
func WithUserSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinUserSegmentSize && size <= MaxUserSegmentSize {
			o.UserSegmentSize = roundUp8(size)
		}
	}
}

// WithSystemSegmentSize sets the total size of the system segment.
func WithSystemSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSystemSegmentSize && size <= MaxSystemSegmentSize {
			o.SystemSegmentSize = roundUp8(size)
		}
	}
}

// WithSplitThreshold sets the allocator's minimum worthwhile split size.
func WithSplitThreshold(threshold uint64) OptionFunc {
	return func(o *Options) {
		o.SplitThreshold = threshold
	}
}

// WithNodeOrder sets the branching factor of every B-tree index.
func WithNodeOrder(order int) OptionFunc {
	return func(o *Options) {
		if order >= MinNodeOrder {
			o.NodeOrder = order
		}
	}
}

func roundUp8(n uint64) uint64 {
	return (n + 7) &^ 7
}
