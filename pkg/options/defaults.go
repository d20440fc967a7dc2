package options

const (
	// DefaultSegmentDir is the default base directory where VSI stores its
	// two backing segment files.
	DefaultSegmentDir = "/var/lib/vsicore"

	// DefaultUserFile is the default filename of the user segment.
	DefaultUserFile = "vsi_user.seg"

	// DefaultSystemFile is the default filename of the system segment.
	DefaultSystemFile = "vsi_system.seg"

	// MinUserSegmentSize is the smallest allowed user segment (1MB).
	MinUserSegmentSize uint64 = 1 * 1024 * 1024

	// MaxUserSegmentSize is the largest allowed user segment (4GB).
	MaxUserSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// DefaultUserSegmentSize is the default user segment size (64MB).
	DefaultUserSegmentSize uint64 = 64 * 1024 * 1024

	// MinSystemSegmentSize is the smallest allowed system segment (256KB).
	MinSystemSegmentSize uint64 = 256 * 1024

	// MaxSystemSegmentSize is the largest allowed system segment (1GB).
	MaxSystemSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// DefaultSystemSegmentSize is the default system segment size (16MB).
	DefaultSystemSegmentSize uint64 = 16 * 1024 * 1024

	// DefaultSplitThreshold is the default allocator SPLIT_THRESHOLD (64B).
	DefaultSplitThreshold uint64 = 64

	// MinNodeOrder is the smallest allowed B-tree order.
	MinNodeOrder = 4

	// DefaultNodeOrder is the default B-tree order used by every index.
	DefaultNodeOrder = 32
)

// defaultOptions holds the default configuration settings for a VSI core
// instance.
var defaultOptions = Options{
	UserSegmentSize:   DefaultUserSegmentSize,
	SystemSegmentSize: DefaultSystemSegmentSize,
	SplitThreshold:    DefaultSplitThreshold,
	NodeOrder:         DefaultNodeOrder,
	SegmentFiles: &segmentFileOptions{
		Directory:  DefaultSegmentDir,
		UserFile:   DefaultUserFile,
		SystemFile: DefaultSystemFile,
	},
}

// NewDefaultOptions returns a fresh copy of the default configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	files := *defaultOptions.SegmentFiles
	opts.SegmentFiles = &files
	return opts
}
