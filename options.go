package scego

const (
	// DefaultPerplexity is the default target effective neighbor count for
	// affinity calibration.
	DefaultPerplexity = 15.0

	// DefaultMaxIter is the default iteration budget.
	DefaultMaxIter = 100000

	// DefaultNegSamples is the default number of repulsive draws per
	// positive edge draw.
	DefaultNegSamples = 5

	// DefaultLearningRate is the default initial learning rate (decays
	// linearly to zero over the run).
	DefaultLearningRate = 1.0

	// DefaultFrames is the default number of animation snapshots.
	DefaultFrames = 100

	// DefaultWorkers is the default number of logical workers per iteration.
	DefaultWorkers = 128

	// DefaultThreads is the default number of pool goroutines the workers
	// are multiplexed onto.
	DefaultThreads = 1

	// DefaultSeed is the default root seed for all random streams.
	DefaultSeed = 1

	// DefaultBlockSize is the default device threads per block.
	DefaultBlockSize = 128

	// DefaultHostThreads is the default bound on concurrently executing
	// device blocks.
	DefaultHostThreads = 1
)

// Options represents the options for configuring an embedding run.
type Options struct {
	// Perplexity is the target effective neighbor count for converting raw
	// distances into similarity weights. A value <= 0 disables calibration:
	// EdgeWeights (or, failing that, the raw distances) are then used as
	// similarities directly.
	Perplexity float64

	// MaxIter is the total number of optimization iterations.
	MaxIter uint64

	// NegSamples is the number of repulsive node-pair draws per positive
	// edge draw.
	NegSamples int

	// LearningRate is the initial learning rate eta0.
	LearningRate float64

	// EarlyExaggeration boosts the attractive force during the first tenth
	// of the run, which can sharpen cluster separation.
	EarlyExaggeration bool

	// Animated enables frame capture.
	Animated bool

	// Frames is the number of snapshots captured over the run when Animated
	// is set. Capped at MaxIter.
	Frames int

	// Workers is the number of logical workers drawing samples each
	// iteration.
	Workers int

	// Threads is the number of pool goroutines the workers run on.
	Threads int

	// Seed is the root seed. Worker stream k derives its own seed from
	// (Seed, k), so the set of draws is reproducible.
	Seed int64

	// EdgeWeights optionally scales (or, with Perplexity <= 0, replaces)
	// the calibrated edge weights. Must match the edge arrays' length.
	EdgeWeights []float64

	// NodeWeights optionally biases the repulsion draw distribution.
	// Length must equal the node count. Uniform when nil.
	NodeWeights []float64

	// InitialEmbedding optionally seeds the starting layout (row-major,
	// length 2*N). When nil, coordinates start as a small random scatter.
	InitialEmbedding []float64

	// BlockSize is the device threads-per-block geometry (device path only).
	BlockSize int

	// DeviceID selects the accelerator (device path only).
	DeviceID int

	// HostThreads bounds how many device blocks execute concurrently on the
	// host (device path only).
	HostThreads int

	// Logger configures structured logging. Nil disables logging.
	Logger *Logger

	// Metrics configures metrics collection. Nil disables collection.
	Metrics MetricsCollector
}

// DefaultOptions are the options applied before any option functions run.
var DefaultOptions = Options{
	Perplexity:   DefaultPerplexity,
	MaxIter:      DefaultMaxIter,
	NegSamples:   DefaultNegSamples,
	LearningRate: DefaultLearningRate,
	Frames:       DefaultFrames,
	Workers:      DefaultWorkers,
	Threads:      DefaultThreads,
	Seed:         DefaultSeed,
	BlockSize:    DefaultBlockSize,
	DeviceID:     0,
	HostThreads:  DefaultHostThreads,
}

func applyOptions(optFns []func(o *Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}
	return opts
}
