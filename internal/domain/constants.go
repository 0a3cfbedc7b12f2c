package domain

const (
	DefaultMethod             = "POST"
	DefaultTimeoutMillis      = 30000
	DefaultMaxRetries         = 3
	DefaultRetryDelayMillis   = 1000
	MaxRetriesCeiling         = 10
	DefaultProbeTimeoutMillis = 5000
	CallbackTimeoutMillis     = 30000

	DefaultObservabilityListenAddress = "0.0.0.0:9090"
)

// StreamReassembledPrefix marks a streamed response that was buffered into a
// single text blob because the consuming client cannot process chunks.
const StreamReassembledPrefix = "[reassembled stream]\n"
