package stream

// Status represents the lifecycle state of a streaming session
type Status int

const (
	Idle Status = iota
	Connecting
	Streaming
	Completed
	Errored
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Connecting:
		return "CONNECTING"
	case Streaming:
		return "STREAMING"
	case Completed:
		return "COMPLETED"
	case Errored:
		return "ERRORED"
	case Cancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status is a terminal state
func (s Status) Terminal() bool {
	return s == Completed || s == Errored || s == Cancelled
}

// Metrics is the aggregate synthesis metrics reported by the server.
// Each update replaces the previous value wholesale; fields are never
// merged individually.
type Metrics struct {
	FirstFragmentLatency float64 `json:"first_chunk_latency"` // Seconds to the first chunk
	TotalLatency         float64 `json:"total_latency"`       // Seconds of synthesis so far
	RealTimeFactor       float64 `json:"rtf"`
	TotalAudioDuration   float64 `json:"total_audio_duration"` // Seconds of audio generated
	FragmentsGenerated   int     `json:"chunks_generated"`
}

// chunkEvent is the JSON payload of an audio_chunk stream event
type chunkEvent struct {
	ChunkID    int      `json:"chunk_id"`
	AudioChunk string   `json:"audio_chunk"` // Base64-encoded WAV
	SampleRate int      `json:"sample_rate"`
	Metrics    *Metrics `json:"metrics"`
}

// errorEvent is the JSON payload of an error stream event. Servers send
// either a structured message or a bare string; both are handled.
type errorEvent struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}
