package whisperx

// Config captures runtime settings for WhisperX operations. The model is
// fixed; only the device, language hint, and VAD method are configurable.
type Config struct {
	// Binary is the uvx launcher used to run WhisperX.
	Binary string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// Language is an optional ISO 639-1 hint; empty lets WhisperX detect.
	Language string
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
	// TempDir overrides where the private output directory is created.
	TempDir string
}

// WhisperX configuration constants.
const (
	Model             = "large-v3-turbo"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	Temperature       = "0.0"
	SegmentResolution = "sentence"
	OutputFormat      = "json"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "int8"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// UVXCommand is the default launcher binary.
const UVXCommand = "uvx"
