package ollama

// Message is one turn of conversation history sent to /api/chat.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request body for /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChunkMessage is the message fragment inside one streamed record.
type ChunkMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamRecord is one newline-delimited JSON record of a streamed
// /api/chat reply. The performance counters arrive on the terminal
// record and are parsed but otherwise ignored.
type StreamRecord struct {
	Model      string        `json:"model,omitempty"`
	CreatedAt  string        `json:"created_at,omitempty"`
	Message    *ChunkMessage `json:"message,omitempty"`
	Done       bool          `json:"done"`
	DoneReason string        `json:"done_reason,omitempty"`

	TotalDuration      int64 `json:"total_duration,omitempty"`
	LoadDuration       int64 `json:"load_duration,omitempty"`
	PromptEvalCount    int64 `json:"prompt_eval_count,omitempty"`
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"`
	EvalCount          int64 `json:"eval_count,omitempty"`
	EvalDuration       int64 `json:"eval_duration,omitempty"`
}

// ModelDetails describes a local model's format and parameters.
type ModelDetails struct {
	ParentModel       string   `json:"parent_model,omitempty"`
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// Model is one entry of the /api/tags listing.
type Model struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt string       `json:"modified_at"`
	Size       uint64       `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// RunningModel is one entry of the /api/ps listing.
type RunningModel struct {
	Name          string       `json:"name"`
	Model         string       `json:"model"`
	Size          uint64       `json:"size"`
	Digest        string       `json:"digest"`
	Details       ModelDetails `json:"details"`
	ExpiresAt     string       `json:"expires_at"`
	SizeVRAM      uint64       `json:"size_vram"`
	ContextLength uint64       `json:"context_length"`
}

// ShowModelResponse is the /api/show response.
type ShowModelResponse struct {
	Parameters   string         `json:"parameters,omitempty"`
	License      string         `json:"license,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	ModifiedAt   string         `json:"modified_at"`
	Details      ModelDetails   `json:"details"`
	ModelInfo    map[string]any `json:"model_info"`
}

// StatusResponse is the shared shape of the copy/create/pull/push/
// delete responses.
type StatusResponse struct {
	Status string `json:"status"`
}

type modelsResponse struct {
	Models []Model `json:"models"`
}

type runningModelsResponse struct {
	Models []RunningModel `json:"models"`
}
