package schema

// AgentCapabilities lists the optional capabilities supported by the agent.
type AgentCapabilities struct {
	// Indicates if the agent supports Server-Sent Events (SSE) for streaming updates via `message/stream`.
	Streaming bool `json:"streaming,omitempty"`
	// Indicates if the agent supports push notification configurations.
	PushNotifications bool `json:"pushNotifications,omitempty"`
	// Indicates if the agent keeps a history of task state transitions.
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentProvider contains information about the organization providing the agent.
type AgentProvider struct {
	Organization string  `json:"organization"`
	URL          *string `json:"url,omitempty"`
}

// AgentSkill describes a specific skill or capability offered by the agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard provides metadata about an AI agent, enabling discovery and capability understanding.
// Served at `/.well-known/agent.json`.
type AgentCard struct {
	// Human-readable name of the agent. (Required)
	Name string `json:"name"`
	// A brief description of the agent's purpose.
	Description string `json:"description,omitempty"`
	// The base URL endpoint for the agent's A2A JSON-RPC service. (Required)
	URL string `json:"url"`
	// Information about the agent's provider. (Optional)
	Provider *AgentProvider `json:"provider,omitempty"`
	// Version of the agent or its API. (Required)
	Version string `json:"version"`
	// URL pointing to the agent's documentation. (Optional)
	DocumentationURL *string `json:"documentationUrl,omitempty"`
	// Capabilities supported by the agent. (Required)
	Capabilities AgentCapabilities `json:"capabilities"`
	// Default input content types supported by the agent (e.g., "text", "file").
	DefaultInputModes []string `json:"defaultInputModes,omitempty"`
	// Default output content types produced by the agent.
	DefaultOutputModes []string `json:"defaultOutputModes,omitempty"`
	// List of specific skills the agent offers.
	Skills []AgentSkill `json:"skills"`
}
