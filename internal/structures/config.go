package structures

import "time"

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type StorageConfig struct {
	// ToSRoot is the root acceptance records are written to.
	ToSRoot string `yaml:"tosRoot" validate:"required"`
	// ExtraRoots are appended to the built-in search path (lowest priority).
	ExtraRoots []string `yaml:"extraRoots"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	Timeout time.Duration `yaml:"timeout"`
}

type RemoteConfig struct {
	ConnectTimeout time.Duration `yaml:"connectTimeout" validate:"required|min:1"`
	ReadTimeout    time.Duration `yaml:"readTimeout" validate:"required|min:1"`
	Offline        bool          `yaml:"offline"`
	AddToken       bool          `yaml:"addToken"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Dir   string `yaml:"dir"`
	Mode  uint32 `yaml:"mode"`
}

type WorkflowConfig struct {
	AutoAccept bool `yaml:"autoAccept"`
	AlwaysYes  bool `yaml:"alwaysYes"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName  string
	Debug    bool
	Path     string
	// Channels are the default channels consulted when none are given on
	// the command line.
	Channels []string       `yaml:"channels"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Remote   RemoteConfig   `yaml:"remote"`
	Logger   LoggerConfig   `yaml:"logger"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// EnvContext captures environment detection once at process start so the
// acceptance workflow can be exercised with injected contexts.
type EnvContext struct {
	CI          bool
	Notebook    bool
	Interactive bool
	JSONMode    bool
}

// NonInteractive reports whether a prompt cannot be shown: JSON output mode,
// a forced yes, a notebook kernel, or a non-interactive terminal.
func (e *EnvContext) NonInteractive(alwaysYes bool) bool {
	return e.JSONMode || alwaysYes || e.Notebook || !e.Interactive
}
