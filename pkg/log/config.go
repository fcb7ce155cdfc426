package log

import (
	"fmt"
	"strings"
)

// Config declares how a process logger should be built.
type Config struct {
	Level   string         `json:"level" yaml:"level"`
	Format  string         `json:"format" yaml:"format"`
	Outputs []OutputConfig `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// RedactFields lists field keys whose values are replaced with [REDACTED].
	RedactFields []string `json:"redactFields,omitempty" yaml:"redactFields,omitempty"`
	// SampleInitial/SampleThereafter enable per-message sampling when
	// SampleThereafter > 0.
	SampleInitial    int  `json:"sampleInitial,omitempty" yaml:"sampleInitial,omitempty"`
	SampleThereafter int  `json:"sampleThereafter,omitempty" yaml:"sampleThereafter,omitempty"`
	ShowCaller       bool `json:"showCaller,omitempty" yaml:"showCaller,omitempty"`
}

// OutputConfig selects one output: console, file or null.
type OutputConfig struct {
	Type string `json:"type" yaml:"type"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// ApplyConfig builds a Logger from cfg. A nil cfg yields an info/text console logger.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{ShowCaller: cfg.ShowCaller}
	case "json":
		formatter = &JSONFormatter{ShowCaller: cfg.ShowCaller}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	opts := []LoggerOption{WithLevel(level), WithFormatter(formatter)}
	for _, oc := range cfg.Outputs {
		switch strings.ToLower(oc.Type) {
		case "", "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if oc.Path == "" {
				return nil, fmt.Errorf("file output requires a path")
			}
			fo, err := NewFileOutput(oc.Path)
			if err != nil {
				return nil, fmt.Errorf("open log file: %w", err)
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("unknown log output %q", oc.Type)
		}
	}
	if len(cfg.RedactFields) > 0 {
		opts = append(opts, WithRedactions(cfg.RedactFields...))
	}
	if cfg.SampleThereafter > 0 {
		opts = append(opts, WithSampling(cfg.SampleInitial, cfg.SampleThereafter))
	}
	return NewLogger(opts...), nil
}
