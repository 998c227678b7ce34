package config

import (
	"fmt"
	"strings"
)

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath  string
	envPrefix   string
	dotEnvPath  string
	deviceFiles []string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "PLUGSIM"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithDotEnv loads environment variables from path before reading the
// environment. A missing file is ignored.
func WithDotEnv(path string) Option {
	return func(o *options) error {
		o.dotEnvPath = path
		return nil
	}
}

// WithDeviceFiles adds one CSV device per path, named after the file
func WithDeviceFiles(paths ...string) Option {
	return func(o *options) error {
		o.deviceFiles = append(o.deviceFiles, paths...)
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// ValidationError represents a configuration validation error
type ValidationError interface {
	error
	// Field returns the name of the invalid field
	Field() string
	// Value returns the invalid value
	Value() any
	// Reason returns why the value is invalid
	Reason() string
}

// FieldError is the ValidationError for a single option
type FieldError struct {
	field  string
	value  any
	reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.field, e.value, e.reason)
}

func (e *FieldError) Field() string  { return e.field }
func (e *FieldError) Value() any     { return e.value }
func (e *FieldError) Reason() string { return e.reason }

// ValidationErrors lists every invalid option found by Validate
type ValidationErrors []ValidationError

func (v ValidationErrors) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}

	return strings.Join(parts, "; ")
}
