package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"
	ErrNoInput         ErrorCode = "no_input_configured"

	// Source errors
	ErrSourceUnavailable ErrorCode = "source_unavailable"
	ErrSourceRead        ErrorCode = "source_read_failed"
	ErrMalformedRow      ErrorCode = "malformed_row"

	// Data-quality errors
	ErrEmptyDeviceID    ErrorCode = "empty_device_id"
	ErrInvalidDeviceID  ErrorCode = "invalid_device_id"
	ErrNegativePower    ErrorCode = "negative_power"
	ErrInvalidPower     ErrorCode = "invalid_power"
	ErrInvalidTimestamp ErrorCode = "invalid_timestamp"
	ErrInvalidPayload   ErrorCode = "invalid_payload"
	ErrTopicMismatch    ErrorCode = "topic_mismatch"

	// Application errors
	ErrInitApp    ErrorCode = "init_app_failed"
	ErrMainLoop   ErrorCode = "main_loop_failed"
	ErrPublish    ErrorCode = "publish_failed"
	ErrRender     ErrorCode = "render_failed"
	ErrShutdown   ErrorCode = "shutdown_failed"
	ErrInitMetric ErrorCode = "init_metrics_failed"
)

// Category groups error codes by how the pipeline reacts to them
type Category int

const (
	CategoryInternal Category = iota
	CategoryConfig
	CategorySource
	CategoryDataQuality
)

func (c Category) String() string {
	switch c {
	case CategoryConfig:
		return "config"
	case CategorySource:
		return "source"
	case CategoryDataQuality:
		return "data_quality"
	default:
		return "internal"
	}
}

var categories = map[ErrorCode]Category{
	ErrInvalidConfig:     CategoryConfig,
	ErrBindFlags:         CategoryConfig,
	ErrReadConfig:        CategoryConfig,
	ErrInvalidLogLevel:   CategoryConfig,
	ErrNoInput:           CategoryConfig,
	ErrSourceUnavailable: CategorySource,
	ErrSourceRead:        CategorySource,
	ErrMalformedRow:      CategorySource,
	ErrEmptyDeviceID:     CategoryDataQuality,
	ErrInvalidDeviceID:   CategoryDataQuality,
	ErrNegativePower:     CategoryDataQuality,
	ErrInvalidPower:      CategoryDataQuality,
	ErrInvalidTimestamp:  CategoryDataQuality,
	ErrInvalidPayload:    CategoryDataQuality,
	ErrTopicMismatch:     CategoryDataQuality,
}

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrInvalidConfig:     "Invalid configuration",
	ErrBindFlags:         "Failed to bind flags",
	ErrReadConfig:        "Failed to read config file",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrNoInput:           "No input source configured",
	ErrSourceUnavailable: "Input source unavailable",
	ErrSourceRead:        "Failed to read from input source",
	ErrMalformedRow:      "Malformed input row",
	ErrEmptyDeviceID:     "Reading has an empty device id",
	ErrInvalidDeviceID:   "Device id is not a single topic level",
	ErrNegativePower:     "Reading has a negative power value",
	ErrInvalidPower:      "Reading has a non-finite power value",
	ErrInvalidTimestamp:  "Reading has an invalid timestamp",
	ErrInvalidPayload:    "Message payload could not be decoded",
	ErrTopicMismatch:     "Message topic does not match payload device",
	ErrInitApp:           "Failed to initialize application",
	ErrMainLoop:          "Error in main loop",
	ErrPublish:           "Failed to publish message",
	ErrRender:            "Failed to render dashboard",
	ErrShutdown:          "Shutdown failed",
	ErrInitMetric:        "Failed to initialize metrics",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// CategoryOf returns the category for a given error code
func CategoryOf(code ErrorCode) Category {
	if c, ok := categories[code]; ok {
		return c
	}

	return CategoryInternal
}

