package logger

// Logger is the subset of logging operations handed to components that
// should not depend on the package-level logger.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
}
