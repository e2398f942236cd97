package ffaudio

import (
	"fmt"
	"strings"

	"github.com/tphakala/ffaudio/internal/errors"
)

// Kind identifies the class of an extraction failure.
type Kind int

const (
	KindUnknown Kind = iota
	ExecutableNotFound
	InputNotFound
	PermissionDenied
	UnsupportedFormat
	TimedOut
	EngineFailure
	InvalidRequest
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	ExecutableNotFound: "executable-not-found",
	InputNotFound:      "input-not-found",
	PermissionDenied:   "permission-denied",
	UnsupportedFormat:  "unsupported-format",
	TimedOut:           "timed-out",
	EngineFailure:      "engine-failure",
	InvalidRequest:     "invalid-request",
}

// String returns the kebab-case name used in logs and metric labels.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// category maps a kind to the shared error category
func (k Kind) category() errors.ErrorCategory {
	switch k {
	case ExecutableNotFound:
		return errors.CategoryCommandExecution
	case InputNotFound:
		return errors.CategoryNotFound
	case PermissionDenied:
		return errors.CategoryFileIO
	case UnsupportedFormat:
		return errors.CategoryFileParsing
	case TimedOut:
		return errors.CategoryTimeout
	case EngineFailure:
		return errors.CategoryAudio
	case InvalidRequest:
		return errors.CategoryValidation
	default:
		return errors.CategoryGeneric
	}
}

// ExtractError is the single error type returned for failed extractions.
// Fields other than Kind and Message are filled in when known.
type ExtractError struct {
	Kind        Kind
	Message     string
	Path        string
	ExitCode    int
	HasExitCode bool
	Stderr      string
	Err         error
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrExecutableNotFound = &ExtractError{Kind: ExecutableNotFound}
	ErrInputNotFound      = &ExtractError{Kind: InputNotFound}
	ErrPermissionDenied   = &ExtractError{Kind: PermissionDenied}
	ErrUnsupportedFormat  = &ExtractError{Kind: UnsupportedFormat}
	ErrTimedOut           = &ExtractError{Kind: TimedOut}
	ErrEngineFailure      = &ExtractError{Kind: EngineFailure}
	ErrInvalidRequest     = &ExtractError{Kind: InvalidRequest}
)

func (e *ExtractError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *ExtractError of the same Kind.
func (e *ExtractError) Is(target error) bool {
	t, ok := target.(*ExtractError)
	return ok && t.Kind == e.Kind
}

// ErrorCategory implements errors.CategorizedError.
func (e *ExtractError) ErrorCategory() errors.ErrorCategory {
	return e.Kind.category()
}

// KindOf returns the Kind of the first *ExtractError in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var extractErr *ExtractError
	if errors.As(err, &extractErr) {
		return extractErr.Kind
	}
	return KindUnknown
}

// Diagnostic substrings matched against lowercased stderr, in precedence order.
const (
	patternNoSuchFile  = "no such file or directory"
	patternPermission  = "permission denied"
	patternInvalidData = "invalid data found when processing input"
)

// Classify maps the stderr text and exit code of a failed FFmpeg run to an
// ExtractError. Matching is case-insensitive and the first match wins:
//
//	"no such file or directory"                → InputNotFound
//	"permission denied"                        → PermissionDenied
//	"invalid data found when processing input" → UnsupportedFormat
//	anything else                              → EngineFailure
//
// Monitoring greps for these categories, so the order and substrings must not
// change.
func Classify(stderr, path string, exitCode int) *ExtractError {
	lower := strings.ToLower(stderr)

	e := &ExtractError{
		Path:        path,
		ExitCode:    exitCode,
		HasExitCode: true,
		Stderr:      stderr,
	}

	switch {
	case strings.Contains(lower, patternNoSuchFile):
		e.Kind = InputNotFound
		e.Message = "audio file not found: " + path
	case strings.Contains(lower, patternPermission):
		e.Kind = PermissionDenied
		e.Message = "permission denied accessing file: " + path
	case strings.Contains(lower, patternInvalidData):
		e.Kind = UnsupportedFormat
		e.Message = "unsupported or invalid audio format: " + path
	default:
		e.Kind = EngineFailure
		e.Message = fmt.Sprintf("ffmpeg process failed with return code %d", exitCode)
	}

	return e
}

// invalidRequest builds the validation failure returned before any spawn
func invalidRequest(path, format string, args ...any) *ExtractError {
	return &ExtractError{
		Kind:    InvalidRequest,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// timedOut builds the failure for a read that exceeded its deadline
func timedOut(path string, cause error) *ExtractError {
	return &ExtractError{
		Kind:    TimedOut,
		Message: "ffmpeg timed out while processing " + path,
		Path:    path,
		Err:     cause,
	}
}

// executableNotFound builds the failure for a missing engine binary
func executableNotFound(executable string, cause error) *ExtractError {
	return &ExtractError{
		Kind:    ExecutableNotFound,
		Message: fmt.Sprintf("ffmpeg not found at %q, ensure it is installed and available in PATH", executable),
		Err:     cause,
	}
}

// enhance wraps e in the shared enhanced error with component and context.
func enhance(e *ExtractError, operation, invocationID string) error {
	b := errors.New(e).
		Component(componentName).
		Category(e.Kind.category()).
		Context("operation", operation).
		Context("error_kind", e.Kind.String())
	if invocationID != "" {
		b = b.Context("invocation_id", invocationID)
	}
	if e.Path != "" {
		b = b.FileContext(e.Path)
	}
	if e.HasExitCode {
		b = b.Context("exit_code", e.ExitCode)
	}
	return b.Build()
}
