package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Language & Validation errors
// 12000-12999: Execution & Grading errors
// 13000-13999: Provider & Engine errors
// 14000-14999: Problem & Submission errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Storage errors (10300-10399)
	StorageError   ErrorCode = 10300
	ObjectNotFound ErrorCode = 10301

	// Queue errors (10400-10499)
	QueueError       ErrorCode = 10400
	PublishFailed    ErrorCode = 10401
	ConsumeFailed    ErrorCode = 10402
	WorkerPoolFull   ErrorCode = 10403
	MessageMalformed ErrorCode = 10404

	// ========== Language & Validation Errors (11000-11999) ==========

	LanguageNotSupported ErrorCode = 11000
	UnknownLanguageAlias ErrorCode = 11001
	EmptySource          ErrorCode = 11002
	ValidationFailed     ErrorCode = 11100
	MissingEntryPoint    ErrorCode = 11101
	UnbalancedBraces     ErrorCode = 11102
	BadIndentation       ErrorCode = 11103

	// ========== Execution & Grading Errors (12000-12999) ==========

	ExecutionFailed     ErrorCode = 12000
	CompilationError    ErrorCode = 12001
	RuntimeError        ErrorCode = 12002
	TimeLimitExceeded   ErrorCode = 12003
	MemoryLimitExceeded ErrorCode = 12004
	OutputLimitExceeded ErrorCode = 12005
	SandboxError        ErrorCode = 12006
	CleanupFailed       ErrorCode = 12007
	GradingFailed       ErrorCode = 12100

	// ========== Provider & Engine Errors (13000-13999) ==========

	ProviderError         ErrorCode = 13000
	ProviderUnavailable   ErrorCode = 13001
	ProviderBadResponse   ErrorCode = 13002
	ProviderPollExhausted ErrorCode = 13003
	EngineLoadFailed      ErrorCode = 13100
	EngineNotReady        ErrorCode = 13101
	ArtifactFetchFailed   ErrorCode = 13102

	// ========== Problem & Submission Errors (14000-14999) ==========

	ProblemNotFound        ErrorCode = 14000
	TestDataMissing        ErrorCode = 14001
	SubmissionNotFound     ErrorCode = 14100
	SubmissionCreateFailed ErrorCode = 14101
	CodeTooLarge           ErrorCode = 14102
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	Success: "success",

	InternalServerError: "internal server error",
	InvalidParams:       "invalid parameters",
	NotFound:            "resource not found",
	TooManyRequests:     "too many requests",
	ServiceUnavailable:  "service unavailable",
	Timeout:             "operation timed out",

	DatabaseError:  "database error",
	RecordNotFound: "record not found",

	CacheError: "cache error",

	StorageError:   "object storage error",
	ObjectNotFound: "object not found",

	QueueError:       "message queue error",
	PublishFailed:    "publish message failed",
	ConsumeFailed:    "consume message failed",
	WorkerPoolFull:   "worker pool is full",
	MessageMalformed: "message is malformed",

	LanguageNotSupported: "language not supported",
	UnknownLanguageAlias: "unknown language alias",
	EmptySource:          "source code is empty",
	ValidationFailed:     "code validation failed",
	MissingEntryPoint:    "missing entry point",
	UnbalancedBraces:     "unbalanced braces",
	BadIndentation:       "bad indentation",

	ExecutionFailed:     "execution failed",
	CompilationError:    "compilation error",
	RuntimeError:        "runtime error",
	TimeLimitExceeded:   "time limit exceeded",
	MemoryLimitExceeded: "memory limit exceeded",
	OutputLimitExceeded: "output limit exceeded",
	SandboxError:        "sandbox error",
	CleanupFailed:       "cleanup failed",
	GradingFailed:       "grading failed",

	ProviderError:         "execution provider error",
	ProviderUnavailable:   "execution provider unavailable",
	ProviderBadResponse:   "execution provider returned a bad response",
	ProviderPollExhausted: "execution provider poll attempts exhausted",
	EngineLoadFailed:      "engine load failed",
	EngineNotReady:        "engine is not ready",
	ArtifactFetchFailed:   "artifact fetch failed",

	ProblemNotFound:        "problem not found",
	TestDataMissing:        "test data missing",
	SubmissionNotFound:     "submission not found",
	SubmissionCreateFailed: "create submission failed",
	CodeTooLarge:           "code exceeds the size limit",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "unknown error"
}

// HTTPStatus maps the error code to the HTTP status the API layer responds with
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == ObjectNotFound,
		c == ProblemNotFound, c == SubmissionNotFound:
		return 404
	case c == TooManyRequests, c == WorkerPoolFull:
		return 429
	case c == CodeTooLarge:
		return 413
	case c == ServiceUnavailable, c == ProviderUnavailable:
		return 503
	case c >= 11000 && c < 12000: // Language & validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}

// IsSystemError reports whether the code belongs to the system/common range
func (c ErrorCode) IsSystemError() bool {
	return c >= 10000 && c < 11000
}

// IsValidationError reports whether the code belongs to the language/validation range
func (c ErrorCode) IsValidationError() bool {
	return c >= 11000 && c < 12000
}

// IsExecutionError reports whether the code belongs to the execution/grading range
func (c ErrorCode) IsExecutionError() bool {
	return c >= 12000 && c < 13000
}
