package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Workbench client errors (transport, classification)
// 12000-12999: Problem catalogue errors
// 13000-13999: Evaluation errors
// 14000-14999: Progress tracking errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Workbench Client Errors (11000-11999) ==========

	// Transport (11000-11099)
	TransportFailed   ErrorCode = 11000
	MalformedResponse ErrorCode = 11001
	UnexpectedStatus  ErrorCode = 11002

	// Classification (11100-11199)
	ClassificationFailed ErrorCode = 11100

	// Editor (11200-11299)
	EditorUnavailable ErrorCode = 11200
	FormatFailed      ErrorCode = 11201

	// ========== Problem Catalogue Errors (12000-12999) ==========

	ProblemNotFound    ErrorCode = 12000
	ProblemLoadFailed  ErrorCode = 12001
	ProblemInvalid     ErrorCode = 12002
	CatalogueEmpty     ErrorCode = 12003
	TestCaseInvalid    ErrorCode = 12100
	TestCaseInputError ErrorCode = 12101

	// ========== Evaluation Errors (13000-13999) ==========

	EvaluationFailed  ErrorCode = 13000
	CodeTooLarge      ErrorCode = 13001
	ExecutorError     ErrorCode = 13100
	TimeLimitExceeded ErrorCode = 13101

	// ========== Progress Errors (14000-14999) ==========

	ProgressLoadFailed ErrorCode = 14000
	ProgressSaveFailed ErrorCode = 14001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Transport
	TransportFailed:   "Request to evaluation server failed",
	MalformedResponse: "Malformed response from evaluation server",
	UnexpectedStatus:  "Unexpected response status from evaluation server",

	// Classification
	ClassificationFailed: "Failed to classify evaluation result",

	// Editor
	EditorUnavailable: "Editor is unavailable",
	FormatFailed:      "Failed to format document",

	// Problem
	ProblemNotFound:    "Problem not found",
	ProblemLoadFailed:  "Failed to load problem",
	ProblemInvalid:     "Invalid problem definition",
	CatalogueEmpty:     "No problems found",
	TestCaseInvalid:    "Invalid test case format",
	TestCaseInputError: "Test case input cannot be rendered",

	// Evaluation
	EvaluationFailed:  "Evaluation failed",
	CodeTooLarge:      "Code is too large",
	ExecutorError:     "Failed to execute code",
	TimeLimitExceeded: "Time limit exceeded",

	// Progress
	ProgressLoadFailed: "Failed to load progress",
	ProgressSaveFailed: "Failed to save progress",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == CodeTooLarge:
		return 413
	case c == TooManyRequests:
		return 429
	case c == ServiceUnavailable, c == CatalogueEmpty:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
