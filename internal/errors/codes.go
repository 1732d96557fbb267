package errors

import "strings"

// Category classifies errors by subsystem.
type Category string

const (
	CategoryCorpus   Category = "Corpus"
	CategoryEmbed    Category = "Embed"
	CategoryIndex    Category = "Index"
	CategoryConfig   Category = "Config"
	CategoryInternal Category = "Internal"
)

// Severity classifies how an error should be handled.
type Severity string

const (
	// SeverityFatal errors abort initialization; the process cannot serve.
	SeverityFatal Severity = "fatal"
	// SeverityDegraded errors are recovered locally with reduced results.
	SeverityDegraded Severity = "degraded"
	// SeverityWarning errors are logged and ignored.
	SeverityWarning Severity = "warning"
)

// Error codes. The numeric block identifies the subsystem:
// 1xx corpus, 2xx embedding, 3xx index, 4xx config, 9xx internal.
const (
	ErrCodeCorpusUnreadable = "ERR_101_CORPUS_UNREADABLE"
	ErrCodeRecordMalformed  = "ERR_102_RECORD_MALFORMED"

	ErrCodeEmbedUnavailable = "ERR_201_EMBED_UNAVAILABLE"
	ErrCodeEmbedTimeout     = "ERR_202_EMBED_TIMEOUT"
	ErrCodeEmbedDimension   = "ERR_203_EMBED_DIMENSION_MISMATCH"

	ErrCodeIndexFailure = "ERR_301_INDEX_FAILURE"

	ErrCodeConfigInvalid = "ERR_401_CONFIG_INVALID"

	ErrCodeInternal = "ERR_901_INTERNAL"
)

// categoryFromCode derives the category from the code's numeric block.
func categoryFromCode(code string) Category {
	switch {
	case strings.HasPrefix(code, "ERR_1"):
		return CategoryCorpus
	case strings.HasPrefix(code, "ERR_2"):
		return CategoryEmbed
	case strings.HasPrefix(code, "ERR_3"):
		return CategoryIndex
	case strings.HasPrefix(code, "ERR_4"):
		return CategoryConfig
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity from the code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorpusUnreadable, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeEmbedUnavailable, ErrCodeEmbedTimeout, ErrCodeEmbedDimension:
		return SeverityDegraded
	case ErrCodeRecordMalformed:
		return SeverityWarning
	default:
		return SeverityFatal
	}
}

// isRetryableCode reports whether operations failing with this code may
// succeed on retry.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedUnavailable, ErrCodeEmbedTimeout:
		return true
	default:
		return false
	}
}
