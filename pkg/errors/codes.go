package errors

// ErrorCode is a string identifier for a specific failure condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal       ErrorCode = "COMMON_001"
	ErrCodeValidation     ErrorCode = "COMMON_002"
	ErrCodeNotFound       ErrorCode = "COMMON_003"
	ErrCodeTimeout        ErrorCode = "COMMON_004"
	ErrCodeCancelled      ErrorCode = "COMMON_005"
	ErrCodeIO             ErrorCode = "COMMON_006"
	ErrCodeNotImplemented ErrorCode = "COMMON_007"
	ErrCodeUnknown        ErrorCode = "COMMON_000"
	CodeOK                ErrorCode = "OK"
)

// Molecule module error codes.
const (
	ErrCodeMoleculeInvalid     ErrorCode = "MOL_001"
	ErrCodeMoleculeParseFailed ErrorCode = "MOL_002"
	ErrCodeNoMacrocycle        ErrorCode = "MOL_003"
	ErrCodeRingTooSmall        ErrorCode = "MOL_004"
	ErrCodeAtomIndexInvalid    ErrorCode = "MOL_005"
)

// Conformational search error codes.  The per-attempt codes (embedding
// rejection, non-convergence, sanity rejection) classify expected failures
// that the search discards locally; the search-level codes classify fatal
// preconditions that abort a run before or during the first rounds.
const (
	ErrCodeEmbeddingRejected    ErrorCode = "CONF_001"
	ErrCodeNotConverged         ErrorCode = "CONF_002"
	ErrCodeRingIntegrity        ErrorCode = "CONF_003"
	ErrCodeEmbeddingNeverWorked ErrorCode = "CONF_004"
	ErrCodeAllNonConvergent     ErrorCode = "CONF_005"
	ErrCodeSearchAborted        ErrorCode = "CONF_006"
)

// I/O and output error codes.
const (
	ErrCodeSDFParseFailed ErrorCode = "IO_001"
	ErrCodePDBWriteFailed ErrorCode = "IO_002"
	ErrCodeStatsWriteFailed ErrorCode = "IO_003"
)
