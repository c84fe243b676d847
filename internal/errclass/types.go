package errclass

// #region category

// Category buckets a failure by which part of the system produced it.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryGeneration     Category = "generation"
	CategoryApplication    Category = "application"
	CategoryConfiguration  Category = "configuration"
	CategoryInfrastructure Category = "infrastructure"
)

// #endregion category

// #region severity

// Severity grades how dangerous a failure is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// #endregion severity

// #region recovery

// Recovery strategy names.
const (
	StrategyManualIntervention = "manual_intervention"
	StrategyRetryWithFallback  = "retry_with_fallback"
	StrategyManualReview       = "manual_review"
	StrategyRollbackAndRetry   = "rollback_and_retry"
	StrategyManualReload       = "manual_reload"
	StrategyManualAnalysis     = "manual_analysis"
)

// Recovery directs how the caller should respond to a classified failure.
type Recovery struct {
	Automatic        bool   // safe to retry without a human
	Strategy         string // one of the Strategy* constants
	RollbackRequired bool   // partially-applied changes must be reverted
}

// #endregion recovery

// #region error-info

// ErrorInfo is the normalized record every failure is reduced to.
type ErrorInfo struct {
	Code     string // generated identifier for operator diagnostics
	Category Category
	Severity Severity
	Message  string
	Detail   string // stack or caller-supplied context, may be empty
	Recovery Recovery
}

// #endregion error-info
