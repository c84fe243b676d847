// Package errclass normalizes arbitrary failures into structured records
// with a category, a severity, and a recovery directive. Classification is
// keyword-based and is a last resort: callers that know what failed should
// construct typed errors at the boundary instead of relying on it.
package errclass

import (
	"strings"

	"github.com/google/uuid"

	"github.com/patchpilot/governor/internal/logging"
)

// #region keywords

var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryValidation, []string{"validation", "invalid"}},
	{CategoryGeneration, []string{"generation", "ai", "model"}},
	{CategoryApplication, []string{"apply", "patch"}},
	{CategoryConfiguration, []string{"config", "setting"}},
}

// Severity keywords. Critical is matched first so a message containing both
// a transient keyword and a security keyword can never be downgraded.
var severityKeywords = []struct {
	severity Severity
	words    []string
}{
	{SeverityCritical, []string{"security", "breach"}},
	{SeverityHigh, []string{"validation failed", "syntax error"}},
	{SeverityLow, []string{"timeout", "network", "unavailable"}},
}

// #endregion keywords

// #region recovery-table

// recoveryByCategory applies when severity is below critical.
var recoveryByCategory = map[Category]Recovery{
	CategoryGeneration:    {Automatic: true, Strategy: StrategyRetryWithFallback},
	CategoryValidation:    {Automatic: false, Strategy: StrategyManualReview},
	CategoryApplication:   {Automatic: true, Strategy: StrategyRollbackAndRetry, RollbackRequired: true},
	CategoryConfiguration: {Automatic: false, Strategy: StrategyManualReload},
}

// criticalRecovery overrides everything at critical severity.
var criticalRecovery = Recovery{
	Automatic:        false,
	Strategy:         StrategyManualIntervention,
	RollbackRequired: true,
}

// #endregion recovery-table

// #region classifier

// Classifier turns failures into ErrorInfo records. It never fails itself:
// any input, including nil, yields a well-formed record.
type Classifier struct {
	logger *logging.Logger
}

// New creates a Classifier. logger may be nil.
func New(logger *logging.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify normalizes err into an ErrorInfo. detail carries any available
// caller context (operation name, stack) and may be empty.
func (c *Classifier) Classify(err error, detail string) ErrorInfo {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}
	lower := strings.ToLower(message)

	category := classifyCategory(lower)
	severity := classifySeverity(lower)
	recovery := selectRecovery(category, severity)

	info := ErrorInfo{
		Code:     "ERR-" + uuid.New().String()[:8],
		Category: category,
		Severity: severity,
		Message:  message,
		Detail:   detail,
		Recovery: recovery,
	}

	c.log(info)
	return info
}

// #endregion classifier

// #region classify-category

func classifyCategory(lower string) Category {
	for _, entry := range categoryKeywords {
		for _, kw := range entry.words {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryInfrastructure
}

// #endregion classify-category

// #region classify-severity

func classifySeverity(lower string) Severity {
	for _, entry := range severityKeywords {
		for _, kw := range entry.words {
			if strings.Contains(lower, kw) {
				return entry.severity
			}
		}
	}
	return SeverityMedium
}

// #endregion classify-severity

// #region select-recovery

func selectRecovery(category Category, severity Severity) Recovery {
	if severity == SeverityCritical {
		return criticalRecovery
	}
	if r, ok := recoveryByCategory[category]; ok {
		return r
	}
	return Recovery{Automatic: false, Strategy: StrategyManualAnalysis}
}

// #endregion select-recovery

// #region log

func (c *Classifier) log(info ErrorInfo) {
	level := logging.LevelInfo
	switch info.Severity {
	case SeverityLow:
		level = logging.LevelDebug
	case SeverityMedium:
		level = logging.LevelInfo
	case SeverityHigh:
		level = logging.LevelWarn
	case SeverityCritical:
		level = logging.LevelError
	}
	c.logger.Leveled(level, "[ERR] %s category=%s severity=%s strategy=%s: %s",
		info.Code, info.Category, info.Severity, info.Recovery.Strategy, info.Message)
}

// #endregion log
