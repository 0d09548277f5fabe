package domain

// FlagCode identifies a risk heuristic. Codes are stable and persisted.
type FlagCode string

const (
	FlagCreatorBurst         FlagCode = "CREATOR_BURST"
	FlagDuplicateNameInBatch FlagCode = "DUPLICATE_NAME_IN_BATCH"
	FlagCreatorSpam          FlagCode = "CREATOR_SPAM"
	FlagNameReused           FlagCode = "NAME_REUSED"
	FlagSymbolTooShort       FlagCode = "SYMBOL_TOO_SHORT"
	FlagSymbolRandomized     FlagCode = "SYMBOL_RANDOMIZED"
	FlagNameTooGeneric       FlagCode = "NAME_TOO_GENERIC"
	FlagNameSus              FlagCode = "NAME_SUS"
)

// String returns the string representation of FlagCode.
func (c FlagCode) String() string {
	return string(c)
}

// RiskFlag is a single triggered heuristic with its fixed weight.
type RiskFlag struct {
	Code   FlagCode `json:"code"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Points int      `json:"points"`
}

// RiskReport is the scoring result for one token within one batch analysis.
// Corresponds to risk_reports table in PostgreSQL. Immutable once produced.
// Score is min(100, sum of triggered flag points).
type RiskReport struct {
	TokenAddress string     `json:"tokenAddress"`
	Score        int        `json:"score"`
	Flags        []RiskFlag `json:"flags"`
	Annotation   string     `json:"annotation,omitempty"` // opaque text, never read by scoring
	AnalyzedAt   int64      `json:"analyzedAt"`           // analysis timestamp (ms)
}
