package risk

import (
	"regexp"

	"tokenguard/internal/domain"
)

// flagDef is the immutable definition of one heuristic.
type flagDef struct {
	Title  string
	Points int
}

// flagDefs maps every flag code to its fixed weight and display title.
// Loaded once; never mutated at runtime.
var flagDefs = map[domain.FlagCode]flagDef{
	domain.FlagCreatorBurst:         {Title: "Creator burst", Points: 30},
	domain.FlagDuplicateNameInBatch: {Title: "Duplicate name in batch", Points: 20},
	domain.FlagCreatorSpam:          {Title: "Creator spam", Points: 35},
	domain.FlagNameReused:           {Title: "Name reused", Points: 15},
	domain.FlagSymbolTooShort:       {Title: "Symbol too short", Points: 10},
	domain.FlagSymbolRandomized:     {Title: "Symbol looks randomized", Points: 15},
	domain.FlagNameTooGeneric:       {Title: "Name too generic", Points: 15},
	domain.FlagNameSus:              {Title: "Suspicious name", Points: 20},
}

// genericKeywords is the hype vocabulary behind NAME_TOO_GENERIC. A name
// containing two or more distinct entries (case-insensitive substring match)
// is considered generic.
var genericKeywords = []string{
	"inu",
	"moon",
	"safe",
	"doge",
	"shib",
	"pepe",
	"elon",
	"baby",
	"ai",
	"pump",
	"rocket",
	"lambo",
	"gem",
	"100x",
	"1000x",
}

// brandTokens are well-known project and brand names whose presence in a
// fresh token's name or symbol is suspicious on its own.
var brandTokens = []string{
	"bitcoin",
	"btc",
	"ethereum",
	"eth",
	"binance",
	"tether",
	"usdt",
	"usdc",
	"doge",
	"shiba",
	"pepe",
	"elon",
	"trump",
	"grok",
	"openai",
	"chatgpt",
}

// randomSymbolPattern matches ticker shapes like "abcd12": a short run of
// letters followed by a short run of digits.
var randomSymbolPattern = regexp.MustCompile(`^[a-z]{2,6}[0-9]{2,4}$`)

// newFlag builds a RiskFlag from the definition table.
func newFlag(code domain.FlagCode, detail string) domain.RiskFlag {
	def := flagDefs[code]
	return domain.RiskFlag{
		Code:   code,
		Title:  def.Title,
		Detail: detail,
		Points: def.Points,
	}
}
