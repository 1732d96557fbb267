package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the bilingual expansion tables as data, decoupled from the
// matching algorithm so the vocabulary can be replaced (or shrunk to a
// synthetic table in tests) without touching the expander.
type Lexicon struct {
	// Terms maps a domain term in one language to its equivalents in the
	// other. The first listed equivalent is used for substitution.
	Terms map[string][]string `yaml:"terms"`

	// SafetyAliases are near-synonyms for protective/interlock/alarm
	// concepts, appended as standalone query variants when the query
	// matches SafetyPattern.
	SafetyAliases []string `yaml:"safety_aliases"`

	// SafetyPattern is the broad bilingual safety-keyword regex applied
	// to queries (expansion) and passage text/title (boost).
	SafetyPattern string `yaml:"safety_pattern"`

	// HazardTagPattern is the regex applied to taskType tags when
	// deciding the safety boost.
	HazardTagPattern string `yaml:"hazard_tag_pattern"`
}

// DefaultLexicon returns the built-in Korean/English technical vocabulary.
// Manuals in this corpus mix both languages inconsistently; these tables
// let one query hit passages written in either, without real translation.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Terms: map[string][]string{
			// rotating machinery
			"과속":        {"overspeed"},
			"overspeed": {"과속"},
			"조속기":       {"governor"},
			"governor":  {"조속기"},
			"수차":        {"water turbine", "turbine"},
			"turbine":   {"수차"},
			"발전기":       {"generator"},
			"generator": {"발전기"},
			"진동":        {"vibration"},
			"vibration": {"진동"},

			// switchyard / electrical
			"차단기":         {"circuit breaker", "breaker"},
			"breaker":     {"차단기"},
			"개폐기":         {"switchgear", "disconnector"},
			"switchgear":  {"개폐기"},
			"변압기":         {"transformer"},
			"transformer": {"변압기"},
			"접지":          {"earthing", "grounding"},
			"earthing":    {"접지"},
			"절연":          {"insulation"},
			"insulation":  {"절연"},

			// protection / alarms
			"인터록":       {"interlock"},
			"interlock": {"인터록"},
			"경보":        {"alarm"},
			"alarm":     {"경보"},
			"트립":        {"trip"},
			"trip":      {"트립"},
			"압력":        {"pressure"},
			"pressure":  {"압력"},

			// work vocabulary
			"점검":          {"inspection", "check"},
			"inspection":  {"점검"},
			"절차":          {"procedure"},
			"procedure":   {"절차"},
			"시험":          {"test"},
			"test":        {"시험"},
			"정비":          {"maintenance", "overhaul"},
			"maintenance": {"정비"},
			"윤활유":         {"lubricating oil", "lube oil"},
			"냉각수":         {"cooling water"},
		},
		SafetyAliases: []string{
			"안전장치",
			"보호장치",
			"인터록",
			"보호계전기",
			"경보",
			"트립",
			"safety device",
			"protective relay",
			"interlock",
			"alarm",
			"trip",
		},
		SafetyPattern:    `(?i)안전|보호|인터록|경보|경고|위험|압력|트립|safety|protect|interlock|alarm|warning|pressure|trip|hazard`,
		HazardTagPattern: `(?i)안전|위험|보호|경보|트립|safety|hazard|danger|protect|alarm|interlock|trip`,
	}
}

// LoadLexicon reads a lexicon from a YAML file. Missing fields fall back
// to the built-in defaults so a partial override stays usable.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	defaults := DefaultLexicon()
	if len(lex.Terms) == 0 {
		lex.Terms = defaults.Terms
	}
	if len(lex.SafetyAliases) == 0 {
		lex.SafetyAliases = defaults.SafetyAliases
	}
	if lex.SafetyPattern == "" {
		lex.SafetyPattern = defaults.SafetyPattern
	}
	if lex.HazardTagPattern == "" {
		lex.HazardTagPattern = defaults.HazardTagPattern
	}

	return &lex, nil
}
