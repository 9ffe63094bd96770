package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/shared"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RuleKind distinguishes the two normalization rule variants
type RuleKind string

const (
	// RuleKindRegex rewrites the name using a regular expression
	RuleKindRegex RuleKind = "regex"
	// RuleKindAlias maps an exact (folded) name to a canonical one
	RuleKindAlias RuleKind = "alias"
)

// NormalizationRule rewrites supplier free-text names before catalog lookup.
// Rules are establishment-scoped and applied in ascending priority order.
type NormalizationRule struct {
	shared.EstablishmentAggregateRoot
	Kind        RuleKind `gorm:"type:varchar(10);not null"`
	Pattern     string   `gorm:"type:varchar(200);not null"`
	Replacement string   `gorm:"type:varchar(200);not null"`
	Priority    int      `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (NormalizationRule) TableName() string {
	return "normalization_rules"
}

// NewNormalizationRule creates a normalization rule, validating regex patterns eagerly.
func NewNormalizationRule(establishmentID uuid.UUID, kind RuleKind, pattern, replacement string, priority int) (*NormalizationRule, error) {
	if pattern == "" {
		return nil, shared.NewValidationError("Normalization rule pattern cannot be empty")
	}
	if kind == RuleKindRegex {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, shared.NewValidationError("Normalization rule pattern is not a valid regular expression: " + pattern)
		}
	}

	return &NormalizationRule{
		EstablishmentAggregateRoot: shared.NewEstablishmentAggregateRoot(establishmentID),
		Kind:                       kind,
		Pattern:                    pattern,
		Replacement:                replacement,
		Priority:                   priority,
	}, nil
}

// Normalizer folds supplier free-text names into their canonical lookup form:
// accents stripped, lowercased, whitespace collapsed, then the configured
// regex/alias rules applied in priority order.
type Normalizer struct {
	rules   []compiledRule
	aliases map[string]string
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// NewNormalizer compiles the given rules. Invalid regex rules are skipped;
// they are validated at creation time, so a failure here means stored data
// predates that check.
func NewNormalizer(rules []NormalizationRule) *Normalizer {
	n := &Normalizer{aliases: make(map[string]string)}

	sorted := make([]NormalizationRule, len(rules))
	copy(sorted, rules)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Priority < sorted[j-1].Priority; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	for _, rule := range sorted {
		switch rule.Kind {
		case RuleKindRegex:
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				continue
			}
			n.rules = append(n.rules, compiledRule{re: re, replacement: rule.Replacement})
		case RuleKindAlias:
			n.aliases[fold(rule.Pattern)] = fold(rule.Replacement)
		}
	}

	return n
}

// Normalize returns the canonical lookup form of a raw supplier name.
func (n *Normalizer) Normalize(raw string) string {
	name := fold(raw)

	for _, rule := range n.rules {
		name = rule.re.ReplaceAllString(name, rule.replacement)
	}
	name = collapseSpaces(name)

	if alias, ok := n.aliases[name]; ok {
		name = alias
	}

	return name
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold strips accents, lowercases and collapses whitespace.
// Supplier invoices are frequently French ("Crème fraîche 33%"), so accent
// folding matters for stable catalog identity.
func fold(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		folded = s
	}
	return collapseSpaces(strings.ToLower(folded))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
