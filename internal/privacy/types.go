package privacy

// Category identifies the kind of PII a rule recognizes
type Category string

const (
	CategoryPhone     Category = "phone"
	CategoryAadhar    Category = "aadhar"
	CategoryPassport  Category = "passport"
	CategoryUPI       Category = "upi"
	CategoryName      Category = "name"
	CategoryEmail     Category = "email"
	CategoryAddress   Category = "address"
	CategoryIPAddress Category = "ip_address"
	CategoryDeviceID  Category = "device_id"
)

// Field names recognized in a record payload. Keys are case-sensitive.
const (
	FieldPhone     = "phone"
	FieldAadhar    = "aadhar"
	FieldPassport  = "passport"
	FieldUPI       = "upi_id"
	FieldName      = "name"
	FieldEmail     = "email"
	FieldAddress   = "address"
	FieldIPAddress = "ip_address"
	FieldDeviceID  = "device_id"
)

// RuleKind tells which detector produced a finding
type RuleKind string

const (
	// RuleStandalone marks a field that is PII on its own
	RuleStandalone RuleKind = "standalone"
	// RuleCombinatorial marks a quasi-identifier masked because enough of them co-occurred
	RuleCombinatorial RuleKind = "combinatorial"
)

// Matcher reports whether a value is a complete match for a category format
type Matcher func(value string) bool

// Masker turns a raw value into its redacted form
type Masker func(value string) string

// DetectionRule binds a recognized field to its category, matcher and masker.
// Match is nil for quasi-identifiers, which are never matched individually.
type DetectionRule struct {
	Field    string
	Category Category
	Kind     RuleKind
	Match    Matcher
	Mask     Masker
}

// Finding represents a masked field
type Finding struct {
	Field    string   `json:"field"`
	Category Category `json:"category"`
	Rule     RuleKind `json:"rule"`
}

// Policy holds the tunable constants of the rule set
type Policy struct {
	// CombinationThreshold is the number of truthy quasi-identifiers that
	// makes a record identifying.
	CombinationThreshold int `json:"combination_threshold"`
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{CombinationThreshold: 2}
}

// ProcessResult contains the result of processing one record
type ProcessResult struct {
	Record      Record    `json:"-"`
	ContainsPII bool      `json:"is_pii"`
	Findings    []Finding `json:"findings"`
}

// Categories returns the distinct categories found, in finding order
func (r ProcessResult) Categories() []Category {
	seen := make(map[Category]bool, len(r.Findings))
	categories := make([]Category, 0, len(r.Findings))
	for _, f := range r.Findings {
		if seen[f.Category] {
			continue
		}
		seen[f.Category] = true
		categories = append(categories, f.Category)
	}
	return categories
}
