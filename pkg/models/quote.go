package models

// QuoteType classifies the commercial shape of a quote and selects its
// markup/risk rule.
type QuoteType string

const (
	QuoteTypeSupplyOnly       QuoteType = "supply_only"
	QuoteTypeSupplyAndInstall QuoteType = "supply_and_install"
	QuoteTypeLabourOnly       QuoteType = "labour_only"
	QuoteTypeMaintenance      QuoteType = "maintenance"
	QuoteTypeEmergencyRepair  QuoteType = "emergency_repair"
)

// RiskLevel grades the commercial risk of a quote type.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// QuoteTypeRule is per quote-type static reference data: markup floors, risk
// grading, and flags the approval gate consumes. Changed only by
// administrative action, never by the engine.
type QuoteTypeRule struct {
	QuoteType                   QuoteType `json:"quote_type"         validate:"required"`
	BaseMarkupPct               float64   `json:"base_markup_pct"    validate:"min=0"`
	RiskMarkupPct               float64   `json:"risk_markup_pct"    validate:"min=0"`
	MinimumMarkupPct            float64   `json:"minimum_markup_pct" validate:"min=0"`
	RiskLevel                   RiskLevel `json:"risk_level"         validate:"required,oneof=low medium high critical"`
	AllowConversion             bool      `json:"allow_conversion"`
	RequiresNewQuoteNumber      bool      `json:"requires_new_quote_number"`
	RequiresInstallationPricing bool      `json:"requires_installation_pricing"`
	RequiresWarrantyAssessment  bool      `json:"requires_warranty_assessment"`
	RequiresMandatoryApproval   bool      `json:"requires_mandatory_approval"`
	WarrantyRisk                bool      `json:"warranty_risk"`
	CallbackRisk                bool      `json:"callback_risk"`
	Description                 string    `json:"description,omitempty"`
}
