// Package rules holds the static reference rule tables the engine consumes:
// per quote-type markup/risk rules and approval workflow definitions. Rule
// tables are immutable configuration loaded once at process start and passed
// explicitly into components, never ambient state.
package rules

import (
	"fmt"
	"math"

	"github.com/sfgfab/jobflow/pkg/models"
)

// QuoteRiskModel is the per quote-type rule set.
type QuoteRiskModel struct {
	rules map[models.QuoteType]models.QuoteTypeRule
}

// NewQuoteRiskModel builds a risk model from explicit rules.
func NewQuoteRiskModel(rules []models.QuoteTypeRule) (*QuoteRiskModel, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("quote risk model cannot be empty")
	}

	byType := make(map[models.QuoteType]models.QuoteTypeRule, len(rules))

	for _, rule := range rules {
		if _, dup := byType[rule.QuoteType]; dup {
			return nil, fmt.Errorf("duplicate quote type rule: %s", rule.QuoteType)
		}

		byType[rule.QuoteType] = rule
	}

	return &QuoteRiskModel{rules: byType}, nil
}

// DefaultQuoteRiskModel returns the standard fabrication rule set.
func DefaultQuoteRiskModel() *QuoteRiskModel {
	model, err := NewQuoteRiskModel([]models.QuoteTypeRule{
		{
			QuoteType:        models.QuoteTypeSupplyOnly,
			BaseMarkupPct:    5.0,
			RiskMarkupPct:    0.0,
			MinimumMarkupPct: 3.0,
			RiskLevel:        models.RiskLevelLow,
			Description:      "Supply only - minimal risk, quick turnaround, lowest markup",
		},
		{
			QuoteType:                   models.QuoteTypeSupplyAndInstall,
			BaseMarkupPct:               15.0,
			RiskMarkupPct:               5.0,
			MinimumMarkupPct:            12.0,
			RiskLevel:                   models.RiskLevelHigh,
			RequiresInstallationPricing: true,
			RequiresWarrantyAssessment:  true,
			RequiresMandatoryApproval:   true,
			WarrantyRisk:                true,
			CallbackRisk:                true,
			Description:                 "Supply & install - warranty callback exposure, higher markup",
		},
		{
			QuoteType:                   models.QuoteTypeLabourOnly,
			BaseMarkupPct:               25.0,
			RiskMarkupPct:               10.0,
			MinimumMarkupPct:            20.0,
			RiskLevel:                   models.RiskLevelHigh,
			AllowConversion:             true,
			RequiresInstallationPricing: true,
			RequiresWarrantyAssessment:  true,
			RequiresMandatoryApproval:   true,
			WarrantyRisk:                true,
			CallbackRisk:                true,
			Description:                 "Labour only - high risk, requires comprehensive assessment",
		},
		{
			QuoteType:                  models.QuoteTypeMaintenance,
			BaseMarkupPct:              30.0,
			RiskMarkupPct:              15.0,
			MinimumMarkupPct:           25.0,
			RiskLevel:                  models.RiskLevelMedium,
			AllowConversion:            true,
			RequiresWarrantyAssessment: true,
			CallbackRisk:               true,
			Description:                "Maintenance work - medium risk, callback potential",
		},
		{
			QuoteType:                   models.QuoteTypeEmergencyRepair,
			BaseMarkupPct:               40.0,
			RiskMarkupPct:               20.0,
			MinimumMarkupPct:            35.0,
			RiskLevel:                   models.RiskLevelCritical,
			RequiresInstallationPricing: true,
			RequiresWarrantyAssessment:  true,
			RequiresMandatoryApproval:   true,
			WarrantyRisk:                true,
			CallbackRisk:                true,
			Description:                 "Emergency repairs - critical risk, immediate response required",
		},
	})
	if err != nil {
		panic(err)
	}

	return model
}

// RuleFor looks up the rule for a quote type.
func (m *QuoteRiskModel) RuleFor(quoteType models.QuoteType) (models.QuoteTypeRule, bool) {
	rule, ok := m.rules[quoteType]

	return rule, ok
}

// QuoteTypes returns the known quote types.
func (m *QuoteRiskModel) QuoteTypes() []models.QuoteType {
	types := make([]models.QuoteType, 0, len(m.rules))
	for quoteType := range m.rules {
		types = append(types, quoteType)
	}

	return types
}

// Rules returns all rules in the model.
func (m *QuoteRiskModel) Rules() []models.QuoteTypeRule {
	rules := make([]models.QuoteTypeRule, 0, len(m.rules))
	for _, rule := range m.rules {
		rules = append(rules, rule)
	}

	return rules
}

// MarkupCalculation is the result of applying a quote type rule to a base value.
type MarkupCalculation struct {
	BaseValue        float64              `json:"base_value"`
	AppliedMarkupPct float64              `json:"applied_markup_pct"`
	MarkupAmount     float64              `json:"markup_amount"`
	FinalValue       float64              `json:"final_value"`
	Rule             models.QuoteTypeRule `json:"rule"`
}

// CalculateMarkup applies a quote type's markup to a base value, enforcing the
// minimum markup floor.
func (m *QuoteRiskModel) CalculateMarkup(quoteType models.QuoteType, baseValue float64) (*MarkupCalculation, error) {
	rule, ok := m.RuleFor(quoteType)
	if !ok {
		return nil, fmt.Errorf("no rule for quote type %s", quoteType)
	}

	if baseValue < 0 {
		return nil, fmt.Errorf("base value cannot be negative")
	}

	totalMarkup := rule.BaseMarkupPct + rule.RiskMarkupPct
	markupAmount := baseValue * totalMarkup / 100
	minimumAmount := baseValue * rule.MinimumMarkupPct / 100
	appliedAmount := math.Max(markupAmount, minimumAmount)

	return &MarkupCalculation{
		BaseValue:        baseValue,
		AppliedMarkupPct: math.Max(totalMarkup, rule.MinimumMarkupPct),
		MarkupAmount:     appliedAmount,
		FinalValue:       baseValue + appliedAmount,
		Rule:             rule,
	}, nil
}
