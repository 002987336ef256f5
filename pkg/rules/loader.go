package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sfgfab/jobflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// quoteRulesSchema validates quote-type rule files before they are trusted.
// Administrative tooling writes these files; the engine only reads them.
const quoteRulesSchema = `{
  "type": "object",
  "required": ["quote_type_rules"],
  "properties": {
    "quote_type_rules": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["quote_type", "base_markup_pct", "risk_markup_pct", "minimum_markup_pct", "risk_level"],
        "properties": {
          "quote_type": {
            "type": "string",
            "enum": ["supply_only", "supply_and_install", "labour_only", "maintenance", "emergency_repair"]
          },
          "base_markup_pct": {"type": "number", "minimum": 0},
          "risk_markup_pct": {"type": "number", "minimum": 0},
          "minimum_markup_pct": {"type": "number", "minimum": 0},
          "risk_level": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
          "allow_conversion": {"type": "boolean"},
          "requires_new_quote_number": {"type": "boolean"},
          "requires_installation_pricing": {"type": "boolean"},
          "requires_warranty_assessment": {"type": "boolean"},
          "requires_mandatory_approval": {"type": "boolean"},
          "warranty_risk": {"type": "boolean"},
          "callback_risk": {"type": "boolean"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

type quoteRulesFile struct {
	QuoteTypeRules []models.QuoteTypeRule `json:"quote_type_rules"`
}

// LoadQuoteRiskModel reads a quote-type rule file, validates it against the
// embedded schema, and builds a risk model from it.
func LoadQuoteRiskModel(path string) (*QuoteRiskModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote rules file: %w", err)
	}

	if err := validateAgainstSchema(quoteRulesSchema, raw); err != nil {
		return nil, fmt.Errorf("invalid quote rules file %s: %w", path, err)
	}

	var file quoteRulesFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse quote rules file: %w", err)
	}

	return NewQuoteRiskModel(file.QuoteTypeRules)
}

func validateAgainstSchema(schema string, document []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
