package parser

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
)

// Embedded default parser configuration. A config file pointed to by
// PARSER_CONFIG_FILE overrides it; the shape is identical.
const defaultConfigYAML = `
institutions:
  citi_cc:
    csv:
      date_column: Date
      description_column: Description
      debit_column: Debit
      credit_column: Credit
      date_layout: "01/02/2006"
    pdf:
      date_layout: "01/02"
      transaction_pattern: '^(\d{2}/\d{2})\s+(.+?)\s+(-?\$?[\d,]+\.\d{2}-?)\s*$'
      credit_suffix: "-"
      fields:
        - name: previous_balance
          label_patterns: ["Previous balance"]
          value_pattern: '(-?\$?[\d,]+\.\d{2})'
        - name: new_balance
          label_patterns: ["New balance"]
          value_pattern: '(-?\$?[\d,]+\.\d{2})'
        - name: credit_limit
          label_patterns: ["Credit limit", "Credit Limit"]
          value_pattern: '(\$?[\d,]+(?:\.\d{2})?)'
        - name: available_credit
          label_patterns: ["Available credit limit", "Available Credit"]
          value_pattern: '(\$?[\d,]+(?:\.\d{2})?)'
        - name: purchases
          label_patterns: ["Purchases"]
          value_pattern: '(\+?\$?[\d,]+\.\d{2})'
        - name: credits
          label_patterns: ["Credits"]
          value_pattern: '(-?\$?[\d,]+\.\d{2})'
        - name: cash_advances
          label_patterns: ["Cash advances"]
          value_pattern: '(\$?[\d,]+\.\d{2})'
        - name: fees
          label_patterns: ["Fees charged", "Fees"]
          value_pattern: '(\$?[\d,]+\.\d{2})'
        - name: points_earned
          label_patterns: ["Points earned", "ThankYou Points earned"]
          value_pattern: '([\d,]+)'
          transform: strip_separators
        - name: points_redeemed
          label_patterns: ["Points redeemed"]
          value_pattern: '([\d,]+)'
          transform: strip_separators
        - name: payments
          label_patterns: ["Payments"]
          value_pattern: '(-?\$?[\d,]+\.\d{2})'
        - name: min_payment_due
          label_patterns: ["Minimum payment due", "Minimum Payment Due"]
          value_pattern: '(\$?[\d,]+\.\d{2})'
        - name: payment_due_date
          label_patterns: ["Payment due date", "Payment Due Date"]
          value_pattern: '(\d{2}/\d{2}/\d{2,4})'
        - name: interest_rate
          label_patterns: ["Annual percentage rate", "Purchase APR"]
          value_pattern: '([\d.]+%)'
          transform: percent_to_decimal
        - name: interest_paid
          label_patterns: ["Interest charged", "Total interest charged"]
          value_pattern: '(\$?[\d,]+\.\d{2})'
`

// CSVConfig maps an institution's CSV export columns onto raw line fields.
// Either AmountColumn or the Debit/Credit column pair must be configured.
type CSVConfig struct {
	DateColumn        string `mapstructure:"date_column"`
	DescriptionColumn string `mapstructure:"description_column"`
	AmountColumn      string `mapstructure:"amount_column"`
	DebitColumn       string `mapstructure:"debit_column"`
	CreditColumn      string `mapstructure:"credit_column"`
	TypeColumn        string `mapstructure:"type_column"`
	DateLayout        string `mapstructure:"date_layout"`
}

// PDFFieldSpec extracts one statement-level value: the first line matching a
// label pattern is searched with the value pattern, and the optional
// transform canonicalizes the raw match.
type PDFFieldSpec struct {
	Name          string   `mapstructure:"name"`
	LabelPatterns []string `mapstructure:"label_patterns"`
	ValuePattern  string   `mapstructure:"value_pattern"`
	Transform     string   `mapstructure:"transform"`
}

// PDFConfig drives the positional/pattern heuristics for one institution's
// PDF layout.
type PDFConfig struct {
	DateLayout         string         `mapstructure:"date_layout"`
	TransactionPattern string         `mapstructure:"transaction_pattern"`
	CreditSuffix       string         `mapstructure:"credit_suffix"`
	Fields             []PDFFieldSpec `mapstructure:"fields"`
}

// InstitutionConfig holds the per-format parser configuration for one
// institution slug.
type InstitutionConfig struct {
	CSV *CSVConfig `mapstructure:"csv"`
	PDF *PDFConfig `mapstructure:"pdf"`
}

// Config is the full parser configuration tree.
type Config struct {
	Institutions map[string]InstitutionConfig `mapstructure:"institutions"`
}

// LoadConfig reads the parser configuration from the given file, or the
// embedded default configuration when path is empty.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read parser config %q: %w", path, err)
		}
	} else {
		if err := v.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
			return nil, fmt.Errorf("read embedded parser config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal parser config: %w", err)
	}
	if len(cfg.Institutions) == 0 {
		return nil, fmt.Errorf("parser config declares no institutions")
	}
	return &cfg, nil
}

// BuildRegistry constructs parsers for every institution and format in the
// configuration.
func BuildRegistry(cfg *Config) (*Registry, error) {
	reg := NewRegistry()
	for slug, inst := range cfg.Institutions {
		if inst.CSV == nil && inst.PDF == nil {
			return nil, fmt.Errorf("institution %q configures no formats", slug)
		}
		if inst.CSV != nil {
			p, err := NewCSVParser(*inst.CSV)
			if err != nil {
				return nil, fmt.Errorf("institution %q csv: %w", slug, err)
			}
			reg.Register(slug, FormatCSV, p)
		}
		if inst.PDF != nil {
			p, err := NewPDFParser(*inst.PDF)
			if err != nil {
				return nil, fmt.Errorf("institution %q pdf: %w", slug, err)
			}
			reg.Register(slug, FormatPDF, p)
		}
		reg.configs[slug] = inst
	}
	return reg, nil
}
