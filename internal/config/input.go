// Package config loads scenario files (YAML, TOML or JSON), checks them
// against the embedded scenario schema and converts them into engine input.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rpgo/retirement-cashflow/internal/domain"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.schema.json
var schemaJSON []byte

const schemaURL = "scenario.schema.json"

// ErrUnsupportedFileType is returned for scenario files with an unknown extension.
var ErrUnsupportedFileType = errors.New("unsupported scenario file type")

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// Format is a scenario file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatFor picks the encoding from a file name's extension.
func FormatFor(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filename)
}

// InputParser handles parsing of input configuration files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a scenario file, validates it against the schema and
// the scenario rules, and returns the parsed document.
func (ip *InputParser) LoadFromFile(filename string) (*ScenarioFile, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	file, err := ip.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if err := ip.ValidateConfiguration(file); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return file, nil
}

// LoadScenario loads a scenario file and converts it to engine input.
func (ip *InputParser) LoadScenario(filename string) (*domain.Scenario, *ScenarioFile, error) {
	file, err := ip.LoadFromFile(filename)
	if err != nil {
		return nil, nil, err
	}
	s, err := file.Scenario()
	if err != nil {
		return nil, nil, err
	}
	return s, file, nil
}

// Parse decodes a document in the given format. The document is first
// checked against the scenario schema, then decoded into typed structs.
func (ip *InputParser) Parse(data []byte, format Format) (*ScenarioFile, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var file ScenarioFile
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &file)
	case FormatTOML:
		err = toml.Unmarshal(data, &file)
	case FormatJSON:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", format, err)
	}
	return &file, nil
}

// decodeRaw reads the document generically and re-encodes it as JSON so the
// schema sees the same shape whatever the source format.
func decodeRaw(data []byte, format Format) ([]byte, error) {
	var doc any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		doc = m
	case FormatJSON:
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNumericOverflow, unsupported.Str)
		}
		return nil, fmt.Errorf("failed to normalize %s: %w", format, err)
	}
	return out, nil
}

func validateAgainstSchema(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// ValidateConfiguration converts the document and runs the scenario,
// comparison and grid checks.
func (ip *InputParser) ValidateConfiguration(file *ScenarioFile) error {
	s, err := file.Scenario()
	if err != nil {
		return err
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return err
	}
	if err := ip.validateComparison(s, file); err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	if _, _, err := file.Grid(); err != nil {
		return fmt.Errorf("optimization: %w", err)
	}
	return nil
}

func (ip *InputParser) validateComparison(s *domain.Scenario, file *ScenarioFile) error {
	params, ok, err := file.ConversionParams()
	if err != nil || !ok {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if params.AnnualAmount.IsZero() && !s.TotalMaxToConvert().IsPositive() {
		return domain.NewFieldError(domain.ErrInvalidInput, "comparison.annual_amount",
			"zero annual amount needs max_to_convert on at least one asset")
	}
	return nil
}

// SaveScenario writes a scenario document; the encoding follows the extension.
func (ip *InputParser) SaveScenario(file *ScenarioFile, filename string) error {
	format, err := FormatFor(filename)
	if err != nil {
		return err
	}
	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(file)
	case FormatJSON:
		data, err = json.MarshalIndent(file, "", "  ")
	case FormatTOML:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(file)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// CreateExampleScenario creates an example scenario: a married couple with
// traditional, Roth and brokerage accounts, Social Security, a pension, a
// five-year conversion window and matching compare/optimize blocks.
func (ip *InputParser) CreateExampleScenario() *ScenarioFile {
	iraCap := 300000.0
	return &ScenarioFile{
		Name:                   "Example household",
		FilingStatus:           string(domain.FilingMarriedJointly),
		State:                  "PA",
		PartBInflationRate:     0.06,
		PartDInflationRate:     0.04,
		ApplyStandardDeduction: true,
		PreRetirementIncome:    95000,
		Client: PersonFile{
			Name:          "Alex",
			BirthDate:     "1963-06-15",
			RetirementAge: 65,
			MortalityAge:  90,
		},
		Spouse: &PersonFile{
			Name:          "Jordan",
			BirthDate:     "1965-08-22",
			RetirementAge: 63,
			MortalityAge:  92,
		},
		SSReduction: &SSReductionFile{
			Enabled:     true,
			TriggerYear: 2034,
			Direction:   string(domain.SSDecrease),
			AmountType:  string(domain.SSAmountPercentage),
			Amount:      23,
		},
		RothConversion: &RothConversionFile{
			StartYear:     2026,
			DurationYears: 5,
			AnnualAmount:  60000,
		},
		Assets: []AssetFile{
			{ID: "alex_401k", Name: "Alex 401(k)", Kind: string(domain.KindQualified), Owner: string(domain.OwnerPrimary),
				CurrentBalance: 650000, MonthlyContribution: 1500, RateOfReturn: 0.06, MonthlyAmount: 2500, WithdrawalStartAge: 65, MaxToConvert: &iraCap},
			{ID: "jordan_ira", Name: "Jordan IRA", Kind: string(domain.KindQualified), Owner: string(domain.OwnerSpouse),
				CurrentBalance: 210000, RateOfReturn: 0.055, WithdrawalStartAge: 73},
			{ID: "alex_roth", Name: "Alex Roth IRA", Kind: string(domain.KindRoth), Owner: string(domain.OwnerPrimary),
				CurrentBalance: 85000, RateOfReturn: 0.065, MonthlyAmount: 500, WithdrawalStartAge: 75},
			{ID: "brokerage", Name: "Joint brokerage", Kind: string(domain.KindNonQualified), Owner: string(domain.OwnerPrimary),
				CurrentBalance: 120000, RateOfReturn: 0.05, MonthlyAmount: 800, WithdrawalStartAge: 66, WithdrawalEndAge: 80},
			{ID: "alex_ss", Name: "Alex Social Security", Kind: string(domain.KindSocialSecurity), Owner: string(domain.OwnerPrimary),
				MonthlyAmount: 3100, WithdrawalStartAge: 67},
			{ID: "jordan_ss", Name: "Jordan Social Security", Kind: string(domain.KindSocialSecurity), Owner: string(domain.OwnerSpouse),
				MonthlyAmount: 2200, WithdrawalStartAge: 67},
			{ID: "jordan_pension", Name: "Jordan pension", Kind: string(domain.KindPension), Owner: string(domain.OwnerSpouse),
				MonthlyAmount: 1400, COLA: 0.015, WithdrawalStartAge: 63},
		},
		Comparison: &ComparisonFile{
			ConversionStartYear: 2026,
			YearsToConvert:      5,
			AnnualAmount:        60000,
			PreRetirementIncome: 95000,
			RothGrowthRate:      0.06,
		},
		Optimization: &OptimizationFile{
			StartYears:    []int{2026, 2027, 2028},
			Durations:     []int{3, 5, 7},
			AnnualAmounts: []float64{40000, 60000, 80000},
		},
	}
}
