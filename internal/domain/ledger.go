package domain

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceSuffix marks the per-type balance convenience fields.
const BalanceSuffix = "_balance"

// LedgerRow is the complete cash flow for a single projection year.
// Rows are append-only and immutable once emitted.
type LedgerRow struct {
	Year         int          `json:"year"`
	PrimaryAge   int          `json:"primary_age"`
	SpouseAge    *int         `json:"spouse_age"`
	PrimaryAlive bool         `json:"primary_alive"`
	SpouseAlive  bool         `json:"spouse_alive"`
	FilingStatus FilingStatus `json:"filing_status"`
	IsSynthetic  bool         `json:"is_synthetic,omitempty"`

	// Income
	GrossIncome          decimal.Decimal            `json:"gross_income"`
	TaxFreeIncome        decimal.Decimal            `json:"tax_free_income"`
	SSIncome             decimal.Decimal            `json:"ss_income"`
	SSIncomePrimary      decimal.Decimal            `json:"ss_income_primary"`
	SSIncomeSpouse       decimal.Decimal            `json:"ss_income_spouse"`
	SSIncomePrimaryGross decimal.Decimal            `json:"ss_income_primary_gross"`
	SSIncomeSpouseGross  decimal.Decimal            `json:"ss_income_spouse_gross"`
	TaxableSS            decimal.Decimal            `json:"taxable_ss"`
	IncomeBySource       map[string]decimal.Decimal `json:"income_by_source"`

	// Balances and distributions
	AssetBalances map[string]decimal.Decimal `json:"asset_balances"`
	RMDRequired   map[string]decimal.Decimal `json:"rmd_required"`
	RMDTotal      decimal.Decimal            `json:"rmd_total"`
	Contributions decimal.Decimal            `json:"contributions"`

	// Taxes
	AGI                  decimal.Decimal `json:"agi"`
	MAGI                 decimal.Decimal `json:"magi"`
	LookbackMAGI         decimal.Decimal `json:"lookback_magi"`
	LookbackYear         int             `json:"lookback_year"`
	StandardDeduction    decimal.Decimal `json:"standard_deduction"`
	TaxableIncome        decimal.Decimal `json:"taxable_income"`
	FederalTax           decimal.Decimal `json:"federal_tax"`
	StateTax             decimal.Decimal `json:"state_tax"`
	TaxBracket           string          `json:"tax_bracket"`
	MarginalRate         decimal.Decimal `json:"marginal_rate"`
	EffectiveRate        decimal.Decimal `json:"effective_rate"`
	CumulativeFederalTax decimal.Decimal `json:"cumulative_federal_tax"`

	// Medicare
	MedicareBasePartB     decimal.Decimal `json:"medicare_base_part_b"`
	PartD                 decimal.Decimal `json:"part_d"`
	MedicareBase          decimal.Decimal `json:"medicare_base"`
	PartBSurcharge        decimal.Decimal `json:"part_b_surcharge"`
	PartDSurcharge        decimal.Decimal `json:"part_d_surcharge"`
	IRMAASurcharge        decimal.Decimal `json:"irmaa_surcharge"`
	IRMAABracketNumber    int             `json:"irmaa_bracket_number"`
	IRMAAThreshold        decimal.Decimal `json:"irmaa_threshold"`
	TotalMedicare         decimal.Decimal `json:"total_medicare"`
	EffectiveMedicare     decimal.Decimal `json:"effective_medicare"`
	HoldHarmlessProtected bool            `json:"hold_harmless_protected"`
	HoldHarmlessAmount    decimal.Decimal `json:"hold_harmless_amount"`
	RemainingSS           decimal.Decimal `json:"remaining_ss"`

	// Conversions and SS adjustments
	RothConversion    decimal.Decimal `json:"roth_conversion"`
	SSDecreaseApplied bool            `json:"ss_decrease_applied"`
	SSDecreaseAmount  decimal.Decimal `json:"ss_decrease_amount"`

	// Totals
	GrossIncomeTotal    decimal.Decimal `json:"gross_income_total"`
	AfterTaxIncome      decimal.Decimal `json:"after_tax_income"`
	AfterMedicareIncome decimal.Decimal `json:"after_medicare_income"`
	NetIncome           decimal.Decimal `json:"net_income"`
	RemainingIncome     decimal.Decimal `json:"remaining_income"`

	// TypeBalances aggregates end-of-year balances by asset type key; emitted
	// as flattened `<type>_balance` fields.
	TypeBalances map[string]decimal.Decimal `json:"-"`
}

// BalanceFields returns the `<type>_balance` convenience fields.
func (r LedgerRow) BalanceFields() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.TypeBalances))
	for k, v := range r.TypeBalances {
		out[k+BalanceSuffix] = v
	}
	return out
}

// TypeBalance returns the balance for a type key, zero when absent.
func (r LedgerRow) TypeBalance(key string) decimal.Decimal {
	if v, ok := r.TypeBalances[key]; ok {
		return v
	}
	return decimal.Zero
}

// IncomeSourceTotal sums income_by_source.
func (r LedgerRow) IncomeSourceTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.IncomeBySource {
		total = total.Add(v)
	}
	return total
}

type ledgerRowAlias LedgerRow

// MarshalJSON flattens TypeBalances into `<type>_balance` keys.
func (r LedgerRow) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(ledgerRowAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.TypeBalances) == 0 {
		return base, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for k, v := range r.BalanceFields() {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return json.Marshal(fields)
}

// UnmarshalJSON restores TypeBalances from `<type>_balance` keys.
func (r *LedgerRow) UnmarshalJSON(data []byte) error {
	var alias ledgerRowAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = LedgerRow(alias)
	for k, raw := range fields {
		if !strings.HasSuffix(k, BalanceSuffix) {
			continue
		}
		var v decimal.Decimal
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if r.TypeBalances == nil {
			r.TypeBalances = make(map[string]decimal.Decimal)
		}
		r.TypeBalances[strings.TrimSuffix(k, BalanceSuffix)] = v
	}
	return nil
}

// SortedKeys returns map keys in ascending order for stable rendering.
func SortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
