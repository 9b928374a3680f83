package service

import (
	"math"
	"sort"

	"dealer_crm_backend/platform/apperr"
)

// Formula selects the payment model. The zero value means FormulaCurrent.
type Formula string

const (
	// FormulaCurrent uses the term-keyed factor table.
	FormulaCurrent Formula = "current"
	// FormulaLegacy reproduces flat-markup quotes issued before the factor table.
	FormulaLegacy Formula = "legacy"
)

// Current formula constants.
const (
	MonthlyLDW           = 19.99
	DefaultTitleTag      = 200.0
	DefaultRegistration  = 75.0
	DefaultGPSFee        = 350.0
	DefaultDocFee        = 195.0
	securityDepositShare = 0.5

	// DefaultFactorTerm is the term whose factor is used for unlisted terms.
	DefaultFactorTerm = 36
)

// Legacy formula defaults.
const (
	DefaultLegacyMarkupUSD     = 1400.0
	DefaultLegacyMonthlyFactor = 0.035
	DefaultLegacyMinDownUSD    = 0.0
	DefaultLegacyDocFee        = 195.0
	DefaultLegacyBuyoutFee     = 0.0
)

// DefaultFinanceFactor is the flat multiplier of the monthly-only projection.
const DefaultFinanceFactor = 2.32

var rtoFactors = map[int]float64{
	24: 1.75,
	36: 2.10,
	48: 2.45,
}

// TermFactor is one row of the factor table.
type TermFactor struct {
	TermMonths int     `json:"termMonths"`
	Factor     float64 `json:"factor"`
}

// FactorTable returns the factor table ordered by term.
func FactorTable() []TermFactor {
	table := make([]TermFactor, 0, len(rtoFactors))
	for term, factor := range rtoFactors {
		table = append(table, TermFactor{TermMonths: term, Factor: factor})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].TermMonths < table[j].TermMonths })
	return table
}

// LookupFactor returns the factor for termMonths. Unlisted terms silently
// use the 36-month factor and report defaulted=true; a 60-month quote
// therefore carries 36-month economics.
func LookupFactor(termMonths int) (factor float64, defaulted bool) {
	if f, ok := rtoFactors[termMonths]; ok {
		return f, false
	}
	return rtoFactors[DefaultFactorTerm], true
}

// FeeOverrides replaces the fixed one-time fees of the current formula.
// The monthly LDW is not overridable.
type FeeOverrides struct {
	TitleTag     *float64
	Registration *float64
	GPSFee       *float64
	DocFee       *float64
}

// LegacyOptions parameterizes the legacy formula; nil fields use defaults.
type LegacyOptions struct {
	BaseMarkupUSD *float64
	MonthlyFactor *float64
	MinDownUSD    *float64
	DocFee        *float64
	BuyoutFee     *float64
}

// RTOInput is the calculator input. Legacy is ignored unless Formula is
// FormulaLegacy; Fees is ignored under the legacy formula.
type RTOInput struct {
	Formula    Formula
	Price      float64
	Down       float64
	TaxPct     float64
	TermMonths int
	Fees       FeeOverrides
	Legacy     LegacyOptions
}

// RTOOutput is the full payment breakdown in unrounded dollars.
type RTOOutput struct {
	Formula         Formula
	TermMonths      int
	Factor          float64
	FactorDefaulted bool
	AmountToFinance float64
	RTOPrice        float64
	Down            float64
	MonthlyRent     float64
	MonthlyLDW      float64
	MonthlyTax      float64
	MonthlyTotal    float64
	TitleTag        float64
	Registration    float64
	GPSFee          float64
	DocFee          float64
	SecurityDeposit float64
	DueAtSigning    float64
	BuyoutFee       float64
	TotalPaid       float64
}

// CalculateRTO computes a quote with the selected formula. Misuse such as a
// non-positive price or term is rejected with a validation error instead of
// producing degenerate output.
func CalculateRTO(in RTOInput) (RTOOutput, error) {
	const op = "finance.CalculateRTO"
	if err := validateBase(in.Price, in.Down, in.TaxPct, in.TermMonths); err != nil {
		return RTOOutput{}, err.WithOp(op)
	}

	switch in.Formula {
	case "", FormulaCurrent:
		fees, err := resolveFees(in.Fees)
		if err != nil {
			return RTOOutput{}, err.WithOp(op)
		}
		return calculateCurrent(in, fees), nil
	case FormulaLegacy:
		opts, err := resolveLegacy(in.Legacy)
		if err != nil {
			return RTOOutput{}, err.WithOp(op)
		}
		return calculateLegacy(in, opts), nil
	default:
		return RTOOutput{}, apperr.Validationf("unknown formula %q", in.Formula).WithOp(op)
	}
}

type resolvedFees struct {
	titleTag, registration, gps, doc float64
}

type resolvedLegacy struct {
	markup, monthlyFactor, minDown, doc, buyout float64
}

func calculateCurrent(in RTOInput, fees resolvedFees) RTOOutput {
	factor, defaulted := LookupFactor(in.TermMonths)
	term := float64(in.TermMonths)

	amountToFinance := in.Price - in.Down
	totalRTOPrice := amountToFinance * factor
	baseMonthly := totalRTOPrice / term
	monthlyTax := baseMonthly * (in.TaxPct / 100)
	monthlyTotal := baseMonthly + MonthlyLDW + monthlyTax
	// ZIP-dependent in practice; half a base payment approximates it.
	securityDeposit := baseMonthly * securityDepositShare
	dueAtSigning := in.Down + fees.titleTag + fees.registration + fees.gps + fees.doc + securityDeposit

	return RTOOutput{
		Formula:         FormulaCurrent,
		TermMonths:      in.TermMonths,
		Factor:          factor,
		FactorDefaulted: defaulted,
		AmountToFinance: amountToFinance,
		RTOPrice:        totalRTOPrice,
		Down:            in.Down,
		MonthlyRent:     baseMonthly,
		MonthlyLDW:      MonthlyLDW,
		MonthlyTax:      monthlyTax,
		MonthlyTotal:    monthlyTotal,
		TitleTag:        fees.titleTag,
		Registration:    fees.registration,
		GPSFee:          fees.gps,
		DocFee:          fees.doc,
		SecurityDeposit: securityDeposit,
		DueAtSigning:    dueAtSigning,
		TotalPaid:       dueAtSigning + monthlyTotal*term,
	}
}

func calculateLegacy(in RTOInput, opts resolvedLegacy) RTOOutput {
	term := float64(in.TermMonths)

	rtoPrice := in.Price + opts.markup
	down := math.Max(in.Down, opts.minDown)
	monthlyRent := rtoPrice * opts.monthlyFactor
	monthlyTax := monthlyRent * (in.TaxPct / 100)
	monthlyTotal := monthlyRent + monthlyTax

	return RTOOutput{
		Formula:         FormulaLegacy,
		TermMonths:      in.TermMonths,
		Factor:          opts.monthlyFactor,
		AmountToFinance: rtoPrice - down,
		RTOPrice:        rtoPrice,
		Down:            down,
		MonthlyRent:     monthlyRent,
		MonthlyTax:      monthlyTax,
		MonthlyTotal:    monthlyTotal,
		DocFee:          opts.doc,
		DueAtSigning:    down + opts.doc + monthlyTotal,
		BuyoutFee:       opts.buyout,
		TotalPaid:       monthlyTotal*term + down + opts.doc,
	}
}

// MonthlyInput feeds the monthly-only projection.
type MonthlyInput struct {
	Price        float64
	TermMonths   int
	TaxPct       float64
	CountyTaxPct float64
	// FinanceFactor defaults to DefaultFinanceFactor when nil.
	FinanceFactor *float64
}

// CalculateRTOMonthly is the coarse projection used by payment grids:
// a flat factor applied to price, spread over the term, with state and
// county tax on top. It intentionally differs from CalculateRTO.
func CalculateRTOMonthly(in MonthlyInput) (float64, error) {
	const op = "finance.CalculateRTOMonthly"
	if in.Price <= 0 {
		return 0, apperr.Validation("price must be greater than zero").WithOp(op)
	}
	if in.TermMonths <= 0 {
		return 0, apperr.Validation("termMonths must be greater than zero").WithOp(op)
	}
	if in.TaxPct < 0 || in.CountyTaxPct < 0 {
		return 0, apperr.Validation("tax percentages must not be negative").WithOp(op)
	}
	factor := DefaultFinanceFactor
	if in.FinanceFactor != nil {
		if *in.FinanceFactor <= 0 {
			return 0, apperr.Validation("financeFactor must be greater than zero").WithOp(op)
		}
		factor = *in.FinanceFactor
	}

	base := in.Price * factor / float64(in.TermMonths)
	return base * (1 + (in.TaxPct+in.CountyTaxPct)/100), nil
}

// MatrixCell is one down-payment and term combination.
type MatrixCell struct {
	Down       float64
	TermMonths int
	Monthly    float64
}

// PaymentMatrix is a down-payment by term grid of monthly projections.
// Rows follow the order of downs, columns the order of terms.
type PaymentMatrix struct {
	Price float64
	Downs []float64
	Terms []int
	Rows  [][]MatrixCell
}

// MatrixInput describes a payment grid.
type MatrixInput struct {
	Price         float64
	Downs         []float64
	Terms         []int
	TaxPct        float64
	CountyTaxPct  float64
	FinanceFactor *float64
}

// BuildPaymentMatrix projects the monthly payment of (price - down) for every
// down payment and term.
func BuildPaymentMatrix(in MatrixInput) (PaymentMatrix, error) {
	const op = "finance.BuildPaymentMatrix"
	if in.Price <= 0 {
		return PaymentMatrix{}, apperr.Validation("price must be greater than zero").WithOp(op)
	}
	if len(in.Downs) == 0 || len(in.Terms) == 0 {
		return PaymentMatrix{}, apperr.Validation("at least one down payment and one term are required").WithOp(op)
	}

	rows := make([][]MatrixCell, 0, len(in.Downs))
	for _, down := range in.Downs {
		if down < 0 || down >= in.Price {
			return PaymentMatrix{}, apperr.Validationf("down payment %.2f must be between zero and the price", down).WithOp(op)
		}
		row := make([]MatrixCell, 0, len(in.Terms))
		for _, term := range in.Terms {
			monthly, err := CalculateRTOMonthly(MonthlyInput{
				Price:         in.Price - down,
				TermMonths:    term,
				TaxPct:        in.TaxPct,
				CountyTaxPct:  in.CountyTaxPct,
				FinanceFactor: in.FinanceFactor,
			})
			if err != nil {
				return PaymentMatrix{}, err
			}
			row = append(row, MatrixCell{Down: down, TermMonths: term, Monthly: monthly})
		}
		rows = append(rows, row)
	}

	return PaymentMatrix{Price: in.Price, Downs: in.Downs, Terms: in.Terms, Rows: rows}, nil
}

func validateBase(price, down, taxPct float64, termMonths int) *apperr.Error {
	switch {
	case price <= 0:
		return apperr.Validation("price must be greater than zero")
	case termMonths <= 0:
		return apperr.Validation("termMonths must be greater than zero")
	case down < 0:
		return apperr.Validation("down must not be negative")
	case down > price:
		return apperr.Validation("down must not exceed price")
	case taxPct < 0:
		return apperr.Validation("taxPct must not be negative")
	}
	return nil
}

func resolveFees(o FeeOverrides) (resolvedFees, *apperr.Error) {
	fees := resolvedFees{
		titleTag:     valueOr(o.TitleTag, DefaultTitleTag),
		registration: valueOr(o.Registration, DefaultRegistration),
		gps:          valueOr(o.GPSFee, DefaultGPSFee),
		doc:          valueOr(o.DocFee, DefaultDocFee),
	}
	if fees.titleTag < 0 || fees.registration < 0 || fees.gps < 0 || fees.doc < 0 {
		return resolvedFees{}, apperr.Validation("fees must not be negative")
	}
	return fees, nil
}

func resolveLegacy(o LegacyOptions) (resolvedLegacy, *apperr.Error) {
	opts := resolvedLegacy{
		markup:        valueOr(o.BaseMarkupUSD, DefaultLegacyMarkupUSD),
		monthlyFactor: valueOr(o.MonthlyFactor, DefaultLegacyMonthlyFactor),
		minDown:       valueOr(o.MinDownUSD, DefaultLegacyMinDownUSD),
		doc:           valueOr(o.DocFee, DefaultLegacyDocFee),
		buyout:        valueOr(o.BuyoutFee, DefaultLegacyBuyoutFee),
	}
	if opts.monthlyFactor <= 0 {
		return resolvedLegacy{}, apperr.Validation("monthlyFactor must be greater than zero")
	}
	if opts.markup < 0 || opts.minDown < 0 || opts.doc < 0 || opts.buyout < 0 {
		return resolvedLegacy{}, apperr.Validation("legacy fees must not be negative")
	}
	return opts, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// roundTo2Decimals rounds a dollar amount to cents for display.
func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}
