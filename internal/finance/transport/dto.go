package transport

// ── Requests ──────────────────────────────────────────────────────────────────

// FeeOverridesRequest replaces the one-time fees of the current formula.
type FeeOverridesRequest struct {
	TitleTag     *float64 `json:"titleTag" validate:"omitempty,gte=0"`
	Registration *float64 `json:"registration" validate:"omitempty,gte=0"`
	GPSFee       *float64 `json:"gpsFee" validate:"omitempty,gte=0"`
	DocFee       *float64 `json:"docFee" validate:"omitempty,gte=0"`
}

// LegacyOptionsRequest parameterizes the legacy formula.
type LegacyOptionsRequest struct {
	BaseMarkupUSD *float64 `json:"baseMarkupUsd" validate:"omitempty,gte=0"`
	MonthlyFactor *float64 `json:"monthlyFactor" validate:"omitempty,gt=0"`
	MinDownUSD    *float64 `json:"minDownUsd" validate:"omitempty,gte=0"`
	DocFee        *float64 `json:"docFee" validate:"omitempty,gte=0"`
	BuyoutFee     *float64 `json:"buyoutFee" validate:"omitempty,gte=0"`
}

// RTOQuoteRequest is the request body for a full payment breakdown.
type RTOQuoteRequest struct {
	Formula    string                `json:"formula" validate:"omitempty,oneof=current legacy"`
	Price      float64               `json:"price" validate:"gt=0"`
	Down       float64               `json:"down" validate:"gte=0"`
	TaxPct     float64               `json:"taxPct" validate:"gte=0,lte=100"`
	TermMonths int                   `json:"termMonths" validate:"gt=0,lte=120"`
	Fees       *FeeOverridesRequest  `json:"fees" validate:"omitempty"`
	Legacy     *LegacyOptionsRequest `json:"legacy" validate:"omitempty"`
}

// RTOMonthlyRequest is the request body for the monthly-only projection.
type RTOMonthlyRequest struct {
	Price         float64  `json:"price" validate:"gt=0"`
	TermMonths    int      `json:"termMonths" validate:"gt=0,lte=120"`
	TaxPct        float64  `json:"taxPct" validate:"gte=0,lte=100"`
	CountyTaxPct  float64  `json:"countyTaxPct" validate:"gte=0,lte=100"`
	FinanceFactor *float64 `json:"financeFactor" validate:"omitempty,gt=0"`
}

// PaymentMatrixRequest is the request body for a down-payment by term grid.
type PaymentMatrixRequest struct {
	Price         float64   `json:"price" validate:"gt=0"`
	Downs         []float64 `json:"downs" validate:"required,min=1,max=20,dive,gte=0"`
	Terms         []int     `json:"terms" validate:"required,min=1,max=12,dive,gt=0,lte=120"`
	TaxPct        float64   `json:"taxPct" validate:"gte=0,lte=100"`
	CountyTaxPct  float64   `json:"countyTaxPct" validate:"gte=0,lte=100"`
	FinanceFactor *float64  `json:"financeFactor" validate:"omitempty,gt=0"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// RTOQuoteResponse is the payment breakdown rounded to cents.
type RTOQuoteResponse struct {
	Formula         string  `json:"formula" yaml:"formula"`
	TermMonths      int     `json:"termMonths" yaml:"termMonths"`
	Factor          float64 `json:"factor" yaml:"factor"`
	FactorDefaulted bool    `json:"factorDefaulted" yaml:"factorDefaulted"`
	AmountToFinance float64 `json:"amountToFinance" yaml:"amountToFinance"`
	RTOPrice        float64 `json:"rtoPrice" yaml:"rtoPrice"`
	Down            float64 `json:"down" yaml:"down"`
	MonthlyRent     float64 `json:"monthlyRent" yaml:"monthlyRent"`
	MonthlyLDW      float64 `json:"monthlyLdw" yaml:"monthlyLdw"`
	MonthlyTax      float64 `json:"monthlyTax" yaml:"monthlyTax"`
	MonthlyTotal    float64 `json:"monthlyTotal" yaml:"monthlyTotal"`
	TitleTag        float64 `json:"titleTag" yaml:"titleTag"`
	Registration    float64 `json:"registration" yaml:"registration"`
	GPSFee          float64 `json:"gpsFee" yaml:"gpsFee"`
	DocFee          float64 `json:"docFee" yaml:"docFee"`
	SecurityDeposit float64 `json:"securityDeposit" yaml:"securityDeposit"`
	DueAtSigning    float64 `json:"dueAtSigning" yaml:"dueAtSigning"`
	BuyoutFee       float64 `json:"buyoutFee" yaml:"buyoutFee"`
	TotalPaid       float64 `json:"totalPaid" yaml:"totalPaid"`
}

// RTOMonthlyResponse is the rounded monthly projection.
type RTOMonthlyResponse struct {
	Price         float64 `json:"price" yaml:"price"`
	TermMonths    int     `json:"termMonths" yaml:"termMonths"`
	FinanceFactor float64 `json:"financeFactor" yaml:"financeFactor"`
	Monthly       float64 `json:"monthly" yaml:"monthly"`
}

// MatrixCellResponse is a single grid entry.
type MatrixCellResponse struct {
	Down       float64 `json:"down" yaml:"down"`
	TermMonths int     `json:"termMonths" yaml:"termMonths"`
	Monthly    float64 `json:"monthly" yaml:"monthly"`
}

// PaymentMatrixResponse holds rows ordered by down payment.
type PaymentMatrixResponse struct {
	Price float64                `json:"price" yaml:"price"`
	Downs []float64              `json:"downs" yaml:"downs"`
	Terms []int                  `json:"terms" yaml:"terms"`
	Rows  [][]MatrixCellResponse `json:"rows" yaml:"rows"`
}

// FactorResponse is one row of the term factor table.
type FactorResponse struct {
	TermMonths int     `json:"termMonths" yaml:"termMonths"`
	Factor     float64 `json:"factor" yaml:"factor"`
}

// FactorTableResponse lists the factors and the fallback term.
type FactorTableResponse struct {
	Factors     []FactorResponse `json:"factors" yaml:"factors"`
	DefaultTerm int              `json:"defaultTerm" yaml:"defaultTerm"`
}
