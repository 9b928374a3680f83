package service

import (
	"context"
	"strconv"

	"dealer_crm_backend/internal/finance/transport"
	"dealer_crm_backend/platform/logger"
	"dealer_crm_backend/platform/metrics"
)

// Service maps requests onto the calculator and reports every quote.
type Service struct {
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates the finance service. m may be nil.
func New(log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{log: log, metrics: m}
}

// Quote runs the detailed calculator.
func (s *Service) Quote(ctx context.Context, req transport.RTOQuoteRequest) (transport.RTOQuoteResponse, error) {
	out, err := CalculateRTO(toRTOInput(req))
	if err != nil {
		return transport.RTOQuoteResponse{}, err
	}

	s.log.WithContext(ctx).QuoteCalculated(string(out.Formula), out.TermMonths, out.MonthlyTotal, out.FactorDefaulted)
	s.metrics.ObserveQuote(string(out.Formula), out.FactorDefaulted)

	return ToQuoteResponse(out), nil
}

// Monthly runs the coarse projection.
func (s *Service) Monthly(_ context.Context, req transport.RTOMonthlyRequest) (transport.RTOMonthlyResponse, error) {
	monthly, err := CalculateRTOMonthly(MonthlyInput{
		Price:         req.Price,
		TermMonths:    req.TermMonths,
		TaxPct:        req.TaxPct,
		CountyTaxPct:  req.CountyTaxPct,
		FinanceFactor: req.FinanceFactor,
	})
	if err != nil {
		return transport.RTOMonthlyResponse{}, err
	}

	factor := DefaultFinanceFactor
	if req.FinanceFactor != nil {
		factor = *req.FinanceFactor
	}
	return transport.RTOMonthlyResponse{
		Price:         req.Price,
		TermMonths:    req.TermMonths,
		FinanceFactor: factor,
		Monthly:       roundTo2Decimals(monthly),
	}, nil
}

// Matrix builds a payment grid.
func (s *Service) Matrix(ctx context.Context, req transport.PaymentMatrixRequest) (transport.PaymentMatrixResponse, error) {
	matrix, err := BuildPaymentMatrix(MatrixInput{
		Price:         req.Price,
		Downs:         req.Downs,
		Terms:         req.Terms,
		TaxPct:        req.TaxPct,
		CountyTaxPct:  req.CountyTaxPct,
		FinanceFactor: req.FinanceFactor,
	})
	if err != nil {
		return transport.PaymentMatrixResponse{}, err
	}

	s.log.WithContext(ctx).Debug("payment_matrix_built",
		"downs", len(req.Downs),
		"terms", len(req.Terms),
	)
	return ToMatrixResponse(matrix), nil
}

// Factors returns the term factor table.
func (s *Service) Factors() transport.FactorTableResponse {
	table := FactorTable()
	factors := make([]transport.FactorResponse, 0, len(table))
	for _, f := range table {
		factors = append(factors, transport.FactorResponse{TermMonths: f.TermMonths, Factor: f.Factor})
	}
	return transport.FactorTableResponse{Factors: factors, DefaultTerm: DefaultFactorTerm}
}

// ParseFormula accepts "", "current" and "legacy".
func ParseFormula(raw string) (Formula, bool) {
	switch Formula(raw) {
	case "", FormulaCurrent:
		return FormulaCurrent, true
	case FormulaLegacy:
		return FormulaLegacy, true
	default:
		return Formula(raw), false
	}
}

func toRTOInput(req transport.RTOQuoteRequest) RTOInput {
	in := RTOInput{
		Formula:    Formula(req.Formula),
		Price:      req.Price,
		Down:       req.Down,
		TaxPct:     req.TaxPct,
		TermMonths: req.TermMonths,
	}
	if req.Fees != nil {
		in.Fees = FeeOverrides{
			TitleTag:     req.Fees.TitleTag,
			Registration: req.Fees.Registration,
			GPSFee:       req.Fees.GPSFee,
			DocFee:       req.Fees.DocFee,
		}
	}
	if req.Legacy != nil {
		in.Legacy = LegacyOptions{
			BaseMarkupUSD: req.Legacy.BaseMarkupUSD,
			MonthlyFactor: req.Legacy.MonthlyFactor,
			MinDownUSD:    req.Legacy.MinDownUSD,
			DocFee:        req.Legacy.DocFee,
			BuyoutFee:     req.Legacy.BuyoutFee,
		}
	}
	return in
}

// ToQuoteResponse rounds a breakdown to cents.
func ToQuoteResponse(out RTOOutput) transport.RTOQuoteResponse {
	return transport.RTOQuoteResponse{
		Formula:         string(out.Formula),
		TermMonths:      out.TermMonths,
		Factor:          out.Factor,
		FactorDefaulted: out.FactorDefaulted,
		AmountToFinance: roundTo2Decimals(out.AmountToFinance),
		RTOPrice:        roundTo2Decimals(out.RTOPrice),
		Down:            roundTo2Decimals(out.Down),
		MonthlyRent:     roundTo2Decimals(out.MonthlyRent),
		MonthlyLDW:      roundTo2Decimals(out.MonthlyLDW),
		MonthlyTax:      roundTo2Decimals(out.MonthlyTax),
		MonthlyTotal:    roundTo2Decimals(out.MonthlyTotal),
		TitleTag:        roundTo2Decimals(out.TitleTag),
		Registration:    roundTo2Decimals(out.Registration),
		GPSFee:          roundTo2Decimals(out.GPSFee),
		DocFee:          roundTo2Decimals(out.DocFee),
		SecurityDeposit: roundTo2Decimals(out.SecurityDeposit),
		DueAtSigning:    roundTo2Decimals(out.DueAtSigning),
		BuyoutFee:       roundTo2Decimals(out.BuyoutFee),
		TotalPaid:       roundTo2Decimals(out.TotalPaid),
	}
}

// ToMatrixResponse rounds every cell to cents.
func ToMatrixResponse(m PaymentMatrix) transport.PaymentMatrixResponse {
	rows := make([][]transport.MatrixCellResponse, 0, len(m.Rows))
	for _, row := range m.Rows {
		cells := make([]transport.MatrixCellResponse, 0, len(row))
		for _, cell := range row {
			cells = append(cells, transport.MatrixCellResponse{
				Down:       cell.Down,
				TermMonths: cell.TermMonths,
				Monthly:    roundTo2Decimals(cell.Monthly),
			})
		}
		rows = append(rows, cells)
	}
	return transport.PaymentMatrixResponse{Price: m.Price, Downs: m.Downs, Terms: m.Terms, Rows: rows}
}

// FormatMoney renders a dollar amount with two decimals.
func FormatMoney(v float64) string {
	return strconv.FormatFloat(roundTo2Decimals(v), 'f', 2, 64)
}
