package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"dealer_crm_backend/internal/finance/service"
	"dealer_crm_backend/internal/finance/transport"

	"github.com/spf13/cobra"
)

func newQuoteCmd() *cobra.Command {
	var (
		req     transport.RTOQuoteRequest
		formula string
		markup  float64
		factor  float64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Calculate a rent-to-own payment breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := service.ParseFormula(formula)
			if !ok {
				return fmt.Errorf("unknown formula %q (want current or legacy)", formula)
			}
			req.Formula = string(parsed)
			if parsed == service.FormulaLegacy {
				legacy := &transport.LegacyOptionsRequest{}
				if cmd.Flags().Changed("markup") {
					legacy.BaseMarkupUSD = &markup
				}
				if cmd.Flags().Changed("monthly-factor") {
					legacy.MonthlyFactor = &factor
				}
				req.Legacy = legacy
			}

			resp, err := service.New(nil, nil).Quote(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, resp, func(w io.Writer) { writeQuote(w, resp) })
		},
	}

	cmd.Flags().Float64Var(&req.Price, "price", 0, "Vehicle price in USD")
	cmd.Flags().Float64Var(&req.Down, "down", 0, "Down payment in USD")
	cmd.Flags().Float64Var(&req.TaxPct, "tax", 0, "Sales tax percent")
	cmd.Flags().IntVar(&req.TermMonths, "term", service.DefaultFactorTerm, "Term in months")
	cmd.Flags().StringVar(&formula, "formula", string(service.FormulaCurrent), "Pricing formula (current, legacy)")
	cmd.Flags().Float64Var(&markup, "markup", 0, "Legacy base markup in USD")
	cmd.Flags().Float64Var(&factor, "monthly-factor", 0, "Legacy monthly factor")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func writeQuote(w io.Writer, resp transport.RTOQuoteResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	factor := strconv.FormatFloat(resp.Factor, 'f', -1, 64)
	if resp.FactorDefaulted {
		factor += " (default)"
	}
	fmt.Fprintf(tw, "Formula:\t%s\n", resp.Formula)
	fmt.Fprintf(tw, "Term:\t%d months\n", resp.TermMonths)
	fmt.Fprintf(tw, "Factor:\t%s\n", factor)
	fmt.Fprintf(tw, "RTO price:\t%s\n", service.FormatMoney(resp.RTOPrice))
	fmt.Fprintf(tw, "Monthly rent:\t%s\n", service.FormatMoney(resp.MonthlyRent))
	fmt.Fprintf(tw, "Monthly LDW:\t%s\n", service.FormatMoney(resp.MonthlyLDW))
	fmt.Fprintf(tw, "Monthly tax:\t%s\n", service.FormatMoney(resp.MonthlyTax))
	fmt.Fprintf(tw, "Monthly total:\t%s\n", service.FormatMoney(resp.MonthlyTotal))
	fmt.Fprintf(tw, "Due at signing:\t%s\n", service.FormatMoney(resp.DueAtSigning))
	fmt.Fprintf(tw, "Total paid:\t%s\n", service.FormatMoney(resp.TotalPaid))
}

func newMatrixCmd() *cobra.Command {
	var (
		req    transport.PaymentMatrixRequest
		factor float64
	)

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print monthly payments for down payments by terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("factor") {
				req.FinanceFactor = &factor
			}
			resp, err := service.New(nil, nil).Matrix(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render(cmd, resp, func(w io.Writer) { writeMatrix(w, resp) })
		},
	}

	cmd.Flags().Float64Var(&req.Price, "price", 0, "Vehicle price in USD")
	cmd.Flags().Float64SliceVar(&req.Downs, "downs", []float64{0}, "Down payments in USD")
	cmd.Flags().IntSliceVar(&req.Terms, "terms", []int{24, 36, 48}, "Terms in months")
	cmd.Flags().Float64Var(&req.TaxPct, "tax", 0, "Sales tax percent")
	cmd.Flags().Float64Var(&req.CountyTaxPct, "county-tax", 0, "County tax percent")
	cmd.Flags().Float64Var(&factor, "factor", service.DefaultFinanceFactor, "Finance factor")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func writeMatrix(w io.Writer, resp transport.PaymentMatrixResponse) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	header := []string{"down"}
	for _, term := range resp.Terms {
		header = append(header, fmt.Sprintf("%dmo", term))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for i, row := range resp.Rows {
		cols := []string{service.FormatMoney(resp.Downs[i])}
		for _, cell := range row {
			cols = append(cols, service.FormatMoney(cell.Monthly))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t")+"\t")
	}
}

func newFactorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "factors",
		Short: "List the term factor table",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := service.New(nil, nil).Factors()
			return render(cmd, resp, func(w io.Writer) {
				for _, f := range resp.Factors {
					fmt.Fprintf(w, "%d months\t%v\n", f.TermMonths, f.Factor)
				}
				fmt.Fprintf(w, "unknown terms use the %d-month factor\n", resp.DefaultTerm)
			})
		},
	}
}
