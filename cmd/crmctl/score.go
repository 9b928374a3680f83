package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"dealer_crm_backend/internal/leads/scoring"
	"dealer_crm_backend/internal/scheduler"
	"dealer_crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// scoreInput is the document accepted by the score command.
type scoreInput struct {
	Customer   scoring.Customer   `json:"customer"`
	Activities []scoring.Activity `json:"activities"`
}

func newScoreCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score a customer document",
		Long:  `Reads {"customer": {...}, "activities": [...]} from a file or stdin and prints the assessment.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}

			in, err := readScoreInput(cmd, args)
			if err != nil {
				return err
			}

			assessment := scoring.Evaluate(in.Customer, in.Activities, now)
			return render(cmd, assessment, func(w io.Writer) { writeAssessment(w, assessment) })
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Evaluate as of this RFC3339 time")
	return cmd
}

func readScoreInput(cmd *cobra.Command, args []string) (scoreInput, error) {
	r := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return scoreInput{}, err
		}
		defer f.Close()
		r = f
	}

	var in scoreInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return scoreInput{}, fmt.Errorf("decode customer document: %w", err)
	}
	return in, nil
}

func writeAssessment(w io.Writer, a scoring.Assessment) {
	fmt.Fprintf(w, "Score:         %d\n", a.Score)
	fmt.Fprintf(w, "Temperature:   %s\n", a.Temperature)
	fmt.Fprintf(w, "Priority:      %s\n", a.Priority)
	fmt.Fprintf(w, "Days in stage: %d\n", a.DaysInStage)
	fmt.Fprintf(w, "Next action:   %s\n", a.NextAction)
	fmt.Fprintln(w, "Factors:")
	fmt.Fprintf(w, "  credit application  %d\n", a.Factors.CreditApplication)
	fmt.Fprintf(w, "  activity recency    %d\n", a.Factors.ActivityRecency)
	fmt.Fprintf(w, "  stock number        %d\n", a.Factors.StockNumber)
	fmt.Fprintf(w, "  financing type      %d\n", a.Factors.FinancingType)
	fmt.Fprintf(w, "  complete contact    %d\n", a.Factors.CompleteContact)
	fmt.Fprintf(w, "  email               %d\n", a.Factors.Email)
	fmt.Fprintf(w, "  new lead            %d\n", a.Factors.NewLead)
}

func newRescoreCmd() *cobra.Command {
	var tenant string

	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Enqueue a background rescore of every lead of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			client, err := scheduler.NewClient(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			taskID, queue, err := client.EnqueueTenantRescore(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", taskID, queue)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant (organization) id")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
