package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/spf13/cobra"
)

func ClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Derive the lifecycle status of a single contract",
		Example: `  locacoes classify --start 2024-01-01 --end 2025-06-01 --readjust 2025-01-01
  locacoes classify --start 2024-01-01 --end 2025-06-01 --today 2025-05-01`,
		RunE: runClassify,
	}
	cmd.Flags().String("start", "", "lease start date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "lease end date (YYYY-MM-DD)")
	cmd.Flags().String("readjust", "", "next readjustment date (YYYY-MM-DD)")
	cmd.Flags().String("today", "", "classify as of this date instead of today")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	readjust, _ := cmd.Flags().GetString("readjust")
	today, _ := cmd.Flags().GetString("today")

	now := time.Now()
	if today != "" {
		t, err := lifecycle.ParseDate("today", today)
		if err != nil {
			return err
		}
		now = t
	}

	var next *string
	if readjust != "" {
		next = &readjust
	}

	res, err := lifecycle.ClassifyISO(now, start, end, next)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Status:   %s\n", colorStatus(res.Status, res.Label()))
	fmt.Fprintf(w, "Badge:    %s\n", res.Badge())
	fmt.Fprintf(w, "Lease:    %s\n", daysPhrase(res.DaysUntilLeaseEnd, "ends"))
	if res.DaysUntilReadjustment != nil {
		fmt.Fprintf(w, "Readjust: %s\n", daysPhrase(*res.DaysUntilReadjustment, "due"))
	}
	return nil
}

func daysPhrase(days int, verb string) string {
	switch {
	case days > 0:
		return fmt.Sprintf("%s in %d days", verb, days)
	case days == 0:
		return color.New(color.FgYellow).Sprintf("%s today", verb)
	default:
		return color.New(color.FgHiBlack).Sprintf("%s %d days ago", verb, -days)
	}
}
