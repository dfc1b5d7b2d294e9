package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/vigil/internal/predictor"
)

func newAccuracyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Report the helpful share of recent feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}
			window, _ := cmd.Flags().GetInt("window")
			if window <= 0 {
				return fmt.Errorf("--window must be positive")
			}

			svc, closeFn, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			rep, err := svc.Accuracy(cmd.Context(), user, window)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.v.GetBool("json") {
				return a.printJSON(out, rep)
			}
			if rep.TotalPredictions == 0 {
				fmt.Fprintf(out, "No feedback in the last %d days\n", rep.WindowDays)
				return nil
			}
			fmt.Fprintf(out, "Accuracy: %d%% over %d days (%d helpful, %d false alarms)\n",
				rep.Accuracy, rep.WindowDays, rep.Helpful, rep.FalseAlarms)
			return nil
		},
	}
	cmd.Flags().Int("window", predictor.DefaultAccuracyWindowDays, "Trailing window in days")
	return cmd
}
