package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newFeedbackCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record whether a prediction was helpful or a false alarm",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}
			rawID, _ := cmd.Flags().GetString("prediction")
			outcome, _ := cmd.Flags().GetString("outcome")

			predictionID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("invalid --prediction: %w", err)
			}

			svc, closeFn, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			w, err := svc.SubmitFeedback(cmd.Context(), user, predictionID, outcome)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.v.GetBool("json") {
				return a.printJSON(out, map[string]any{
					"user_id":       user,
					"prediction_id": predictionID,
					"outcome":       outcome,
					"weights":       w,
				})
			}
			fmt.Fprintf(out, "Recorded %s for %s\n", outcome, predictionID)
			printWeights(out, w)
			return nil
		},
	}
	cmd.Flags().String("prediction", "", "Prediction ID (required)")
	cmd.Flags().String("outcome", "", "helpful or false_alarm (required)")
	cmd.MarkFlagRequired("prediction")
	cmd.MarkFlagRequired("outcome")
	return cmd
}
