package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

func newWeightsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Show (or reset) a user's factor weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}
			reset, _ := cmd.Flags().GetBool("reset")

			svc, closeFn, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			var w risk.Weights
			if reset {
				w, err = svc.ResetWeights(cmd.Context(), user)
			} else {
				w, err = svc.Weights(cmd.Context(), user)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.v.GetBool("json") {
				return a.printJSON(out, map[string]any{"user_id": user, "weights": w})
			}
			if reset {
				fmt.Fprintln(out, "Weights reset to defaults")
			}
			printWeights(out, w)
			return nil
		},
	}
	cmd.Flags().Bool("reset", false, "Discard adapted weights")
	return cmd
}

func printWeights(out io.Writer, w risk.Weights) {
	for _, f := range risk.AllFactors {
		fmt.Fprintf(out, "  %-24s %6.2f\n", f, w[f])
	}
}
