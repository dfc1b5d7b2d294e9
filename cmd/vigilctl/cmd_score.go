package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

func newScoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a behavioral snapshot and record the prediction",
		Long: `Score reads a snapshot as JSON (from --snapshot, or stdin when the path
is "-") and prints the risk score, confidence and the factors that fired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userID()
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("snapshot")
			tz, _ := cmd.Flags().GetString("tz")

			snap, err := readSnapshot(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if tz != "" {
				loc, err := time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("invalid --tz: %w", err)
				}
				if snap.EvaluationTime.IsZero() {
					snap.EvaluationTime = time.Now()
				}
				snap.EvaluationTime = snap.EvaluationTime.In(loc)
			}

			svc, closeFn, err := a.openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			pred, err := svc.Predict(cmd.Context(), user, snap)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.v.GetBool("json") {
				return a.printJSON(out, pred)
			}
			fmt.Fprintf(out, "Prediction %s\n", pred.ID)
			fmt.Fprintf(out, "  Risk:       %d/100\n", pred.Result.RiskScore)
			fmt.Fprintf(out, "  Confidence: %d%% (%d data points)\n", pred.Result.Confidence, pred.Result.DataPoints)
			fmt.Fprintf(out, "  Reason:     %s\n", pred.Result.Reason)
			for _, f := range sortedFactors(pred.Result.Factors) {
				fmt.Fprintf(out, "    %-24s +%.2f\n", f, pred.Result.Factors[f])
			}
			return nil
		},
	}
	cmd.Flags().String("snapshot", "-", "Snapshot JSON file, or - for stdin")
	cmd.Flags().String("tz", "", "IANA zone for local-time factors (e.g. Europe/Berlin)")
	return cmd
}

func readSnapshot(path string, stdin io.Reader) (risk.Snapshot, error) {
	var snap risk.Snapshot
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return snap, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return snap, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}

func sortedFactors(m map[risk.Factor]float64) []risk.Factor {
	out := make([]risk.Factor, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
