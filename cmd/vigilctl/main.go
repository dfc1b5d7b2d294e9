package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MikeSquared-Agency/vigil/internal/config"
	"github.com/MikeSquared-Agency/vigil/internal/predictor"
	"github.com/MikeSquared-Agency/vigil/internal/sqlitestore"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries settings resolved from flags and VIGIL_* env vars.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "vigilctl",
		Short: "Score relapse risk and tune weights against a local store",
		Long: `vigilctl runs the vigil risk engine against a local SQLite database.

It scores behavioral snapshots, records outcome feedback that adapts the
per-user factor weights, and reports prediction accuracy.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("db", "vigil.db", "SQLite database path")
	rootCmd.PersistentFlags().String("user", "", "User ID to operate on")
	rootCmd.PersistentFlags().String("policy", "", "YAML policy file (defaults when empty)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	for _, name := range []string{"db", "user", "policy", "json"} {
		a.v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	a.v.SetEnvPrefix("VIGIL")
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newVersionCmd(a),
		newScoreCmd(a),
		newFeedbackCmd(a),
		newAccuracyCmd(a),
		newWeightsCmd(a),
	)
	return rootCmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if a.v.GetBool("json") {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "vigilctl version %s\n", version)
			}
		},
	}
}

func (a *app) userID() (string, error) {
	user := a.v.GetString("user")
	if user == "" {
		return "", fmt.Errorf("--user (or VIGIL_USER) is required")
	}
	return user, nil
}

// openService opens the store and builds a service on it. The caller must
// invoke the returned closer.
func (a *app) openService(cmd *cobra.Command) (*predictor.Service, func(), error) {
	policy, err := config.LoadPolicy(a.v.GetString("policy"))
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlitestore.Open(a.v.GetString("db"))
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	svc := predictor.New(db, policy, predictor.Options{}, logger)
	return svc, func() { db.Close() }, nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
