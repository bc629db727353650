// Command examctl administers the assignment store from the shell: it replaces the
// code pools, exports datasets and completes every pending assignment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-assign-api/internal/app"
	"github.com/noah-isme/exam-assign-api/pkg/config"
	"github.com/noah-isme/exam-assign-api/pkg/logger"
)

var (
	verbose bool

	setupFlags struct {
		subjectCodes string
		shifts       string
		packetCodes  string
		totalExams   string
	}
	exportOutput string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "examctl",
	Short:         "Administer exam-checking assignments",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// setupCmd replaces the four code pools
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Replace the subject, shift, packet and exam-count pools",
	Long: `Replace all four code pools at once. Each flag takes a comma separated list;
blanks and repeats are dropped and every pool must keep at least one entry.`,
	Example: `  examctl setup --subject-codes MTK,BIO --shifts Morning,Evening --packet-codes P1,P2 --total-exams 20,30`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return runSetup(cmd.Context(), a.Pools, setupRequest(), cmd.OutOrStdout())
		})
	},
}

// exportCmd writes a dataset as CSV
var exportCmd = &cobra.Command{
	Use:       "export <teachers|assignments|records>",
	Short:     "Export a dataset as CSV",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"teachers", "assignments", "records"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return runExport(cmd.Context(), a.Exports, args[0], exportOutput, cmd.OutOrStdout())
		})
	},
}

// completeAllCmd marks every pending assignment as completed
var completeAllCmd = &cobra.Command{
	Use:   "complete-all",
	Short: "Mark every pending assignment as completed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return runCompleteAll(cmd.Context(), a.Assignments, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	setupCmd.Flags().StringVar(&setupFlags.subjectCodes, "subject-codes", "", "Comma separated subject codes")
	setupCmd.Flags().StringVar(&setupFlags.shifts, "shifts", "", "Comma separated shifts")
	setupCmd.Flags().StringVar(&setupFlags.packetCodes, "packet-codes", "", "Comma separated packet codes")
	setupCmd.Flags().StringVar(&setupFlags.totalExams, "total-exams", "", "Comma separated exam counts")
	for _, name := range []string{"subject-codes", "shifts", "packet-codes", "total-exams"} {
		_ = setupCmd.MarkFlagRequired(name)
	}

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: <type>_<date>.csv, - for stdout)")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(completeAllCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp wires the application against the configured store and loads the snapshot.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !verbose {
		cfg.Log.Level = "warn"
	}
	cfg.Log.Format = "console"

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logr.Warn("close application", zap.Error(err))
		}
	}()

	if err := a.Sync.Load(ctx); err != nil {
		return err
	}
	return fn(a)
}
