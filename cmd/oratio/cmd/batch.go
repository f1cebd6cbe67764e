package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/services/batch"
	"github.com/ternarybob/oratio/internal/services/speeches"
	"github.com/ternarybob/oratio/internal/services/translate"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect and recover asynchronous batch jobs",
}

var batchPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List batch jobs submitted but never collected",
	Args:  cobra.NoArgs,
	RunE:  runBatchPending,
}

var batchResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Wait for an interrupted batch job and apply its results",
	Long: `Picks up a job left behind by an interrupted run, waits for it to
finish and applies its results to the store. Agenda summary jobs cannot
be resumed: their speaker pseudonyms are keyed to the interrupted
process; forget the job and resubmit with "summarize agendas --batch".`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchResume,
}

var batchForgetCmd = &cobra.Command{
	Use:   "forget <job-id>",
	Short: "Drop a job's resume record without applying its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatchForget,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.AddCommand(batchPendingCmd)
	batchCmd.AddCommand(batchResumeCmd)
	batchCmd.AddCommand(batchForgetCmd)
}

func runBatchPending(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := newBatchRunner(ctx, store, true)
	if err != nil {
		return err
	}

	jobs, err := runner.PendingJobs(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No pending batch jobs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tWORKLOAD\tSUBMITTED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", job.JobID, job.Label, job.Submitted.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runBatchResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jobID := args[0]

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := newBatchRunner(ctx, store, true)
	if err != nil {
		return err
	}

	label, err := runner.Job(ctx, jobID)
	if err != nil {
		return fmt.Errorf("no resume record for job %s: %w", jobID, err)
	}

	apply, err := resumeApply(cmd, store, label)
	if err != nil {
		return err
	}

	report, err := runner.Resume(ctx, jobID, 0, apply)
	if err != nil {
		return err
	}
	fmt.Printf("Workload: %s\n", label)
	fmt.Printf("Applied:  %d\n", report.Applied)
	if report.Failed > 0 {
		fmt.Printf("Failed:   %d\n", report.Failed)
	}
	return nil
}

// resumeApply resolves the persistence hook for a recorded workload
// label.
func resumeApply(cmd *cobra.Command, store interfaces.StorageManager, label string) (batch.ApplyFunc, error) {
	switch {
	case label == "speech-summaries":
		return speeches.NewSummarizer(config.Summaries, nil, store.Speeches(), logger).ResumeApply(), nil

	case strings.HasPrefix(label, "translate-"):
		service := translate.NewService(config.Translate, nil, store, config.Profiler.Workers, logger)
		return service.ResumeApply(cmd.Context(), strings.TrimPrefix(label, "translate-"))

	case label == "agenda-summaries":
		return nil, fmt.Errorf("agenda summary jobs cannot be resumed; run \"oratio batch forget\" and resubmit with \"oratio summarize agendas --batch\"")

	default:
		return nil, fmt.Errorf("job has unknown workload %q", label)
	}
}

func runBatchForget(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	jobID := args[0]

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := newBatchRunner(ctx, store, true)
	if err != nil {
		return err
	}

	if _, err := runner.Job(ctx, jobID); err != nil {
		return fmt.Errorf("no resume record for job %s: %w", jobID, err)
	}
	if err := runner.Forget(ctx, jobID); err != nil {
		return err
	}
	fmt.Printf("Dropped resume record for job %s.\n", jobID)
	return nil
}
