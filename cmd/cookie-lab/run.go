package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cookielab "github.com/malumohit/cookie-lab-pipeline"
)

var (
	startBrowser   string
	startExtension string
	startLink      int
	onlyExtension  string
	cookieExport   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full job matrix",
	Long: `run expands the matrix into jobs and executes them in order. A failed job is
logged and the batch continues; resume flags restart an interrupted batch
partway through.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := cookielab.LoadMatrix(matrixPath)
		if err != nil {
			return err
		}
		for _, p := range m.Validate() {
			logger.Warn("matrix problem", zap.String("problem", p))
		}

		jobs, err := m.Jobs(cookielab.ResumeOptions{
			StartBrowser:   startBrowser,
			StartExtension: startExtension,
			StartLink:      startLink,
			OnlyExtension:  onlyExtension,
		})
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), m, jobs)
	},
}

var singleCmd = &cobra.Command{
	Use:   "single",
	Short: "Run one job picked from the matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := cookielab.LoadMatrix(matrixPath)
		if err != nil {
			return err
		}
		jobs, err := m.Jobs(cookielab.ResumeOptions{})
		if err != nil {
			return err
		}
		job, err := pickJob(jobs, startBrowser, onlyExtension, startLink)
		if err != nil {
			return err
		}
		return runBatch(cmd.Context(), m, []cookielab.Job{job})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, singleCmd} {
		cmd.Flags().StringVar(&startBrowser, "browser", "", "browser name to start at (run) or to run (single)")
		cmd.Flags().StringVar(&startExtension, "start-extension", "", "extension name to start at")
		cmd.Flags().IntVar(&startLink, "link", 0, "1-based link index to start at (run) or to run (single)")
		cmd.Flags().StringVar(&onlyExtension, "extension", "", "restrict the batch to one extension")
		cmd.Flags().StringVar(&cookieExport, "cookie-export", "", "JSON cookie export used when the live session cannot read cookies")
	}
}

// pickJob selects the first expanded job matching the given browser,
// extension and 1-based link index; empty criteria match anything.
func pickJob(jobs []cookielab.Job, browser, extension string, link int) (cookielab.Job, error) {
	linkSeen := map[string]int{}
	for _, j := range jobs {
		key := string(j.Browser) + "\x00" + j.ExtensionName
		linkSeen[key]++
		if browser != "" && !strings.EqualFold(string(j.Browser), browser) {
			continue
		}
		if extension != "" && !strings.EqualFold(j.ExtensionName, extension) {
			continue
		}
		if link > 0 && linkSeen[key] != link {
			continue
		}
		return j, nil
	}
	return cookielab.Job{}, fmt.Errorf("no matrix job matches browser=%q extension=%q link=%d", browser, extension, link)
}

func runBatch(parent context.Context, m *cookielab.Matrix, jobs []cookielab.Job) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	outPath, err := prepareWorkbook(m.MasterWorkbook, m.OutputWorkbook)
	if err != nil {
		return err
	}
	report, err := cookielab.OpenReport(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = report.Close() }()

	batchID := uuid.NewString()
	spec := m.TargetSpec()
	prompter := cookielab.NewStdioPrompter(os.Stdin, os.Stdout)

	logger.Info("batch starting",
		zap.String("batch_id", batchID),
		zap.Int("jobs", len(jobs)),
		zap.String("workbook", outPath))

	failed := 0
	for i, job := range jobs {
		if ctx.Err() != nil {
			logger.Warn("batch interrupted", zap.String("batch_id", batchID), zap.Int("remaining", len(jobs)-i))
			return ctx.Err()
		}
		log := logger.With(
			zap.String("job_id", job.JobID),
			zap.String("browser", string(job.Browser)),
			zap.String("extension", job.ExtensionName),
			zap.String("link", job.AffiliateLink))
		log.Info("job starting", zap.Int("index", i+1), zap.Int("total", len(jobs)))

		if err := executeJob(ctx, report, spec, prompter, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			log.Error("job failed, continuing batch", zap.Error(err))
			continue
		}
		log.Info("job finished")
	}

	logger.Info("batch complete",
		zap.String("batch_id", batchID),
		zap.Int("jobs", len(jobs)),
		zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func executeJob(ctx context.Context, report *cookielab.Report, spec *cookielab.TargetSpec, prompter cookielab.Prompter, job cookielab.Job) error {
	if !job.Browser.IsChromiumFamily() {
		logger.Warn("live automation is Chromium-only, skipping job",
			zap.String("job_id", job.JobID),
			zap.String("browser", string(job.Browser)))
		return nil
	}

	session, err := cookielab.LaunchChrome(ctx, job)
	if err != nil {
		return fmt.Errorf("launch %s: %w", job.Browser, err)
	}
	defer func() { _ = session.Close() }()

	runner := &cookielab.Runner{
		Session:  session,
		Prompter: prompter,
		Report:   report,
		Spec:     spec,
	}
	if cookieExport != "" {
		runner.Fallback = &cookielab.FileSource{Path: cookieExport}
	}
	return runner.RunJob(ctx, job)
}

// prepareWorkbook resolves the output workbook path, seeding it from the
// master template when the output does not exist yet.
func prepareWorkbook(master, output string) (string, error) {
	if output == "" {
		output = master
	}
	if output == "" {
		return "", fmt.Errorf("matrix must set output_workbook or master_workbook")
	}
	if _, err := os.Stat(output); err == nil {
		return output, nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if master == "" || master == output {
		return output, nil
	}
	if _, err := os.Stat(master); err != nil {
		return output, nil
	}
	if err := copyWorkbook(master, output); err != nil {
		return "", fmt.Errorf("seed workbook from master: %w", err)
	}
	return output, nil
}

func copyWorkbook(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
