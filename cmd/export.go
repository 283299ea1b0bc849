package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/school-reports/internal/config"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/kozaktomas/school-reports/internal/database/postgres"
	"github.com/kozaktomas/school-reports/internal/export"
	"github.com/kozaktomas/school-reports/internal/render"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render reports to PDF or HTML files",
	Long: `Render one report, or every report of an owner, through the same pipeline
the web preview uses and write the result to disk.

Examples:
  school-reports export --report 3f1c... --out ./pdf
  school-reports export --report 3f1c... --html
  school-reports export --all --owner 9a2b... --engine chromium`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("report", "", "Report ID to export")
	exportCmd.Flags().String("owner", "", "Owner user ID (required with --all)")
	exportCmd.Flags().Bool("all", false, "Export every report of --owner")
	exportCmd.Flags().String("out", ".", "Output directory")
	exportCmd.Flags().String("engine", "", "Export engine (native, chromium); defaults to EXPORT_ENGINE")
	exportCmd.Flags().Bool("html", false, "Write the print HTML instead of a PDF")
	exportCmd.Flags().Int("concurrency", 2, "Parallel exports with --all")
}

type exportJob struct {
	svc     *services
	outDir  string
	engine  string
	html    bool
	mu      sync.Mutex
	claimed map[string]int
}

func runExport(cmd *cobra.Command, args []string) error {
	reportID := mustGetString(cmd, "report")
	owner := mustGetString(cmd, "owner")
	all := mustGetBool(cmd, "all")

	switch {
	case all && owner == "":
		return errors.New("--all requires --owner")
	case all && reportID != "":
		return errors.New("--report and --all are mutually exclusive")
	case !all && reportID == "":
		return errors.New("either --report or --all is required")
	}

	outDir := mustGetString(cmd, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	cfg := config.Load()
	pool, err := connectDatabase(cfg)
	if err != nil {
		return err
	}
	engine := mustGetString(cmd, "engine")
	svc, err := buildServices(cfg, pool, engine)
	if err != nil {
		pool.Close()
		return err
	}
	defer svc.Close()

	job := &exportJob{
		svc:     svc,
		outDir:  outDir,
		engine:  engine,
		html:    mustGetBool(cmd, "html"),
		claimed: make(map[string]int),
	}

	ctx := context.Background()
	if all {
		return job.exportAll(ctx, owner, mustGetInt(cmd, "concurrency"))
	}

	report, err := findReport(ctx, pool, owner, reportID)
	if err != nil {
		return err
	}
	path, err := job.write(ctx, report)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %q to %s\n", report.Title, path)
	return nil
}

// findReport loads a report scoped to owner, or by id alone when no owner is given.
func findReport(ctx context.Context, pool *postgres.Pool, owner, id string) (*database.Report, error) {
	var (
		report *database.Report
		err    error
	)
	if owner == "" {
		report, err = postgres.NewReportRepository(pool).FindReport(ctx, id)
	} else {
		var reader database.ReportReader
		if reader, err = database.GetReportReader(ctx); err != nil {
			return nil, err
		}
		report, err = reader.GetReport(ctx, owner, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("report %s not found", id)
	}
	return report, nil
}

func (j *exportJob) exportAll(ctx context.Context, owner string, concurrency int) error {
	reader, err := database.GetReportReader(ctx)
	if err != nil {
		return err
	}
	reports, err := reader.ListAllReports(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	if len(reports) == 0 {
		fmt.Println("No reports found for this owner.")
		return nil
	}

	fmt.Printf("Found %d reports to export\n\n", len(reports))
	startTime := time.Now()

	bar := progressbar.NewOptions(len(reports),
		progressbar.OptionSetDescription("Exporting reports"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("reports"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var errorCount int64
	var failures sync.Map
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, concurrency))
	for i := range reports {
		report := &reports[i]
		g.Go(func() error {
			if _, err := j.write(gctx, report); err != nil {
				atomic.AddInt64(&errorCount, 1)
				failures.Store(report.ID, err)
			}
			bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	fmt.Println()

	exported := len(reports) - int(errorCount)
	fmt.Printf("\nExport complete!\n")
	fmt.Printf("  Reports exported: %d\n", exported)
	fmt.Printf("  Output directory: %s\n", j.outDir)
	fmt.Printf("  Duration:         %s\n", time.Since(startTime).Round(time.Millisecond))
	if errorCount > 0 {
		fmt.Printf("  Errors:           %d\n", errorCount)
		failures.Range(func(id, err any) bool {
			fmt.Printf("    %s: %v\n", id, err)
			return true
		})
		return fmt.Errorf("%d of %d reports failed to export", errorCount, len(reports))
	}
	return nil
}

// write prepares one report and stores it in the output directory.
func (j *exportJob) write(ctx context.Context, report *database.Report) (string, error) {
	doc, err := j.svc.pipeline.Prepare(ctx, report)
	if err != nil {
		return "", fmt.Errorf("preparing report: %w", err)
	}

	var data []byte
	name := export.Filename(report.Title)
	if j.html {
		page, err := j.svc.renderer.HTML(doc, render.ModePrint)
		if err != nil {
			return "", fmt.Errorf("rendering report: %w", err)
		}
		data = []byte(page)
		name = strings.TrimSuffix(name, ".pdf") + ".html"
	} else {
		data, err = j.svc.exporter.Export(ctx, report.ID, doc, j.engine)
		if err != nil {
			return "", fmt.Errorf("exporting report: %w", err)
		}
	}

	path := filepath.Join(j.outDir, j.claim(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// claim reserves name within this run, numbering repeats as "name (2).pdf".
func (j *exportJob) claim(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return uniqueName(j.claimed, name)
}

func uniqueName(claimed map[string]int, name string) string {
	claimed[name]++
	n := claimed[name]
	if n == 1 {
		return name
	}
	ext := filepath.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	if _, taken := claimed[candidate]; taken {
		return uniqueName(claimed, name)
	}
	claimed[candidate] = 1
	return candidate
}
