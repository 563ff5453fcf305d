package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cv-screener/internal/app"
	"cv-screener/internal/cv"
	"cv-screener/internal/export"
	"cv-screener/internal/screening"
)

const promptDone = "Done"

type matchOptions struct {
	job         string
	jobText     string
	view        string
	out         string
	prefix      string
	interactive bool
	sheet       bool
}

var matchOpts matchOptions

var matchCmd = &cobra.Command{
	Use:   "match [files...]",
	Short: "Score candidate documents against a job description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args, matchOpts)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchOpts.job, "job", "", "job description file (txt, pdf, docx, html) or http(s) URL")
	matchCmd.Flags().StringVar(&matchOpts.jobText, "job-text", "", "job description text")
	matchCmd.Flags().StringVar(&matchOpts.view, "view", string(screening.ViewAll), "which results to show and export: all or shortlisted")
	matchCmd.Flags().StringVarP(&matchOpts.out, "out", "o", "", "directory to write the CSV export to")
	matchCmd.Flags().StringVar(&matchOpts.prefix, "prefix", "", "CSV file name prefix (default from config)")
	matchCmd.Flags().BoolVarP(&matchOpts.interactive, "interactive", "i", false, "toggle shortlist entries before exporting")
	matchCmd.Flags().BoolVar(&matchOpts.sheet, "sheet", false, "also append the results to the configured spreadsheet")

	matchCmd.MarkFlagsMutuallyExclusive("job", "job-text")
	matchCmd.MarkFlagsOneRequired("job", "job-text")
}

func runMatch(ctx context.Context, stdout, stderr io.Writer, paths []string, opts matchOptions) error {
	mode, err := screening.ParseViewMode(opts.view)
	if err != nil {
		return err
	}

	files, err := readSources(paths)
	if err != nil {
		return err
	}

	candidates, jobs := app.Parsers(cfg, logger)

	jobText := cv.Normalize(opts.jobText)
	if opts.job != "" {
		jobText, err = app.JobLoader(cfg, jobs, logger).Load(ctx, opts.job)
		if err != nil {
			return fmt.Errorf("loading job description: %w", err)
		}
	}

	session := screening.NewSession(candidates,
		screening.WithLogger(logger.Named("session")),
		screening.WithStatusFunc(func(s screening.Status) {
			fmt.Fprintln(stderr, s)
		}),
	)
	session.SetJobDescription(jobText)

	report, err := session.Process(ctx, files)
	if err != nil {
		return err
	}
	for _, skip := range report.Skips {
		fmt.Fprintf(stderr, "skipped %s: %s\n", skip.File, skip.Reason)
	}
	if report.NoValidResumes() {
		return nil
	}

	renderTable(stdout, session.View(screening.ViewAll))

	if opts.interactive {
		if err := shortlistInteractively(session); err != nil {
			return err
		}
		renderTable(stdout, session.View(mode))
	}

	rows := session.View(mode)

	if opts.out != "" {
		prefix := opts.prefix
		if prefix == "" {
			prefix = cfg.Export.FilePrefix
		}
		path, err := writeCSV(opts.out, prefix, mode, rows)
		if errors.Is(err, export.ErrNothingToExport) {
			fmt.Fprintln(stderr, "Nothing to export")
		} else if err != nil {
			return err
		} else {
			fmt.Fprintf(stderr, "wrote %s\n", path)
		}
	}

	if opts.sheet {
		if err := exportToSheet(ctx, rows); err != nil {
			return err
		}
	}

	return nil
}

// readSources loads every path; the MIME type is derived from the extension only.
func readSources(paths []string) ([]cv.SourceFile, error) {
	files := make([]cv.SourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		files = append(files, cv.SourceFile{
			Name:     filepath.Base(p),
			MIMEType: mime.TypeByExtension(filepath.Ext(p)),
			Data:     data,
		})
	}
	return files, nil
}

func renderTable(w io.Writer, rows []screening.MatchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Candidate", "Score", "Recommendation", "Matched", "Missing", "Shortlisted"})
	table.SetAutoWrapText(false)

	for i, r := range rows {
		shortlisted := ""
		if r.Shortlisted {
			shortlisted = "yes"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.Candidate,
			strconv.Itoa(r.Score) + "%",
			string(r.Recommendation),
			strings.Join(r.Matched, ", "),
			strings.Join(r.Missing, ", "),
			shortlisted,
		})
	}
	table.Render()
}

func shortlistInteractively(session *screening.Session) error {
	for {
		rows := session.View(screening.ViewAll)
		items := make([]string, 0, len(rows)+1)
		for _, r := range rows {
			items = append(items, promptLabel(r))
		}

		prompt := promptui.Select{
			Label: "Toggle shortlist and press ENTER",
			Items: append(items, promptDone),
			Size:  10,
		}

		idx, selected, err := prompt.Run()
		if err != nil {
			return err
		}
		if selected == promptDone {
			return nil
		}

		shortlisted, _ := session.ToggleShortlist(rows[idx].Candidate)
		logger.Debug("shortlist toggled", zap.String("candidate", rows[idx].Candidate), zap.Bool("shortlisted", shortlisted))
	}
}

func promptLabel(r screening.MatchResult) string {
	mark := "[ ]"
	if r.Shortlisted {
		mark = "[x]"
	}
	return fmt.Sprintf("%s %s (%d%%, %s)", mark, r.Candidate, r.Score, r.Recommendation)
}

func writeCSV(dir, prefix string, mode screening.ViewMode, rows []screening.MatchResult) (string, error) {
	payload, err := export.CSV(rows)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, export.FileName(prefix, mode))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func exportToSheet(ctx context.Context, rows []screening.MatchResult) error {
	if !cfg.SheetsEnabled() {
		return errors.New("spreadsheet export needs export.sheets.credentials_file and export.sheets.spreadsheet_id")
	}

	exporter, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
		CredentialsFile: cfg.Export.Sheets.CredentialsFile,
		SpreadsheetID:   cfg.Export.Sheets.SpreadsheetID,
		Tab:             cfg.Export.Sheets.Tab,
	})
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, rows); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			logger.Info("nothing to append to the spreadsheet")
			return nil
		}
		return err
	}
	logger.Info("results appended to spreadsheet", zap.Int("rows", len(rows)), zap.String("tab", cfg.Export.Sheets.Tab))
	return nil
}
