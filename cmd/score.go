package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/ats-scorer/internal/ats"
	"github.com/spigell/ats-scorer/internal/report"
	"github.com/spigell/ats-scorer/internal/secrets"
	"github.com/spigell/ats-scorer/internal/source"
)

const (
	PromptFindings = "Show findings"
	PromptMatches  = "Show keyword matches"
	PromptRanking  = "Show ranking"
	PromptSelect   = "Choose a job"
	PromptToFile   = "Dump reports to file"
	PromptExit     = "Exit"
	PromptBack     = "back"

	outputText = "text"
	outputJSON = "json"
)

var errExit = errors.New("exit requested")

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against one or more job descriptions",
	Example: `  ats-scorer score -r resume.pdf --job job.txt
  ats-scorer score -r resume.docx --job hh:12345678 --job backend.txt -o json`,
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("resume", "r", "", "resume file (.txt, .md, .pdf, .docx, .html)")
	scoreCmd.Flags().StringArray("job", nil, "job description file or hh.ru vacancy as hh:<id>; repeat to compare jobs")
	scoreCmd.Flags().StringP("output", "o", outputText, "report format: text or json")
	scoreCmd.Flags().BoolP("interactive", "i", false, "browse the reports in an interactive menu")
	scoreCmd.Flags().Bool("elaborate", false, "explain findings with the configured AI provider")

	scoreCmd.MarkFlagRequired("resume")
	scoreCmd.MarkFlagRequired("job")
}

// score is the main command for the cli.
func score(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	elaborate, _ := cmd.Flags().GetBool("elaborate")
	rt, err := setup(ctx, elaborate)
	if err != nil {
		log.Fatal(err)
	}
	defer rt.Close()
	logger := rt.logger

	output, _ := cmd.Flags().GetString("output")
	if output != outputText && output != outputJSON {
		logger.Fatal("unknown output format", zap.String("output", output))
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	resume, err := source.ReadFile(resumePath)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}

	refs, _ := cmd.Flags().GetStringArray("job")
	jobs, err := loadJobs(ctx, refs, rt, logger)
	if err != nil {
		logger.Fatal("loading job descriptions", zap.Error(err))
	}

	logger.Info("scoring resume",
		zap.String("resume", resumePath),
		zap.Int("jobs", len(jobs)),
		zap.Bool("elaboration", rt.elaborator != nil),
	)

	cmp, err := rt.engine.Compare(ctx, resume, jobs)
	if err != nil {
		logger.Fatal("scoring", zap.Error(err))
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive {
		if err := printResult(os.Stdout, cmp, output); err != nil {
			logger.Fatal("printing reports", zap.Error(err))
		}
		return
	}

	if err := browse(cmp, logger); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// loadJobs resolves every --job reference to a labelled job description.
func loadJobs(ctx context.Context, refs []string, rt *runtime, logger *zap.Logger) ([]ats.Job, error) {
	var hh *source.HH

	jobs := make([]ats.Job, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if !source.IsVacancyRef(ref) {
			text, err := source.ReadFile(ref)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, ats.Job{Label: ref, Text: text})
			continue
		}

		if hh == nil {
			hh = newHHClient(rt.config.HH, logger)
		}
		vacancy, err := hh.Vacancy(ctx, ref)
		if err != nil {
			return nil, err
		}
		text, err := vacancy.Text()
		if err != nil {
			return nil, fmt.Errorf("rendering vacancy %s: %w", vacancy.ID, err)
		}
		logger.Debug("vacancy loaded", zap.String("vacancy_id", vacancy.ID), zap.String("name", vacancy.Name))
		jobs = append(jobs, ats.Job{Label: fmt.Sprintf("%s %s", vacancy.ID, vacancy.Label()), Text: text})
	}

	return jobs, nil
}

func newHHClient(cfg HHConfig, logger *zap.Logger) *source.HH {
	// Vacancies are public, the token only raises rate limits.
	var token string
	if strings.TrimSpace(cfg.TokenFile) != "" {
		t, err := secrets.Load(secrets.Source{Name: "headhunter token", File: cfg.TokenFile})
		if err != nil {
			logger.Warn("ignoring headhunter token", zap.Error(err))
		}
		token = t
	}

	hh := source.NewHH(logger, token)
	if cfg.UserAgent != "" {
		hh.UserAgent = cfg.UserAgent
	}
	return hh
}

func printResult(w io.Writer, cmp *ats.Comparison, output string) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(cmp.Reports) == 1 {
			return enc.Encode(cmp.Reports[0])
		}
		return enc.Encode(cmp)
	}

	for i, r := range cmp.Reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeReport(w, r); err != nil {
			return err
		}
	}
	if len(cmp.Reports) > 1 {
		fmt.Fprintln(w)
		return writeRanking(w, cmp)
	}
	return nil
}

// browse is the interactive report menu.
func browse(cmp *ats.Comparison, logger *zap.Logger) error {
	current := cmp.Reports[0]
	for _, r := range cmp.Reports {
		if r.Job == cmp.Best() {
			current = r
		}
	}

	for {
		items := []string{PromptFindings, PromptMatches}
		if len(cmp.Reports) > 1 {
			items = append(items, PromptRanking, PromptSelect)
		}
		items = append(items, PromptToFile, PromptExit)

		prompt := promptui.Select{
			Label: fmt.Sprintf("%s: %d (%s)", current.Job, current.OverallScore, current.Rating),
			Items: items,
		}
		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		next, err := handleAction(action, cmp, current, logger)
		if err != nil {
			return err
		}
		current = next
	}
}

func handleAction(action string, cmp *ats.Comparison, current *report.Report, logger *zap.Logger) (*report.Report, error) {
	switch action {
	case PromptFindings:
		return current, writeFindings(os.Stdout, current)
	case PromptMatches:
		return current, writeMatches(os.Stdout, current)
	case PromptRanking:
		return current, writeRanking(os.Stdout, cmp)
	case PromptSelect:
		return selectReport(cmp, current)
	case PromptToFile:
		filename, err := dumpToTmpFile(cmp)
		if err != nil {
			return current, fmt.Errorf("dump reports to file: %w", err)
		}
		logger.Info("dumping reports to file", zap.String("filename", filename))
		return current, nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return current, errExit
	default:
		return current, fmt.Errorf("invalid action: %s", action)
	}
}

func selectReport(cmp *ats.Comparison, current *report.Report) (*report.Report, error) {
	items := make([]string, 0, len(cmp.Reports)+1)
	for _, r := range cmp.Reports {
		items = append(items, fmt.Sprintf("%s / %d / %s", r.Job, r.OverallScore, r.Rating))
	}

	prompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: append(items, PromptBack),
	}
	i, _, err := prompt.Run()
	if err != nil {
		return current, err
	}
	if i >= len(cmp.Reports) {
		return current, nil
	}
	return cmp.Reports[i], nil
}

func dumpToTmpFile(v any) (string, error) {
	file, err := os.CreateTemp("", "ats_reports_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
