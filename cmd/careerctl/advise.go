package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"career-hub/internal/extract"
)

var (
	adviseJSON    bool
	letterJobFile string
	letterOutFile string
)

var adviseCmd = &cobra.Command{
	Use:   "advise <resume.pdf|resume.docx>",
	Short: "Run the career advisor on a local résumé file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cvText, err := resumeText(cmd, args[0])
		if err != nil {
			return err
		}

		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		rec, err := app.Reports.Recommend(cmd.Context(), cvText)
		if err != nil {
			return err
		}
		if adviseJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		fmt.Fprintln(cmd.OutOrStdout(), rec.Content)
		return nil
	},
}

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter <resume.pdf|resume.docx>",
	Short: "Draft a cover letter for a local résumé and job description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cvText, err := resumeText(cmd, args[0])
		if err != nil {
			return err
		}
		jd, err := readOptional(letterJobFile)
		if err != nil {
			return err
		}

		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		letter, err := app.CoverLetters.Generator.Generate(cmd.Context(), cvText, jd)
		if err != nil {
			return err
		}
		if letterOutFile != "" {
			return os.WriteFile(letterOutFile, []byte(letter+"\n"), 0o644)
		}
		fmt.Fprintln(cmd.OutOrStdout(), letter)
		return nil
	},
}

func init() {
	adviseCmd.Flags().BoolVar(&adviseJSON, "json", false, "print the recommendation with its job matches as JSON")
	coverLetterCmd.Flags().StringVar(&letterJobFile, "job", "", "file with the job description (required)")
	coverLetterCmd.Flags().StringVarP(&letterOutFile, "out", "o", "", "write the letter to this file")
	_ = coverLetterCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(adviseCmd, coverLetterCmd)
}

func resumeText(cmd *cobra.Command, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	text, err := extract.ExtractTextFromBytes(cmd.Context(), raw, "", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("extract resume text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", extract.ErrEmptyText
	}
	return text, nil
}
