package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"career-hub/internal/interview"
)

var (
	interviewJDFile string
	interviewCVFile string
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a text mock interview in the terminal",
	Long:  "Answers are read line by line from stdin. Type exit, stop, quit or bye to finish.",
	RunE: func(cmd *cobra.Command, args []string) error {
		jd, err := readOptional(interviewJDFile)
		if err != nil {
			return err
		}
		cv, err := readOptional(interviewCVFile)
		if err != nil {
			return err
		}

		app, err := loadApp()
		if err != nil {
			return err
		}
		defer app.Close()

		return interviewLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), app.Interviewer, jd, cv)
	},
}

func init() {
	interviewCmd.Flags().StringVar(&interviewJDFile, "job", "", "file with the job description")
	interviewCmd.Flags().StringVar(&interviewCVFile, "cv", "", "file with the résumé text")
	rootCmd.AddCommand(interviewCmd)
}

func interviewLoop(ctx context.Context, in io.Reader, out io.Writer, agent interview.Responder, jd, cv string) error {
	turns := []interview.Turn{{Speaker: interview.SpeakerInterviewer, Text: interview.FirstQuestion}}
	fmt.Fprintf(out, "%s: %s\n", interview.SpeakerInterviewer, interview.FirstQuestion)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}
		if interview.IsExitCommand(answer) {
			fmt.Fprintln(out, interview.ClosingLine)
			return nil
		}

		reply, err := agent.Respond(ctx, interview.Input{
			History:        interview.FormatTranscript(turns),
			Answer:         answer,
			JobDescription: jd,
			CVText:         cv,
		})
		if err != nil {
			return fmt.Errorf("interviewer: %w", err)
		}
		turns = append(turns,
			interview.Turn{Speaker: interview.SpeakerCandidate, Text: answer},
			interview.Turn{Speaker: interview.SpeakerInterviewer, Text: reply},
		)
		fmt.Fprintf(out, "%s: %s\n", interview.SpeakerInterviewer, reply)
	}
	return scanner.Err()
}

func readOptional(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
