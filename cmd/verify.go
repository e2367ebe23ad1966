package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aid/internal/model"
)

// verifyFlags holds the verify command's inputs.
type verifyFlags struct {
	response     string
	responseFile string
	content      string
	contentFile  string
	prompt       string
	existingFile string
	elapsed      float64
	revisions    int
	thresholds   map[string]string
	format       string
}

var verifyOpts verifyFlags

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single response against its source content",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := verifyOpts.request(cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		v, err := env.Engine.Verify(cmd.Context(), req)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), verifyOpts.format, v)
	},
}

func init() {
	f := verifyCmd.Flags()
	f.StringVar(&verifyOpts.response, "response", "", "response text to verify")
	f.StringVar(&verifyOpts.responseFile, "response-file", "", "read the response from a file (- for stdin)")
	f.StringVar(&verifyOpts.content, "content", "", "source content the response engages with")
	f.StringVar(&verifyOpts.contentFile, "content-file", "", "read the content from a file")
	f.StringVar(&verifyOpts.prompt, "prompt", "", "prompt the response answers")
	f.StringVar(&verifyOpts.existingFile, "existing-file", "", "JSON array of earlier responses to compare against")
	f.Float64Var(&verifyOpts.elapsed, "elapsed", -1, "seconds spent writing the response (-1 = unknown)")
	f.IntVar(&verifyOpts.revisions, "revisions", -1, "number of revisions made (-1 = unknown)")
	f.StringToStringVar(&verifyOpts.thresholds, "threshold", nil, "threshold override, e.g. min_combined=0.7 (repeatable)")
	f.StringVar(&verifyOpts.format, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(verifyCmd)
}

// request assembles a verification request from the flags.
func (f verifyFlags) request(stdin io.Reader) (*model.VerificationRequest, error) {
	response, err := readText(f.response, f.responseFile, stdin)
	if err != nil {
		return nil, err
	}
	content, err := readText(f.content, f.contentFile, stdin)
	if err != nil {
		return nil, err
	}
	thresholds, err := parseThresholds(f.thresholds)
	if err != nil {
		return nil, err
	}

	req := &model.VerificationRequest{
		Response:         response,
		Content:          content,
		Prompt:           f.prompt,
		CustomThresholds: thresholds,
	}

	if f.existingFile != "" {
		raw, err := os.ReadFile(f.existingFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", f.existingFile)
		}
		if err := json.Unmarshal(raw, &req.ExistingResponses); err != nil {
			return nil, eris.Wrapf(err, "parse %s", f.existingFile)
		}
	}

	if f.elapsed >= 0 || f.revisions >= 0 {
		req.Metadata = &model.Metadata{}
		if f.elapsed >= 0 {
			elapsed := f.elapsed
			req.Metadata.ElapsedSeconds = &elapsed
		}
		if f.revisions >= 0 {
			revisions := f.revisions
			req.Metadata.RevisionCount = &revisions
		}
	}
	return req, nil
}
