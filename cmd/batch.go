package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/aid/internal/model"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
)

// maxBatchLine bounds a single JSONL request.
const maxBatchLine = 8 << 20

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Verify a JSONL file of requests, writing one JSON result per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in := cmd.InOrStdin()
		if batchInput != "" && batchInput != "-" {
			f, err := os.Open(batchInput)
			if err != nil {
				return eris.Wrap(err, "open batch input")
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		out := cmd.OutOrStdout()
		if batchOutput != "" && batchOutput != "-" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "create batch output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		_, err = processBatch(ctx, in, out, concurrency, env.Engine.Verify)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "JSONL file of verification requests (default stdin)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "JSONL file for results (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent verifications (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// verifyFunc is the callback signature for verifying one request.
type verifyFunc func(ctx context.Context, req *model.VerificationRequest) (*model.Verification, error)

// batchLine is one line of batch output. Exactly one of Result and Error
// is set.
type batchLine struct {
	Line      int                       `json:"line"`
	RequestID string                    `json:"request_id,omitempty"`
	CacheHit  bool                      `json:"cache_hit,omitempty"`
	Result    *model.VerificationResult `json:"result,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// batchSummary counts batch outcomes.
type batchSummary struct {
	Total  int
	Passed int
	Failed int
	Errors int
}

// processBatch verifies every non-blank JSONL line of r with at most
// concurrency calls in flight, then writes results to w in input order.
// Per-line errors are reported in-line and never abort the batch.
func processBatch(ctx context.Context, r io.Reader, w io.Writer, concurrency int, verify verifyFunc) (batchSummary, error) {
	type pending struct {
		line int
		raw  string
	}
	var lines []pending

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxBatchLine)
	for n := 1; sc.Scan(); n++ {
		if raw := strings.TrimSpace(sc.Text()); raw != "" {
			lines = append(lines, pending{line: n, raw: raw})
		}
	}
	if err := sc.Err(); err != nil {
		return batchSummary{}, eris.Wrap(err, "read batch input")
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	zap.L().Info("processing batch",
		zap.Int("requests", len(lines)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]batchLine, len(lines))
	var passed, failed, errored atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range lines {
		g.Go(func() error {
			out := batchLine{Line: p.line}
			defer func() { results[i] = out }()

			var req model.VerificationRequest
			if err := json.Unmarshal([]byte(p.raw), &req); err != nil {
				errored.Add(1)
				out.Error = "invalid request: " + err.Error()
				return nil
			}

			v, err := verify(gctx, &req)
			if err != nil {
				errored.Add(1)
				out.Error = err.Error()
				zap.L().Warn("batch: verification failed", zap.Int("line", p.line), zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			out.RequestID = v.RequestID
			out.CacheHit = v.CacheHit
			out.Result = v.Result
			if v.Result.Passed {
				passed.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return batchSummary{}, eris.Wrap(err, "write batch output")
		}
	}

	summary := batchSummary{
		Total:  len(lines),
		Passed: int(passed.Load()),
		Failed: int(failed.Load()),
		Errors: int(errored.Load()),
	}
	zap.L().Info("batch complete",
		zap.Int("total", summary.Total),
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}
