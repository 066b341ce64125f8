package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/cxip/patent-pipeline/internal/common"
)

// Config for the command-line recognizer.
type Config struct {
	// Command is the recognizer binary. It is invoked as
	//   <command> --page N --clip l,t,r,b <pdf>
	// and prints recognized text on stdout.
	Command string
	// MinChars is the plausibility floor: shorter output counts as low
	// confidence rather than a result.
	MinChars int
	// Timeout bounds a single invocation.
	Timeout time.Duration
}

// CommandRecognizer shells out to an external OCR tool. The pipeline
// treats it as an opaque capability; anything about models or languages
// lives in the tool's own configuration.
type CommandRecognizer struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

func NewCommandRecognizer(cfg Config, logger *slog.Logger) *CommandRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &CommandRecognizer{cfg: cfg, runner: execRunner{}, log: logger}
}

// WithRunner swaps the command runner; used by tests.
func (r *CommandRecognizer) WithRunner(runner Runner) *CommandRecognizer {
	r.runner = runner
	return r
}

func (r *CommandRecognizer) Recognize(ctx context.Context, pdfPath string, region Region) (string, error) {
	if r.cfg.Command == "" {
		return "", common.ErrUnavailable
	}
	if _, err := exec.LookPath(r.cfg.Command); err != nil {
		r.log.Warn("ocr.command_missing", "command", r.cfg.Command)
		return "", fmt.Errorf("recognizer %q not installed: %w", r.cfg.Command, common.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := []string{
		"--page", fmt.Sprintf("%d", region.Page),
		"--clip", fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", region.Left, region.Top, region.Right, region.Bottom),
		pdfPath,
	}
	stdout, _, err := r.runner.Run(ctx, r.cfg.Command, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("recognizer timed out: %w", common.ErrTransport)
		}
		return "", fmt.Errorf("recognizer failed: %w", common.ErrTransport)
	}

	text := strings.TrimSpace(string(stdout))
	if len([]rune(text)) < r.cfg.MinChars {
		return "", common.ErrLowConfidence
	}
	return text, nil
}
