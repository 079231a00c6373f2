// Package executor runs stored examples in a throwaway working directory.
package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Executor runs code and reports its output. ok is false when the language
// is unsupported or the run failed.
type Executor interface {
	Execute(ctx context.Context, code, language string) (output string, ok bool)
}

// Noop never executes anything.
type Noop struct{}

func (Noop) Execute(context.Context, string, string) (string, bool) { return "", false }

type runner struct {
	binary string
	args   []string
	file   string
}

// runners is the allowlist of interpreters, keyed by lowercase language tag.
var runners = map[string]runner{
	"python":     {binary: "python3", file: "main.py"},
	"python3":    {binary: "python3", file: "main.py"},
	"py":         {binary: "python3", file: "main.py"},
	"javascript": {binary: "node", file: "main.js"},
	"js":         {binary: "node", file: "main.js"},
	"node":       {binary: "node", file: "main.js"},
	"sh":         {binary: "sh", file: "main.sh"},
	"bash":       {binary: "bash", file: "main.sh"},
	"shell":      {binary: "sh", file: "main.sh"},
	"ruby":       {binary: "ruby", file: "main.rb"},
	"go":         {binary: "go", args: []string{"run"}, file: "main.go"},
}

// Sandbox runs allowlisted interpreters with a timeout and an output cap.
type Sandbox struct {
	timeout   time.Duration
	maxOutput int
	logger    *zap.Logger
}

func NewSandbox(timeout time.Duration, maxOutput int, logger *zap.Logger) *Sandbox {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxOutput <= 0 {
		maxOutput = 4096
	}
	return &Sandbox{
		timeout:   timeout,
		maxOutput: maxOutput,
		logger:    logger.Named("executor"),
	}
}

// Supported reports whether language has an allowlisted interpreter.
func Supported(language string) bool {
	_, ok := runners[strings.ToLower(strings.TrimSpace(language))]
	return ok
}

func (s *Sandbox) Execute(ctx context.Context, code, language string) (string, bool) {
	r, ok := runners[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return "", false
	}

	binary, err := exec.LookPath(r.binary)
	if err != nil {
		s.logger.Warn("Interpreter not available", zap.String("language", language), zap.String("binary", r.binary))
		return "", false
	}

	dir, err := os.MkdirTemp("", "lisa-exec-*")
	if err != nil {
		s.logger.Error("Failed to create sandbox dir", zap.Error(err))
		return "", false
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, r.file)
	if err := os.WriteFile(path, []byte(code), 0o600); err != nil {
		s.logger.Error("Failed to write sandbox file", zap.Error(err))
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := append(append([]string{}, r.args...), path)
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	// children of the interpreter may hold the output pipes open after a kill
	cmd.WaitDelay = time.Second
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir}

	out := &cappedBuffer{limit: s.maxOutput}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	if err := cmd.Run(); err != nil {
		s.logger.Info("Execution failed",
			zap.String("language", language),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", false
	}

	if out.truncated {
		s.logger.Debug("Output truncated", zap.String("language", language), zap.Int("limit", s.maxOutput))
	}
	return strings.TrimSpace(out.String()), true
}

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest without failing the writer.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if room := b.limit - b.buf.Len(); room < n {
		b.truncated = true
		p = p[:max(room, 0)]
	}
	b.buf.Write(p)
	return n, nil
}

// String returns the kept output as valid UTF-8. A rune cut by the limit,
// or any other invalid byte sequence, is dropped.
func (b *cappedBuffer) String() string {
	out := b.buf.String()
	if !utf8.ValidString(out) {
		out = strings.ToValidUTF8(out, "")
	}
	return out
}
