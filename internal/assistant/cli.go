package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// CLIInvoker shells out to the assistant CLI for each call, captures
// its output streams, and normalizes the JSON result.
type CLIInvoker struct {
	binary string
}

// NewCLIInvoker creates an invoker for the given CLI binary. An empty
// binary falls back to "claude".
func NewCLIInvoker(binary string) *CLIInvoker {
	if binary == "" {
		binary = "claude"
	}
	return &CLIInvoker{binary: binary}
}

// Compile-time verification that CLIInvoker implements Invoker.
var _ Invoker = (*CLIInvoker)(nil)

// Invoke runs one assistant call. A failure that looks like a stale
// session handle is retried exactly once without the handle.
func (c *CLIInvoker) Invoke(ctx context.Context, opts CallOptions) (*Result, error) {
	res, err := c.invokeOnce(ctx, opts)
	if err != nil && opts.SessionID != "" && isSessionError(err) {
		log.Printf("[invoker] session %s rejected, retrying without resume: %v", opts.SessionID, err)
		retry := opts
		retry.SessionID = ""
		return c.invokeOnce(ctx, retry)
	}
	return res, err
}

// invokeOnce spawns one CLI process and waits for it to settle.
func (c *CLIInvoker) invokeOnce(ctx context.Context, opts CallOptions) (*Result, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	}
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(callCtx, c.binary, buildArgs(opts)...)
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.binary, err)
	}

	var mu sync.Mutex
	var stdoutBuf, stderrBuf strings.Builder

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		drain(stdout, &mu, &stdoutBuf, opts, 64*1024, 1024*1024)
	}()
	go func() {
		defer wg.Done()
		drain(stderr, &mu, &stderrBuf, opts, 16*1024, 256*1024)
	}()

	// Pipes must be fully drained before Wait closes them.
	wg.Wait()
	waitErr := cmd.Wait()
	elapsed := time.Since(start).Milliseconds()

	mu.Lock()
	outText := strings.TrimSpace(stdoutBuf.String())
	errText := strings.TrimSpace(stderrBuf.String())
	mu.Unlock()

	// Cancellation and timeout take precedence over exit status.
	if callCtx.Err() != nil {
		emitFailureRecord(opts, elapsed)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("assistant call cancelled: %w", ErrCancelled)
		}
		return nil, fmt.Errorf("assistant call timed out after %s: %w", opts.Timeout, ErrTimeout)
	}

	if outText != "" {
		var res *Result
		if payload, ok := ParsePayload(outText); ok {
			res = resultFromPayload(payload)
		} else {
			// Unparseable but non-empty stdout is still a usable answer.
			res = &Result{Text: outText}
		}
		if res.DurationMs == 0 {
			res.DurationMs = elapsed
		}
		emitRecord(opts, res)
		return res, nil
	}

	emitFailureRecord(opts, elapsed)
	if waitErr != nil {
		detail := errText
		if detail == "" {
			detail = waitErr.Error()
		}
		if isRateLimitText(detail) {
			return nil, fmt.Errorf("assistant rate limited: %s: %w", detail, ErrRateLimited)
		}
		return nil, fmt.Errorf("assistant exited without output: %s", detail)
	}
	return nil, fmt.Errorf("assistant produced no output")
}

// buildArgs assembles the CLI arguments in their contract order.
func buildArgs(opts CallOptions) []string {
	args := []string{
		"-p", opts.Prompt,
		"--output-format", "json",
		"--max-turns", strconv.Itoa(opts.MaxTurns),
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.Tools != nil {
		args = append(args, "--tools", *opts.Tools)
	}
	if opts.SessionID != "" {
		args = append(args, "--resume", opts.SessionID)
	}
	return args
}

// drain consumes one output stream line by line, firing the activity
// and output callbacks for every chunk.
func drain(r io.Reader, mu *sync.Mutex, buf *strings.Builder, opts CallOptions, initial, max int) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initial), max)

	for scanner.Scan() {
		line := scanner.Text()

		mu.Lock()
		buf.WriteString(line)
		buf.WriteByte('\n')
		mu.Unlock()

		if opts.OnActivity != nil {
			opts.OnActivity()
		}
		if opts.OnOutput != nil {
			opts.OnOutput(line)
		}
	}
}

// emitRecord reports a completed call to the invocation sink.
func emitRecord(opts CallOptions, res *Result) {
	if opts.OnInvocation == nil {
		return
	}
	opts.OnInvocation(res.Record(opts.ChatID, opts.Tier))
}

// emitFailureRecord reports a call that produced no result payload.
func emitFailureRecord(opts CallOptions, elapsedMs int64) {
	if opts.OnInvocation == nil {
		return
	}
	opts.OnInvocation(models.InvocationRecord{
		Timestamp:  time.Now().UTC(),
		ChatID:     opts.ChatID,
		Tier:       opts.Tier,
		DurationMs: elapsedMs,
		IsError:    true,
	})
}
