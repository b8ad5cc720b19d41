package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandRunner executes name with args, feeding stdin, and returns what the
// process wrote.
type commandRunner func(ctx context.Context, name string, args []string, stdin string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args []string, stdin string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// CLIClient drives a locally installed claude CLI in print mode. It lets
// developers generate questions with their own CLI login instead of an API key.
type CLIClient struct {
	path  string
	model string
	run   commandRunner
}

func NewCLIClient(path, model string) *CLIClient {
	return &CLIClient{path: path, model: model, run: execRunner}
}

// cliResult is the JSON document the CLI prints with --output-format json.
type cliResult struct {
	Subtype string `json:"subtype"`
	IsError bool   `json:"is_error"`
	Result  string `json:"result"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *CLIClient) args(systemPrompt string) []string {
	args := []string{"--print", "--output-format", "json", "--max-turns", "1", "--system-prompt", systemPrompt}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}

// Generate sends the user prompt on stdin so long passages never hit
// argument length limits.
func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stdout, stderr, err := c.run(ctx, c.path, c.args(systemPrompt), userPrompt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("claude CLI not found at %q", c.path)}
	}
	if err != nil {
		// A failed run may still have printed a result document explaining why.
		if _, decodeErr := decodeCLIResult(stdout); decodeErr != nil && !isInvalid(decodeErr) {
			return nil, decodeErr
		}
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("claude CLI: %w: %s", err, firstLine(stderr))}
	}
	return decodeCLIResult(stdout)
}

func decodeCLIResult(out []byte) (*LLMResponse, error) {
	var res cliResult
	if err := json.Unmarshal(bytes.TrimSpace(out), &res); err != nil {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("decode claude CLI output: %w", err)}
	}
	if res.IsError {
		msg := strings.TrimSpace(res.Result)
		if msg == "" {
			msg = res.Subtype
		}
		if strings.Contains(strings.ToLower(msg), "rate limit") {
			return nil, &ErrRateLimit{Err: errors.New(msg)}
		}
		return nil, &ErrProviderUnavailable{Err: fmt.Errorf("claude CLI: %s", msg)}
	}

	text := strings.TrimSpace(res.Result)
	if text == "" {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("claude CLI returned an empty result")}
	}
	return &LLMResponse{
		Content:      text,
		PromptTokens: res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
	}, nil
}

func isInvalid(err error) bool {
	var inv *ErrInvalidResponse
	return errors.As(err, &inv)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
