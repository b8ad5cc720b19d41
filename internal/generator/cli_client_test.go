package generator

import (
	"context"
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"
)

type recordedRun struct {
	name  string
	args  []string
	stdin string
}

func fakeCLI(stdout, stderr string, err error, rec *recordedRun) commandRunner {
	return func(_ context.Context, name string, args []string, stdin string) ([]byte, []byte, error) {
		if rec != nil {
			*rec = recordedRun{name: name, args: args, stdin: stdin}
		}
		return []byte(stdout), []byte(stderr), err
	}
}

func TestCLIClient_Success(t *testing.T) {
	var rec recordedRun
	c := NewCLIClient("/usr/local/bin/claude", "claude-sonnet-4-5")
	c.run = fakeCLI(`{"type":"result","subtype":"success","is_error":false,"result":"  {\"questions\":[]}  ","usage":{"input_tokens":120,"output_tokens":45}}`, "", nil, &rec)

	resp, err := c.Generate(context.Background(), "system text", "passage text")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != `{"questions":[]}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.PromptTokens != 120 || resp.OutputTokens != 45 {
		t.Errorf("tokens = %d/%d", resp.PromptTokens, resp.OutputTokens)
	}
	if rec.name != "/usr/local/bin/claude" || rec.stdin != "passage text" {
		t.Errorf("ran %q with stdin %q", rec.name, rec.stdin)
	}
	joined := strings.Join(rec.args, " ")
	for _, want := range []string{"--output-format json", "--system-prompt system text", "--model claude-sonnet-4-5"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if slices.Contains(rec.args, "passage text") {
		t.Error("user prompt must go on stdin, not argv")
	}
}

func TestCLIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		stderr string
		err    error
		check  func(error) bool
	}{
		{
			name:  "binary missing",
			err:   &exec.Error{Name: "claude", Err: exec.ErrNotFound},
			check: func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) },
		},
		{
			name:   "exit status",
			stderr: "not logged in\nrun claude login",
			err:    errors.New("exit status 1"),
			check: func(err error) bool {
				var e *ErrProviderUnavailable
				return errors.As(err, &e) && strings.Contains(err.Error(), "not logged in") && !strings.Contains(err.Error(), "claude login")
			},
		},
		{
			name:   "rate limited",
			stdout: `{"subtype":"error_during_execution","is_error":true,"result":"Rate limit reached"}`,
			err:    errors.New("exit status 1"),
			check:  func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) },
		},
		{
			name:   "reported error",
			stdout: `{"subtype":"error_max_turns","is_error":true,"result":""}`,
			check: func(err error) bool {
				var e *ErrProviderUnavailable
				return errors.As(err, &e) && strings.Contains(err.Error(), "error_max_turns")
			},
		},
		{
			name:   "not json",
			stdout: "plain text answer",
			check:  isInvalid,
		},
		{
			name:   "empty result",
			stdout: `{"subtype":"success","is_error":false,"result":"   "}`,
			check:  isInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCLIClient("claude", "")
			c.run = fakeCLI(tt.stdout, tt.stderr, tt.err, nil)
			_, err := c.Generate(context.Background(), "s", "u")
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestCLIClient_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	c := NewCLIClient("claude", "")
	c.run = func(context.Context, string, []string, string) ([]byte, []byte, error) {
		called = true
		return nil, nil, nil
	}
	if _, err := c.Generate(ctx, "s", "u"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Error("CLI should not run after cancellation")
	}
}
