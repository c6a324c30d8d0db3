package gate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// evidenceTail bounds the command output kept as evidence.
const evidenceTail = 200

// errTimeout marks a command killed by its deadline.
var errTimeout = errors.New("timed out")

// execResult captures a finished subprocess.
type execResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// run executes argv in dir, bounded by timeout.
// A non-zero exit is reported through ExitCode, not as an error.
func run(ctx context.Context, dir string, timeout time.Duration, argv []string) (execResult, error) {
	if len(argv) == 0 {
		return execResult{}, errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	// Child processes may keep the pipes open after the kill.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := execResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%w after %s", errTimeout, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// tail returns at most the last evidenceTail characters of the trimmed output.
func tail(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > evidenceTail {
		r = r[len(r)-evidenceTail:]
	}
	return string(r)
}
