package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrConverterMissing  = errors.New("image converter not available")
	ErrProcessingFailed  = errors.New("processing failed")
	ErrProcessingTimeout = errors.New("processing timed out")
)

// Converter rewrites an image at src into the canonical storage format at dst.
type Converter interface {
	// Available reports ErrConverterMissing when the converter cannot run on this host.
	Available() error
	Convert(ctx context.Context, src, dst string) error
}

// ExecConverter runs an external executable. Args may contain the {src} and
// {dst} placeholders; both refer to paths on the host filesystem.
type ExecConverter struct {
	Bin     string
	Args    []string
	Timeout time.Duration
}

func NewExecConverter(bin string, args []string, timeout time.Duration) *ExecConverter {
	return &ExecConverter{Bin: bin, Args: args, Timeout: timeout}
}

// Available looks the binary up on every call so installing it does not need a restart.
func (c *ExecConverter) Available() error {
	if _, err := exec.LookPath(c.Bin); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConverterMissing, c.Bin, err)
	}
	return nil
}

func (c *ExecConverter) args(src, dst string) []string {
	out := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		a = strings.ReplaceAll(a, "{src}", src)
		a = strings.ReplaceAll(a, "{dst}", dst)
		out = append(out, a)
	}
	return out
}

func (c *ExecConverter) Convert(ctx context.Context, src, dst string) error {
	bin, err := exec.LookPath(c.Bin)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConverterMissing, c.Bin, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, c.args(src, dst)...)
	// children of a killed shell may hold the output pipe open
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s converting %s", ErrProcessingTimeout, c.Timeout, src)
	}
	if err != nil {
		return fmt.Errorf("%w: %s exited: %v: %s", ErrProcessingFailed, c.Bin, err, strings.TrimSpace(string(output)))
	}
	return nil
}
