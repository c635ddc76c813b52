package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/you-humble/sttqueue/core/domain"
)

const (
	inputPlaceholder    = "{input}"
	languagePlaceholder = "{language}"

	maxLineBytes   = 1 << 20
	maxStderrBytes = 4 << 10

	// waitDelay bounds how long Wait keeps reading pipes held open by
	// children of a killed recognizer.
	waitDelay = time.Second
)

// CommandEngine runs an external recognizer that prints one JSON object
// {"start": s, "end": e, "text": t} per line on stdout. Args may contain
// the {input} and {language} placeholders.
type CommandEngine struct {
	name string
	args []string
	sem  slots
}

func NewCommandEngine(name string, args []string, maxParallel int) *CommandEngine {
	return &CommandEngine{name: name, args: args, sem: newSlots(maxParallel)}
}

func (e *CommandEngine) Transcribe(ctx context.Context, inputPath, language string, emit EmitFunc) error {
	if err := e.sem.acquire(ctx); err != nil {
		return err
	}
	defer e.sem.release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.name, e.expand(inputPath, language)...)
	cmd.Env = os.Environ()
	cmd.WaitDelay = waitDelay

	var stderr tailBuffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.name, err)
	}

	emitted := 0
	streamErr := e.stream(stdout, func(seg domain.Segment) error {
		emitted++
		return emit(seg)
	})
	if streamErr != nil {
		// stop the recognizer before Wait so it cannot block on a full pipe
		cancel()
	}

	waitErr := cmd.Wait()

	switch {
	case streamErr != nil:
		return streamErr
	case ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", e.name, exitErr.ExitCode(), stderr.String())
		}
		return fmt.Errorf("wait %s: %w", e.name, waitErr)
	}

	slog.Debug("command engine finished",
		slog.String("input_path", inputPath),
		slog.Int("segments", emitted),
	)
	return nil
}

func (e *CommandEngine) stream(r io.Reader, emit EmitFunc) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineBytes)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var seg domain.Segment
		if err := json.Unmarshal(line, &seg); err != nil {
			return fmt.Errorf("parse segment %q: %w", truncate(string(line), 120), err)
		}
		if err := emit(seg); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s output: %w", e.name, err)
	}
	return nil
}

func (e *CommandEngine) expand(inputPath, language string) []string {
	r := strings.NewReplacer(inputPlaceholder, inputPath, languagePlaceholder, language)
	out := make([]string, len(e.args))
	for i, a := range e.args {
		out[i] = r.Replace(a)
	}
	return out
}

// tailBuffer keeps the last maxStderrBytes written to it.
type tailBuffer struct {
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - maxStderrBytes; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
