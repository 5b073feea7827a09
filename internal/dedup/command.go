package dedup

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Command runs an external detector and parses its stdout as pairs. The
// detector gets no input from us; it is expected to know the corpus
// location through its own arguments.
type Command struct {
	Path   string
	Args   []string
	Logger zerolog.Logger
}

func (c Command) Pairs(ctx context.Context, _ []Document) ([]Pair, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.Logger.Debug().Str("path", c.Path).Strs("args", c.Args).Msg("running duplicate detector")
	err := cmd.Run()
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		c.Logger.Warn().Str("path", c.Path).Str("stderr", msg).Msg("duplicate detector wrote to stderr")
	}
	if err != nil {
		return nil, fmt.Errorf("run duplicate detector %s: %w", c.Path, err)
	}

	pairs, err := ParsePairs(&stdout)
	if err != nil {
		return nil, fmt.Errorf("duplicate detector %s: %w", c.Path, err)
	}
	c.Logger.Info().Str("path", c.Path).Int("pairs", len(pairs)).Msg("duplicate detector finished")
	return pairs, nil
}
