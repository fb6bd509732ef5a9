package search

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

// QMDBackend runs an external keyword index CLI (qmd or compatible) and
// parses its CSV output. Expected output: one "hash,score,uri" line per
// match, best-first.
type QMDBackend struct {
	argv      []string
	timeout   time.Duration
	uriPrefix string // rewritten to a workspace-relative path
	workspace string
}

// NewQMDBackend parses the configured command line (shell quoting
// respected) and returns a backend, or an error when the command is
// empty or unparsable.
func NewQMDBackend(command string, timeout time.Duration, uriPrefix, workspace string) (*QMDBackend, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse keyword command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("keyword command is empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &QMDBackend{
		argv:      argv,
		timeout:   timeout,
		uriPrefix: uriPrefix,
		workspace: workspace,
	}, nil
}

// Search invokes the CLI with the query and a result-count bound under a
// hard timeout. Timeouts and process failures return an error; the
// cascade treats that as zero hits.
func (b *QMDBackend) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	args := append([]string(nil), b.argv[1:]...)
	args = append(args, "-n", strconv.Itoa(limit), query)

	cmd := exec.CommandContext(ctx, b.argv[0], args...)
	if b.workspace != "" {
		cmd.Dir = b.workspace
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("keyword search timed out after %s", b.timeout)
		}
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	return b.parseOutput(stdout.String(), limit), nil
}

// parseOutput turns CSV lines into hits, skipping malformed lines.
// Order is preserved: the index already returns best-first.
func (b *QMDBackend) parseOutput(out string, limit int) []Hit {
	var hits []Hit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 3)
		if len(parts) != 3 {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		path := b.rewriteURI(strings.TrimSpace(parts[2]))
		if path == "" {
			continue
		}
		hits = append(hits, Hit{Path: path, Score: score})
		if len(hits) >= limit {
			break
		}
	}
	return hits
}

// rewriteURI strips the index's URI scheme so hits point at
// workspace-relative files.
func (b *QMDBackend) rewriteURI(uri string) string {
	if b.uriPrefix != "" && strings.HasPrefix(uri, b.uriPrefix) {
		uri = strings.TrimPrefix(uri, b.uriPrefix)
	}
	return filepath.ToSlash(strings.TrimPrefix(uri, "/"))
}
