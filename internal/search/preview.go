package search

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Previewer fetches short text previews for keyword hits by reading a
// bounded prefix of the matched file. Previews are independent reads, so
// multiple hits are filled concurrently. Results are LRU-cached since
// the same notes match turn after turn.
type Previewer struct {
	workspace string
	maxBytes  int
	maxLen    int
	cache     *lru.Cache[string, string]
}

// NewPreviewer creates a Previewer rooted at the workspace.
func NewPreviewer(workspace string, maxBytes, maxLen, cacheSize int) *Previewer {
	if maxBytes <= 0 {
		maxBytes = 2048
	}
	if maxLen <= 0 {
		maxLen = 150
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &Previewer{
		workspace: workspace,
		maxBytes:  maxBytes,
		maxLen:    maxLen,
		cache:     cache,
	}
}

// Fill populates Preview on each hit, best-effort. Failures yield an
// empty preview, never an error.
func (p *Previewer) Fill(ctx context.Context, hits []Hit) {
	var wg sync.WaitGroup
	for i := range hits {
		if ctx.Err() != nil {
			return
		}
		wg.Add(1)
		go func(h *Hit) {
			defer wg.Done()
			h.Preview = p.preview(h.Path)
		}(&hits[i])
	}
	wg.Wait()
}

// preview returns the cleaned head of the file at the given
// workspace-relative path.
func (p *Previewer) preview(path string) string {
	if cached, ok := p.cache.Get(path); ok {
		return cached
	}

	text := p.readHead(path)
	text = cleanPreview(text)
	text = truncatePreview(text, p.maxLen)

	p.cache.Add(path, text)
	return text
}

// readHead reads at most maxBytes from the start of the file.
func (p *Previewer) readHead(path string) string {
	full := filepath.Join(p.workspace, filepath.FromSlash(path))
	f, err := os.Open(full)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, p.maxBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	return string(buf[:n])
}

// cleanPreview drops a leading markdown heading line and collapses all
// whitespace runs to single spaces.
func cleanPreview(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		lines = lines[1:]
	}
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

// truncatePreview cuts to maxLen characters without splitting a
// multi-byte rune. The bounded file read can leave a partial rune at
// the very end; invalid bytes (there or mid-file) are dropped without
// losing the valid text around them.
func truncatePreview(s string, maxLen int) string {
	s = strings.ToValidUTF8(s, "")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// CacheLen reports how many previews are cached (for tests/diagnostics).
func (p *Previewer) CacheLen() int { return p.cache.Len() }
