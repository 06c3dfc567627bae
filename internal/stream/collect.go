package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"
)

// ErrSourceExhausted means the source ended before n posts were collected.
var ErrSourceExhausted = errors.New("stream ended early")

// Collect runs src and writes the first n posts to w, one per line with
// embedded newlines folded to spaces. It returns as soon as the n-th post is
// written and cancels the source. If the source stops first, the posts
// written so far remain in w and the error wraps ErrSourceExhausted.
func Collect(ctx context.Context, src Source, n int, w io.Writer) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("collect: count must be positive, got %d", n)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	posts := make(chan Post, n)
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, posts)
	}()

	bw := bufio.NewWriter(w)
	written := 0
	for written < n {
		select {
		case p := <-posts:
			if _, err := bw.WriteString(foldLine(p.Text) + "\n"); err != nil {
				return written, fmt.Errorf("write corpus: %w", err)
			}
			written++
		case err := <-done:
			// Drain whatever the source queued before returning.
			for written < n && len(posts) > 0 {
				p := <-posts
				if _, werr := bw.WriteString(foldLine(p.Text) + "\n"); werr != nil {
					return written, fmt.Errorf("write corpus: %w", werr)
				}
				written++
			}
			if ferr := bw.Flush(); ferr != nil {
				return written, fmt.Errorf("flush corpus: %w", ferr)
			}
			if written == n {
				return written, nil
			}
			if err != nil {
				return written, fmt.Errorf("%w after %d of %d posts: %w", ErrSourceExhausted, written, n, err)
			}
			return written, fmt.Errorf("%w after %d of %d posts", ErrSourceExhausted, written, n)
		case <-ctx.Done():
			_ = bw.Flush()
			return written, ctx.Err()
		}
	}
	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("flush corpus: %w", err)
	}
	log.Info().Int("posts", written).Msg("stream collected")
	return written, nil
}

// CollectFile truncates path and collects n posts into it.
func CollectFile(ctx context.Context, src Source, n int, path string) (int, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create corpus dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create corpus: %w", err)
	}
	written, cerr := Collect(ctx, src, n, f)
	if err := f.Close(); err != nil && cerr == nil {
		cerr = fmt.Errorf("close corpus: %w", err)
	}
	return written, cerr
}

func foldLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
