// Package stream collects short public posts into a corpus file for the
// sentiment classifier.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phuslu/log"
)

// Post is one item from a stream.
type Post struct {
	Text string `json:"text"`
	Lang string `json:"lang,omitempty"`
}

// Source pushes posts into out until ctx is cancelled or the source is
// exhausted. Run must not close out.
type Source interface {
	Run(ctx context.Context, out chan<- Post) error
}

// WebSocketSource reads posts from a websocket endpoint. Frames are either
// JSON objects with a "text" field or plain text.
type WebSocketSource struct {
	URL         string
	Token       string
	Languages   []string
	DialTimeout time.Duration
}

// NewWebSocketSource builds a source for url. An empty languages list accepts
// every post.
func NewWebSocketSource(url, token string, languages []string) *WebSocketSource {
	return &WebSocketSource{
		URL:         url,
		Token:       token,
		Languages:   languages,
		DialTimeout: 15 * time.Second,
	}
}

func (s *WebSocketSource) Run(ctx context.Context, out chan<- Post) error {
	header := http.Header{}
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = s.DialTimeout

	conn, resp, err := dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial stream: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the collector is done.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	log.Info().Str("url", s.URL).Strs("languages", s.Languages).Msg("stream connected")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		post, ok := decodeFrame(data)
		if !ok || !s.accepts(post) {
			continue
		}
		select {
		case out <- post:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WebSocketSource) accepts(p Post) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if strings.EqualFold(l, p.Lang) {
			return true
		}
	}
	return false
}

func decodeFrame(data []byte) (Post, bool) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Post{}, false
	}
	if strings.HasPrefix(trimmed, "{") {
		var p Post
		if err := json.Unmarshal(data, &p); err == nil {
			p.Text = strings.TrimSpace(p.Text)
			return p, p.Text != ""
		}
	}
	return Post{Text: trimmed}, true
}

// FileSource replays a text file, one post per non-empty line.
type FileSource struct {
	Path string
}

func (s FileSource) Run(ctx context.Context, out chan<- Post) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("open stream file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		select {
		case out <- Post{Text: line}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan stream file: %w", err)
	}
	return nil
}
