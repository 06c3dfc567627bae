// Package ledger persists the append-only strategy ledgers as line-oriented
// text files, one record per line.
package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/shopspring/decimal"

	"SentimentLedger/internal/model"
)

var (
	// ErrUninitialized means the ledger has no seed record yet.
	ErrUninitialized = errors.New("ledger not initialized")
	// ErrAlreadyInitialized guards existing history against re-seeding.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	// ErrCorrupt means a ledger line could not be parsed.
	ErrCorrupt = errors.New("ledger corrupt")
)

const tailChunk = 4096

// Store manages one file per strategy. Reads of the running total only touch
// the tail of the file; UpdateAll serialises read-then-append across both ledgers.
type Store struct {
	mu       sync.Mutex
	paths    map[model.Strategy]string
	location *time.Location
}

// NewStore creates a Store for the experiment and control files, creating
// their parent directories.
func NewStore(experimentPath, controlPath string) (*Store, error) {
	s := &Store{
		paths: map[model.Strategy]string{
			model.Experiment: experimentPath,
			model.Control:    controlPath,
		},
		location: time.Local,
	}
	for _, p := range s.paths {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating ledger dir: %w", err)
			}
		}
	}
	return s, nil
}

// SetLocation sets the zone ledger timestamps are parsed in.
func (s *Store) SetLocation(loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
}

// Path returns the file backing st.
func (s *Store) Path(st model.Strategy) string {
	return s.paths[st]
}

// CurrentTotal returns the total of the last record of st.
func (s *Store) CurrentTotal(st model.Strategy) (decimal.Decimal, error) {
	rec, err := s.Latest(st)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.Total, nil
}

// Latest returns the last record of st.
func (s *Store) Latest(st model.Strategy) (model.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest(st)
}

// First returns the seed record of st.
func (s *Store) First(st model.Strategy) (model.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(st)
	if err != nil {
		return model.LedgerRecord{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.LedgerRecord{}, fmt.Errorf("%s: %w", st, ErrUninitialized)
		}
		return model.LedgerRecord{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		return ParseLine(sc.Text(), s.location)
	}
	if err := sc.Err(); err != nil {
		return model.LedgerRecord{}, fmt.Errorf("read %s ledger: %w", st, err)
	}
	return model.LedgerRecord{}, fmt.Errorf("%s: %w", st, ErrUninitialized)
}

// Records parses the whole ledger of st, failing on the first corrupt line.
// The read holds the store lock so it never sees a half-written update.
func (s *Store) Records(st model.Strategy) ([]model.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(st)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var recs []model.LedgerRecord
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		rec, err := ParseLine(sc.Text(), s.location)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", st, line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s ledger: %w", st, err)
	}
	return recs, nil
}

// Initialize writes the seed record of st. It refuses to touch a ledger that
// already holds any record.
func (s *Store) Initialize(st model.Strategy, seed model.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.latest(st); err == nil {
		return fmt.Errorf("%s: %w", st, ErrAlreadyInitialized)
	} else if !errors.Is(err, ErrUninitialized) {
		return err
	}
	if err := s.write(st, seed); err != nil {
		return err
	}
	log.Info().Str("strategy", string(st)).Str("total", seed.Total.String()).Msg("ledger initialized")
	return nil
}

// Append adds rec after the current last record of st.
func (s *Store) Append(st model.Strategy, rec model.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.latest(st); err != nil {
		return err
	}
	return s.write(st, rec)
}

// InitializeAll writes seed to every strategy's ledger. It checks all
// ledgers first and writes nothing if any of them already holds a record.
func (s *Store) InitializeAll(seed model.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range model.Strategies {
		if _, err := s.latest(st); err == nil {
			return fmt.Errorf("%s: %w", st, ErrAlreadyInitialized)
		} else if !errors.Is(err, ErrUninitialized) {
			return err
		}
	}
	for _, st := range model.Strategies {
		if err := s.write(st, seed); err != nil {
			return err
		}
	}
	log.Info().Str("total", seed.Total.String()).Msg("ledgers initialized")
	return nil
}

// UpdateAll reads the last record of every strategy, lets fn derive the next
// ones and appends them, all under the store lock. Nothing is written unless
// every ledger reads cleanly and fn returns a record for each strategy.
func (s *Store) UpdateAll(fn func(prior map[model.Strategy]model.LedgerRecord) (map[model.Strategy]model.LedgerRecord, error)) (map[model.Strategy]model.LedgerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := make(map[model.Strategy]model.LedgerRecord, len(model.Strategies))
	for _, st := range model.Strategies {
		rec, err := s.latest(st)
		if err != nil {
			return nil, err
		}
		prior[st] = rec
	}
	next, err := fn(prior)
	if err != nil {
		return nil, err
	}
	for _, st := range model.Strategies {
		if _, ok := next[st]; !ok {
			return nil, fmt.Errorf("no next record for %s", st)
		}
	}
	for _, st := range model.Strategies {
		if err := s.write(st, next[st]); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func (s *Store) path(st model.Strategy) (string, error) {
	p, ok := s.paths[st]
	if !ok || p == "" {
		return "", fmt.Errorf("unknown strategy %q", st)
	}
	return p, nil
}

func (s *Store) latest(st model.Strategy) (model.LedgerRecord, error) {
	path, err := s.path(st)
	if err != nil {
		return model.LedgerRecord{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.LedgerRecord{}, fmt.Errorf("%s: %w", st, ErrUninitialized)
		}
		return model.LedgerRecord{}, err
	}
	defer f.Close()

	line, err := readLastLine(f)
	if err != nil {
		return model.LedgerRecord{}, fmt.Errorf("read %s ledger: %w", st, err)
	}
	if line == "" {
		return model.LedgerRecord{}, fmt.Errorf("%s: %w", st, ErrUninitialized)
	}
	return ParseLine(line, s.location)
}

func (s *Store) write(st model.Strategy, rec model.LedgerRecord) error {
	path, err := s.path(st)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s ledger: %w", st, err)
	}
	if _, err := f.WriteString(FormatLine(rec)); err != nil {
		f.Close()
		return fmt.Errorf("append %s ledger: %w", st, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s ledger: %w", st, err)
	}
	return f.Close()
}

// readLastLine returns the last non-blank line of f, reading backwards from
// the end in fixed-size chunks.
func readLastLine(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	var buf []byte
	for end := info.Size(); end > 0; {
		start := end - tailChunk
		if start < 0 {
			start = 0
		}
		part := make([]byte, end-start)
		if _, err := f.ReadAt(part, start); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		buf = append(part, buf...)
		trimmed := bytes.TrimRight(buf, "\r\n\t ")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return string(trimmed[i+1:]), nil
		}
		end = start
	}
	return string(bytes.TrimSpace(buf)), nil
}
