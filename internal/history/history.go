// Package history keeps a tamper-evident log of what dotenvy loaded and
// ran. Each JSON line stores the SHA-256 of the line before it.
package history

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	historyDir  = ".dotenvy"
	historyFile = "history.jsonl"
)

var (
	ErrNoHistory = errors.New("no history log found")
	mu           sync.Mutex
)

type Op string

const (
	OpLoad    Op = "load"
	OpRun     Op = "run"
	OpReload  Op = "reload"
	OpCheck   Op = "check"
	OpEncrypt Op = "encrypt"
	OpDecrypt Op = "decrypt"
	OpMCPCall Op = "mcp_call"
)

// Entry is one log line. Values are never recorded, only key names.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Op        Op        `json:"op"`
	RunID     string    `json:"run_id"`
	Files     []string  `json:"files,omitempty"`
	Keys      []string  `json:"keys,omitempty"`
	Command   string    `json:"cmd,omitempty"`
	ExitCode  int       `json:"exit,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Errors    int       `json:"errors,omitempty"`
	PrevHash  string    `json:"prev_hash"`
}

// NewRunID returns an ID that ties together the entries of one invocation,
// such as a run and its reloads.
func NewRunID() string {
	return uuid.NewString()
}

// Path returns the log location for workdir ("" means the working
// directory).
func Path(workdir string) string {
	if workdir == "" {
		workdir, _ = os.Getwd()
	}
	return filepath.Join(workdir, historyDir, historyFile)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history log: %w", err)
	}
	return lines, nil
}

func hashLine(line string) string {
	sum := sha256.Sum256([]byte(line))
	return hex.EncodeToString(sum[:])
}

type Option func(*Entry)

func WithRunID(id string) Option {
	return func(e *Entry) {
		e.RunID = id
	}
}

func WithFiles(files []string) Option {
	return func(e *Entry) {
		e.Files = files
	}
}

// WithKeys records key names, sorted.
func WithKeys(keys []string) Option {
	return func(e *Entry) {
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		e.Keys = sorted
	}
}

func WithCommand(cmd string) Option {
	return func(e *Entry) {
		e.Command = cmd
	}
}

func WithExitCode(code int) Option {
	return func(e *Entry) {
		e.ExitCode = code
	}
}

func WithTool(name string) Option {
	return func(e *Entry) {
		e.Tool = name
	}
}

func WithErrors(n int) Option {
	return func(e *Entry) {
		e.Errors = n
	}
}

// Log appends an entry to the log under workdir, creating it if needed.
// A RunID is generated when none is given.
func Log(workdir string, op Op, opts ...Option) (*Entry, error) {
	mu.Lock()
	defer mu.Unlock()

	path := Path(workdir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	prev := ""
	lines, err := readLines(path)
	switch {
	case err == nil && len(lines) > 0:
		prev = hashLine(lines[len(lines)-1])
	case err != nil && !errors.Is(err, ErrNoHistory):
		return nil, err
	}

	entry := &Entry{
		Timestamp: time.Now().UTC(),
		Op:        op,
		PrevHash:  prev,
	}
	for _, opt := range opts {
		opt(entry)
	}
	if entry.RunID == "" {
		entry.RunID = NewRunID()
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, string(b)); err != nil {
		return nil, fmt.Errorf("write history log: %w", err)
	}
	return entry, nil
}

// Show returns the last lastN entries (all when lastN <= 0), oldest first.
// Lines that do not decode are skipped.
func Show(workdir string, lastN int) ([]Entry, error) {
	lines, err := readLines(Path(workdir))
	if err != nil {
		return nil, err
	}
	if lastN > 0 && len(lines) > lastN {
		lines = lines[len(lines)-lastN:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type VerifyResult struct {
	TotalEntries int
	// Breaks holds 1-based line numbers whose prev_hash does not match.
	Breaks []int
}

func (r *VerifyResult) OK() bool { return len(r.Breaks) == 0 }

func Verify(workdir string) (*VerifyResult, error) {
	lines, err := readLines(Path(workdir))
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{TotalEntries: len(lines)}
	prev := ""
	for i, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.PrevHash != prev {
			result.Breaks = append(result.Breaks, i+1)
		}
		prev = hashLine(line)
	}
	return result, nil
}
