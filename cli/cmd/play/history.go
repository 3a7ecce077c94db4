package play

import (
	"bufio"
	"os"
	"slices"
	"strings"
	"sync"
)

const baseHistory = "play_history.utf8"

// historyEntry is one submitted line and the mode it was entered in.
type historyEntry struct {
	Line string
	Mode inputMode
}

// modePrefix marks the mode of each line in the history file.
var modePrefix = map[inputMode]string{
	modeEval: "E:",
	modeCtrl: "C:",
}

// history is the persistent input history. An empty path keeps it in
// memory only.
type history struct {
	mu      sync.RWMutex
	path    string
	entries []historyEntry
}

func newHistory(path string) *history {
	return &history{path: path}
}

// load reads the history file. A missing file is not an error.
func (h *history) load() error {
	if h.path == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}
	defer file.Close()

	h.entries = nil

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		e := historyEntry{Line: line, Mode: modeEval}

		for mode, prefix := range modePrefix {
			if s, ok := strings.CutPrefix(line, prefix); ok {
				e = historyEntry{Line: s, Mode: mode}

				break
			}
		}

		h.entries = append(h.entries, e)
	}

	return scanner.Err()
}

// add appends line, moving an existing identical entry to the end.
func (h *history) add(line string, mode inputMode) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.ContainsRune(line, '\n') {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := historyEntry{Line: line, Mode: mode}

	if n := len(h.entries); n > 0 && h.entries[n-1] == e {
		return nil
	}

	rewrite := false

	if i := slices.Index(h.entries, e); i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
		rewrite = true
	}

	h.entries = append(h.entries, e)

	if h.path == "" {
		return nil
	}

	if rewrite {
		return h.rewrite()
	}

	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(modePrefix[mode] + line + "\n")

	return err
}

// entry returns the entry at i, where 0 is the oldest.
func (h *history) entry(i int) (historyEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return historyEntry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

func (h *history) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// rewrite replaces the history file with the current entries.
// Must be called with h.mu held.
func (h *history) rewrite() error {
	var sb strings.Builder

	for _, e := range h.entries {
		sb.WriteString(modePrefix[e.Mode])
		sb.WriteString(e.Line)
		sb.WriteByte('\n')
	}

	return os.WriteFile(h.path, []byte(sb.String()), 0o600)
}
