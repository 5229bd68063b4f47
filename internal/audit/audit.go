// Package audit provides an append-only, hash-chained event log. Each record
// carries the hash of its predecessor, so any edit or deletion inside the log
// breaks the chain and is detectable on verification.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Record is one audit log entry as persisted in the JSONL file.
type Record struct {
	Timestamp string         `json:"ts_utc"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	PrevHash  string         `json:"prev_hash"`
	EntryHash string         `json:"entry_hash"`
}

// VerifyResult reports the outcome of walking the hash chain.
type VerifyResult struct {
	OK       bool   `json:"ok"`
	Entries  int    `json:"entries"`
	LastHash string `json:"last_hash"`
	Error    string `json:"error,omitempty"`
}

// Logger appends hash-chained records to a JSONL file.
type Logger struct {
	path string
	seed string

	mu       sync.Mutex
	lastHash string
}

// NewLogger creates a logger writing to path, chaining entries with seed.
// An existing log is scanned so new entries continue the chain.
func NewLogger(path, seed string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}

	l := &Logger{path: path, seed: seed}
	last, err := loadLastHash(path)
	if err != nil {
		return nil, err
	}
	l.lastHash = last
	return l, nil
}

// Append writes one event to the log and returns its entry hash.
func (l *Logger) Append(eventType string, payload map[string]any) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	entryHash, err := l.entryHash(l.lastHash, timestamp, eventType, payload)
	if err != nil {
		return "", err
	}

	record := Record{
		Timestamp: timestamp,
		EventType: eventType,
		Payload:   payload,
		PrevHash:  l.lastHash,
		EntryHash: entryHash,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit record: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("failed to append audit record: %w", err)
	}

	l.lastHash = entryHash
	return entryHash, nil
}

// Verify walks the whole chain and reports the first break, if any.
func (l *Logger) Verify() VerifyResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return VerifyResult{OK: true, Entries: 0, LastHash: ""}
		}
		return VerifyResult{OK: false, Error: err.Error()}
	}
	defer func() {
		_ = f.Close()
	}()

	expectedPrev := ""
	entries := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries++

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return VerifyResult{OK: false, Entries: entries, LastHash: expectedPrev,
				Error: fmt.Sprintf("unparseable record at line %d", entries)}
		}
		if record.PrevHash != expectedPrev {
			return VerifyResult{OK: false, Entries: entries, LastHash: expectedPrev,
				Error: fmt.Sprintf("broken hash chain at line %d", entries)}
		}

		recomputed, err := l.entryHash(record.PrevHash, record.Timestamp, record.EventType, record.Payload)
		if err != nil || recomputed != record.EntryHash {
			return VerifyResult{OK: false, Entries: entries, LastHash: expectedPrev,
				Error: fmt.Sprintf("hash mismatch at line %d", entries)}
		}
		expectedPrev = record.EntryHash
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{OK: false, Entries: entries, LastHash: expectedPrev, Error: err.Error()}
	}

	return VerifyResult{OK: true, Entries: entries, LastHash: expectedPrev}
}

// entryHash computes sha256(seed|prev|ts|event|payloadJSON). encoding/json
// serializes map keys in sorted order, which keeps the payload bytes
// canonical between append and verify.
func (l *Logger) entryHash(prevHash, timestamp, eventType string, payload map[string]any) (string, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit payload: %w", err)
	}
	base := fmt.Sprintf("%s|%s|%s|%s|%s", l.seed, prevHash, timestamp, eventType, serialized)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(base))), nil
}

// loadLastHash reads the entry hash of the final record, if the log exists.
func loadLastHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	lastHash := ""
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if record.EntryHash != "" {
			lastHash = record.EntryHash
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to scan audit log: %w", err)
	}
	return lastHash, nil
}
