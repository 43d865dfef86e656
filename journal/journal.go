// Package journal appends an audit trail of collection runs as JSON lines.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the type of journal event
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventAssumeFailed EventType = "assume_failed"
	EventUnitDone     EventType = "unit_done"
	EventUnitFailed   EventType = "unit_failed"
	EventRunCompleted EventType = "run_completed"
)

// Event is a single journal line.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence"`
	Type      EventType `json:"type"`
	Service   string    `json:"service,omitempty"`
	AccountID string    `json:"account_id,omitempty"`
	Region    string    `json:"region,omitempty"`
	Count     int       `json:"count,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Journal is an append-only event log. One file per process, flushed and
// synced per event so a crash loses at most the in-flight line. A nil
// journal discards events.
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
}

// Open creates a journal file in the specified directory
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	filename := fmt.Sprintf("cloudtally-%s.jsonl", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302,G304
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Record appends one event. The sequence and timestamp are assigned here.
func (j *Journal) Record(eventType EventType, service, accountID, region string, count int, cause error) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++
	event := Event{
		Timestamp: time.Now().UTC(),
		Sequence:  j.sequence,
		Type:      eventType,
		Service:   service,
		AccountID: accountID,
		Region:    region,
		Count:     count,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	return j.writeEvent(event)
}

// writeEvent writes a single event line
func (j *Journal) writeEvent(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush immediately for durability
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return j.file.Sync()
}

// Reader replays journal events from one file
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader creates a journal reader for the specified file
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next event from the journal
func (r *Reader) Next() (*Event, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var event Event
	if err := json.Unmarshal(r.scanner.Bytes(), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay invokes handler for every event after since, across all journal
// files in the directory.
func Replay(dir string, since time.Time, handler func(*Event) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "cloudtally-*.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, file := range files {
		reader, err := NewReader(file)
		if err != nil {
			return err
		}

		for {
			event, err := reader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				reader.Close()
				return err
			}
			if event.Timestamp.After(since) {
				if err := handler(event); err != nil {
					reader.Close()
					return err
				}
			}
		}
		if err := reader.Close(); err != nil {
			return err
		}
	}
	return nil
}
