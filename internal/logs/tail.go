package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// TailOptions controls a Tail read. A negative Offset reads the last Limit
// lines; otherwise reading resumes at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Match  func(line string) bool
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log at path. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		lines, offset, err := readLastLines(path, opts.Limit, opts.Match)
		if err != nil {
			return result, err
		}
		result = TailResult{Lines: lines, Offset: offset}
		if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
			return waitForLines(ctx, path, offset, opts.Wait, opts.Match)
		}
		return result, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		// The file was truncated or replaced; start over.
		offset = 0
	}
	lines, next, err := readForward(path, offset, opts.Match)
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return waitForLines(ctx, path, next, opts.Wait, opts.Match)
	}
	return TailResult{Lines: lines, Offset: next}, nil
}

// FieldMatch returns a Match that keeps JSON records whose key equals value.
// Lines that are not JSON objects match when they contain value.
func FieldMatch(key, value string) func(string) bool {
	return func(line string) bool {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "{") {
			return strings.Contains(line, value)
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
			return strings.Contains(line, value)
		}
		got, ok := record[key]
		return ok && fmt.Sprint(got) == value
	}
}

func readLastLines(path string, limit int, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	offset, err := scan(file, func(line string) {
		if match != nil && !match(line) {
			return
		}
		ring[idx] = line
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := range count {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

func readForward(path string, offset int64, match func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	end, err := scan(file, func(line string) {
		if match == nil || match(line) {
			lines = append(lines, line)
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, end, nil
}

// scan feeds complete lines to fn and returns the offset just past the last
// complete line, so a partially written record is read again next time.
func scan(file *os.File, fn func(string)) (int64, error) {
	start, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	offset := start
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return 0, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if len(line) > maxLineBytes {
			continue
		}
		fn(strings.TrimRight(line, "\r\n"))
	}
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match func(string) bool) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := readForward(path, offset, match)
		if err != nil {
			return result, err
		}
		result.Offset = next
		offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
