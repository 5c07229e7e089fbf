package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/isamples/core"
	"github.com/c360studio/isamples/pipeline"
	"github.com/c360studio/isamples/transform"
)

// maxLineSize bounds a single JSON lines record.
const maxLineSize = 16 * 1024 * 1024

// expandPatterns resolves file arguments, which may be doublestar globs.
// A pattern that matches nothing is an error.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// readInputs loads every record in the files matched by patterns.
func readInputs(authority core.Authority, patterns []string) ([]pipeline.Input, error) {
	files, err := expandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	var inputs []pipeline.Input
	for _, path := range files {
		in, err := readFile(authority, path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in...)
	}
	return inputs, nil
}

// readFile splits one file into records: tab-separated text yields one record
// per row, .jsonl one per line, a JSON array one per element, and anything
// else is a single record.
func readFile(authority core.Authority, path string) ([]pipeline.Input, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return readRows(authority, path)
	case ".jsonl", ".ndjson":
		return readLines(authority, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		inputs := make([]pipeline.Input, 0, len(items))
		for i, item := range items {
			inputs = append(inputs, pipeline.Input{
				Authority: authority,
				Raw:       item,
				Origin:    fmt.Sprintf("%s[%d]", path, i),
			})
		}
		return inputs, nil
	}
	return []pipeline.Input{{Authority: authority, Raw: data, Origin: path}}, nil
}

func readRows(authority core.Authority, path string) ([]pipeline.Input, error) {
	if authority != core.AuthoritySmithsonian {
		return nil, fmt.Errorf("%s: delimited files are only read for %s", path, core.AuthoritySmithsonian)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := transform.ReadSmithsonianRows(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	inputs := make([]pipeline.Input, 0, len(rows))
	for i, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode %s row %d: %w", path, i+2, err)
		}
		inputs = append(inputs, pipeline.Input{
			Authority: authority,
			Raw:       raw,
			Origin:    fmt.Sprintf("%s:%d", path, i+2),
		})
	}
	return inputs, nil
}

func readLines(authority core.Authority, path string) ([]pipeline.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var inputs []pipeline.Input
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		inputs = append(inputs, pipeline.Input{
			Authority: authority,
			Raw:       append([]byte(nil), text...),
			Origin:    fmt.Sprintf("%s:%d", path, line),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return inputs, nil
}
