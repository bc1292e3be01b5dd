// Package prompts loads, stores and selects typing prompts.
package prompts

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/verte-zerg/codetype/internal/model"
)

// Separator is the line that splits prompts inside a prompt file.
const Separator = "%%"

//go:embed seed/*.txt
var seedFS embed.FS

// LoadFile reads prompts for a category from a prompt file.
func LoadFile(filePath, category string) ([]model.Prompt, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only prompt file.
			_ = cerr
		}
	}()
	prompts, err := ParseBlocks(file, category)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompt file is empty")
	}
	return prompts, nil
}

// ParseBlocks splits r into prompts separated by Separator lines. Blank lines
// around a block are dropped; indentation and inner newlines are kept.
func ParseBlocks(r io.Reader, category string) ([]model.Prompt, error) {
	var prompts []model.Prompt
	var block []string
	flush := func() {
		text := trimBlankLines(block)
		block = block[:0]
		if text == "" {
			return
		}
		prompts = append(prompts, model.Prompt{Category: category, Text: text})
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == Separator {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return prompts, nil
}

func trimBlankLines(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return ""
	}
	trimmed := make([]string, 0, end-start)
	for _, line := range lines[start:end] {
		trimmed = append(trimmed, strings.TrimRight(line, " "))
	}
	return strings.Join(trimmed, "\n")
}

// Defaults returns the built-in prompts for every default category.
func Defaults() ([]model.Prompt, error) {
	entries, err := seedFS.ReadDir("seed")
	if err != nil {
		return nil, fmt.Errorf("failed to read seed prompts: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var all []model.Prompt
	for _, name := range names {
		category := strings.TrimSuffix(name, path.Ext(name))
		file, err := seedFS.Open(path.Join("seed", name))
		if err != nil {
			return nil, fmt.Errorf("failed to open seed prompts %s: %w", name, err)
		}
		prompts, err := ParseBlocks(file, category)
		if cerr := file.Close(); cerr != nil {
			_ = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse seed prompts %s: %w", name, err)
		}
		all = append(all, prompts...)
	}
	return all, nil
}
