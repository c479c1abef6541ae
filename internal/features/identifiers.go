package features

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadIdentifiers reads one track identifier per line, trimming surrounding whitespace.
// Identifiers are not validated, so a blank line yields an empty identifier.
func LoadIdentifiers(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ids = append(ids, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read identifiers: %w", err)
	}
	return ids, nil
}

// LoadIdentifiersFile reads identifiers from the file at path.
func LoadIdentifiersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identifier file: %w", err)
	}
	defer f.Close()
	return LoadIdentifiers(f)
}
