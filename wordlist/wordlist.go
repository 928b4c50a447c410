// Package wordlist loads the word lists used by word schemas.
package wordlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joncooperworks/passacre/errs"
)

// Read returns one word per line with surrounding whitespace trimmed.
// Blank lines are skipped. Word order is significant: a word's line
// position is its digit value.
func Read(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list: %w", err)
	}
	if len(words) == 0 {
		return nil, errs.New(errs.User, "wordlist.Read", "word list is empty")
	}
	return words, nil
}

// Load reads the word list at path. A leading "~/" is expanded to the
// user's home directory.
func Load(path string) ([]string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, errs.Wrap(errs.User, "wordlist.Load", err)
	}
	defer f.Close()
	return Read(f)
}

// ExpandHome expands a leading "~/" in path.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return home + path[1:], nil
}
