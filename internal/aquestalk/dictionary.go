package aquestalk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dictionary directory names, in order of preference.
const (
	DictionaryLarge   = "aq_dic_large"
	DictionaryDefault = "aq_dic"
)

const (
	errFmtDictionaryNotFound    = "%w under %s"
	errFmtCouldNotResolvePath   = "could not resolve absolute path for %q: %w"
	errFmtErrorCheckingDictPath = "error checking dictionary path %q: %w"
	errFmtNotADirectory         = "%w: %s is not a directory"
)

// ErrDictionaryNotFound is returned when no conversion dictionary can be located.
var ErrDictionaryNotFound = errors.New("kanji conversion dictionary not found")

// FindDictionary walks root looking for a directory named aq_dic_large, then
// aq_dic, and returns the absolute path of the first match. The large dictionary
// wins whenever both exist, wherever they are in the tree.
func FindDictionary(root string) (string, error) {
	found := make(map[string]string, 2)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped rather than aborting the search.
			if path != root && errors.Is(err, fs.ErrPermission) {
				return fs.SkipDir
			}

			return err
		}

		if !entry.IsDir() {
			return nil
		}

		name := entry.Name()
		if name != DictionaryLarge && name != DictionaryDefault {
			return nil
		}

		if _, seen := found[name]; !seen {
			found[name] = path
		}

		return fs.SkipDir
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to search %s for a dictionary: %w", root, walkErr)
	}

	for _, name := range []string{DictionaryLarge, DictionaryDefault} {
		if path, ok := found[name]; ok {
			return absolute(path)
		}
	}

	return "", fmt.Errorf(errFmtDictionaryNotFound, ErrDictionaryNotFound, root)
}

// ResolveDictionary returns the explicit path when one is configured and falls back
// to searching installDir otherwise.
func ResolveDictionary(explicit, installDir string) (string, error) {
	if explicit == "" {
		return FindDictionary(installDir)
	}

	info, statErr := os.Stat(explicit)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", fmt.Errorf(errFmtDictionaryNotFound, ErrDictionaryNotFound, explicit)
		}

		return "", fmt.Errorf(errFmtErrorCheckingDictPath, explicit, statErr)
	}

	if !info.IsDir() {
		return "", fmt.Errorf(errFmtNotADirectory, ErrDictionaryNotFound, explicit)
	}

	return absolute(explicit)
}

func absolute(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf(errFmtCouldNotResolvePath, path, err)
	}

	return absPath, nil
}
