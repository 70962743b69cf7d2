package loader

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ResistanceIsUseless/StatusHawk/internal/errors"
)

// LoadSubjects reads a list of check subjects from a file, one per
// line. Blank lines and comments are skipped; duplicates are dropped
// with a warning so a batch never checks the same subject twice.
func LoadSubjects(filename string) (subjects []string, warnings []string, err error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewFileError(errors.ErrorFileNotFound, "subjects file not found", filename, err)
		}
		return nil, nil, errors.NewFileError(errors.ErrorFileReadFailed, "failed to open subjects file", filename, err)
	}
	defer file.Close()

	seen := make(map[string]int)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if first, dup := seen[line]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate subject %q on line %d (first seen on line %d)", line, lineNo, first))
			continue
		}
		seen[line] = lineNo
		subjects = append(subjects, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, errors.NewFileError(errors.ErrorFileReadFailed, "failed to read subjects file", filename, err)
	}

	if len(subjects) == 0 {
		return nil, warnings, errors.NewFileError(errors.ErrorFileEmpty, "subjects file contains no subjects", filename, nil)
	}

	return subjects, warnings, nil
}
