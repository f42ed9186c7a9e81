package tickets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// readCounter returns the number stored in a project's counter file, or 0
// when the file is missing or holds no positive integer.
func readCounter(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading counter file: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

// writeCounter stores the next number to hand out.
func writeCounter(path string, next int) error {
	if err := atomic.WriteFile(path, strings.NewReader(strconv.Itoa(next)+"\n")); err != nil {
		return fmt.Errorf("writing counter file: %w", err)
	}
	return nil
}
