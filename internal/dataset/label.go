package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
)

// ErrNoLabel indicates a file name that does not start with a valid class symbol.
var ErrNoLabel = errors.New("dataset: file name carries no valid label")

// ParseLabel reads the class from the first character of the file's base
// name. With 16 classes the character is a hexadecimal digit, otherwise a
// decimal one; either way it must be below classes.
func ParseLabel(path string, classes int) (int, error) {
	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return 0, fmt.Errorf("%w: %q", ErrNoLabel, path)
	}
	base := 10
	if classes == 16 {
		base = 16
	}
	label, err := strconv.ParseInt(name[:1], base, 0)
	if err != nil || int(label) >= classes {
		return 0, fmt.Errorf("%w: %q", ErrNoLabel, name)
	}
	return int(label), nil
}

// Symbol renders class as the character ParseLabel accepts for it.
func Symbol(class, classes int) string {
	if classes == 16 {
		return strconv.FormatInt(int64(class), 16)
	}
	return strconv.Itoa(class)
}
