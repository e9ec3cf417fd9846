package misc

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// CheckFileExists reports whether path is an existing regular file.
func CheckFileExists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)

	if err == nil {
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%s is not a regular file", path)
		}
		return true, nil
	} else if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else {
		return false, err
	}
}

// UniqueFileName returns the first of base, base-1, base-2 ... (before ext)
// that doesn't exist yet.
func UniqueFileName(fs afero.Fs, base, ext string) (string, error) {
	name := base + ext
	for i := 1; ; i++ {
		exists, err := CheckFileExists(fs, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}
