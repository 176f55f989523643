// Package testing holds file assertion helpers shared by transfer tests.
package testing

import (
	"bytes"
	"fmt"
	"os"
)

// FileChecker allows chaining multiple checks on a file path.
type FileChecker struct {
	Path   string
	Checks []func(string) error
}

// NewFileChecker creates a FileChecker for the given path.
func NewFileChecker(path string) *FileChecker {
	return &FileChecker{Path: path, Checks: []func(string) error{}}
}

// Check runs all checks on the FileChecker's path, aggregating every failure.
func (fc *FileChecker) Check() error {
	errors := MultiError{}
	for _, check := range fc.Checks {
		if err := check(fc.Path); err != nil {
			AppendErr(&errors, err)
		}
	}

	if len(errors) == 0 {
		return nil
	}
	return errors
}

// IsFile adds a check that the path exists and is a regular file.
func (fc *FileChecker) IsFile() *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		return nil
	})
	return fc
}

// HasSize adds a check that the file is exactly size bytes long.
func (fc *FileChecker) HasSize(size int64) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() != size {
			return fmt.Errorf("%s is %d bytes, want %d", path, info.Size(), size)
		}
		return nil
	})
	return fc
}

// HasContent adds a check that the file's bytes equal content.
func (fc *FileChecker) HasContent(content []byte) *FileChecker {
	fc.Checks = append(fc.Checks, func(path string) error {
		actual, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if !bytes.Equal(actual, content) {
			return fmt.Errorf("%s content differs from expected %d bytes", path, len(content))
		}
		return nil
	})
	return fc
}
