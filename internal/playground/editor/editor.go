// Package editor provides the code surfaces the workbench edits and submits.
package editor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	appErr "solvebox/pkg/errors"
)

// Surface is the capability set the submission controller needs from an editor.
// Implementations must be safe for concurrent use.
type Surface interface {
	Value() (string, error)
	SetValue(code string) error
	// FormatDocument rewrites the content into canonical form. It is best effort:
	// callers continue with the unformatted text when it fails.
	FormatDocument() error
	Focus()
}

// Buffer is an in-memory Surface.
type Buffer struct {
	mu        sync.Mutex
	text      string
	formatter Formatter
	focused   int
}

// NewBuffer creates a buffer seeded with text. A nil formatter makes
// FormatDocument report that formatting is unavailable.
func NewBuffer(text string, formatter Formatter) *Buffer {
	return &Buffer{text: text, formatter: formatter}
}

func (b *Buffer) Value() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text, nil
}

func (b *Buffer) SetValue(code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = code
	return nil
}

func (b *Buffer) FormatDocument() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.formatter == nil {
		return appErr.New(appErr.EditorUnavailable).WithMessage("formatting is unavailable")
	}
	formatted, err := b.formatter.Format(b.text)
	if err != nil {
		return appErr.Wrap(err, appErr.FormatFailed)
	}
	b.text = formatted
	return nil
}

func (b *Buffer) Focus() {
	b.mu.Lock()
	b.focused++
	b.mu.Unlock()
}

// FocusCount reports how many times the buffer received focus.
func (b *Buffer) FocusCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused
}

// File is a Surface backed by a working file so external editors can change it.
type File struct {
	mu        sync.Mutex
	path      string
	formatter Formatter
	onFocus   func(path string)
}

// NewFile creates a file-backed surface. onFocus may be nil.
func NewFile(path string, formatter Formatter, onFocus func(path string)) *File {
	return &File{path: path, formatter: formatter, onFocus: onFocus}
}

// Path returns the working file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) Value() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) SetValue(code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(code)
}

func (f *File) FormatDocument() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formatter == nil {
		return appErr.New(appErr.EditorUnavailable).WithMessage("formatting is unavailable")
	}
	text, err := f.read()
	if err != nil {
		return err
	}
	formatted, err := f.formatter.Format(text)
	if err != nil {
		return appErr.Wrap(err, appErr.FormatFailed)
	}
	if formatted == text {
		return nil
	}
	return f.write(formatted)
}

func (f *File) Focus() {
	if f.onFocus != nil {
		f.onFocus(f.path)
	}
}

func (f *File) read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.EditorUnavailable, "read working file failed: %v", err)
	}
	return string(data), nil
}

func (f *File) write(code string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create working dir failed: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("write working file failed: %w", err)
	}
	return nil
}
