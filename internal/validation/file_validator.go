package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedExtension is returned for files the ingest layer cannot read.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrLockFile is returned for Office lock files such as "~$book.xlsx".
	ErrLockFile = errors.New("office lock file")
	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooLarge is returned when a file exceeds the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrCorruptWorkbook is returned when a workbook's magic bytes are wrong.
	ErrCorruptWorkbook = errors.New("file is not a valid workbook")
	// ErrNotAFile is returned for missing paths and directories.
	ErrNotAFile = errors.New("not a readable file")
)

// SupportedExtensions lists the extensions accepted for analysis.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xls", ".csv", ".tsv", ".txt"}

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// FileValidator checks spreadsheet files before they are ingested.
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a validator. A maxBytes of zero disables the
// size limit.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the configured size limit.
func (v *FileValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Supported reports whether ext (with its dot) is an accepted extension.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// ValidateName checks the file name alone.
func (v *FileValidator) ValidateName(name string) error {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejecting Office lock file", slog.String("file", name))
		return fmt.Errorf("%s: %w", base, ErrLockFile)
	}
	ext := strings.ToLower(filepath.Ext(base))
	if !Supported(ext) {
		v.logger.Warn("Rejecting unsupported file",
			slog.String("file", name),
			slog.String("extension", ext))
		return fmt.Errorf("%s (extension %q): %w", base, ext, ErrUnsupportedExtension)
	}
	return nil
}

// ValidateFile checks that path names a readable, non-empty spreadsheet
// within the size limit whose content matches its extension.
func (v *FileValidator) ValidateFile(path string) error {
	if err := v.ValidateName(path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w: %v", path, ErrNotAFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, ErrNotAFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrNotAFile, err)
	}
	defer f.Close()

	if err := v.ValidateContent(path, info.Size(), f); err != nil {
		return err
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateContent checks the size and leading bytes of content named name.
// It is used for uploads, where no path exists yet.
func (v *FileValidator) ValidateContent(name string, size int64, r io.Reader) error {
	if err := v.ValidateName(name); err != nil {
		return err
	}
	if size == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrEmptyFile)
	}
	if v.maxBytes > 0 && size > v.maxBytes {
		v.logger.Warn("File exceeds size limit",
			slog.String("file", name),
			slog.Int64("size", size),
			slog.Int64("limit", v.maxBytes))
		return fmt.Errorf("%s is %d bytes, limit %d: %w", filepath.Base(name), size, v.maxBytes, ErrTooLarge)
	}

	var magic []byte
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		magic = zipMagic
	case ".xls":
		magic = ole2Magic
	default:
		return nil
	}

	head := make([]byte, len(magic))
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read %s: %w", filepath.Base(name), err)
	}
	if !bytes.Equal(head[:n], magic) {
		v.logger.Warn("Workbook signature mismatch", slog.String("file", name))
		return fmt.Errorf("%s: %w", filepath.Base(name), ErrCorruptWorkbook)
	}
	return nil
}

// ValidateOutputDirectory ensures dir exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
