// Package persistence stores gob-encoded values on disk. Files are written to
// a temporary sibling first and renamed into place, so a crash never leaves a
// half-written file behind.
package persistence

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// SaveGob encodes the given object using gob and saves it to the specified filePath.
// It creates necessary directories if they don't exist.
func SaveGob(filePath string, object any) error {
	return writeAtomic(filePath, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(object)
	})
}

// SaveCompressedGob is SaveGob with a zstd-compressed payload.
func SaveCompressedGob(filePath string, object any) error {
	return writeAtomic(filePath, func(w io.Writer) error {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create compressor: %w", err)
		}
		if err := gob.NewEncoder(zw).Encode(object); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	})
}

// LoadGob decodes a gob-encoded file from filePath into the provided object pointer.
// The object must be a pointer to the type that was originally encoded.
// If the file does not exist, it returns os.ErrNotExist, allowing callers to handle
// fresh starts gracefully.
func LoadGob(filePath string, objectPointer any) error {
	return readFile(filePath, func(r io.Reader) error {
		return gob.NewDecoder(r).Decode(objectPointer)
	})
}

// LoadCompressedGob reads a file written by SaveCompressedGob.
func LoadCompressedGob(filePath string, objectPointer any) error {
	return readFile(filePath, func(r io.Reader) error {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("failed to create decompressor: %w", err)
		}
		defer zr.Close()
		return gob.NewDecoder(zr).Decode(objectPointer)
	})
}

func writeAtomic(filePath string, encode func(w io.Writer) error) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := encode(bw); err != nil {
		return fmt.Errorf("failed to gob encode to file %s: %w", filePath, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file %s: %w", filePath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file %s: %w", filePath, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move file into place %s: %w", filePath, err)
	}
	committed = true
	return nil
}

func readFile(filePath string, decode func(r io.Reader) error) error {
	file, err := os.Open(filePath) // #nosec G304 -- filePath is controlled by application, not user input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return os.ErrNotExist
		}
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", filePath, "error", closeErr)
		}
	}()

	if err := decode(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("failed to gob decode from file %s: %w", filePath, err)
	}
	return nil
}
