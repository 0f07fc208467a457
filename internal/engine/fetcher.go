package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tanq16/rawst/internal/utils"
)

// FetchChunk downloads one range into its temp file and returns the file
// path. It does not retry; calling it again for the same range truncates and
// rewrites the same temp file.
func FetchChunk(ctx context.Context, src Source, job *DownloadJob, r ChunkRange, tracker *Tracker) (string, error) {
	return fetchAttempt(ctx, src, job, r, &progressCredit{tracker: tracker})
}

func fetchAttempt(ctx context.Context, src Source, job *DownloadJob, r ChunkRange, credit *progressCredit) (string, error) {
	tempPath := job.TempPath(r.Index)
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", &FetchError{Index: r.Index, Err: fmt.Errorf("error opening temp file: %w", err)}
	}
	written, err := streamRange(ctx, src, r, tempFile, credit)
	if err != nil {
		tempFile.Close()
		return "", &FetchError{Index: r.Index, Err: err}
	}
	if written != r.Len() {
		tempFile.Close()
		return "", &FetchError{Index: r.Index, Err: fmt.Errorf("%w: expected %d bytes, got %d", ErrShortChunk, r.Len(), written)}
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return "", &FetchError{Index: r.Index, Err: fmt.Errorf("error syncing temp file: %w", err)}
	}
	if err := tempFile.Close(); err != nil {
		return "", &FetchError{Index: r.Index, Err: fmt.Errorf("error closing temp file: %w", err)}
	}
	return tempPath, nil
}

func streamRange(ctx context.Context, src Source, r ChunkRange, dst io.Writer, credit *progressCredit) (int64, error) {
	body, err := src.OpenRange(ctx, r)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	expected := r.Len()
	buffer := make([]byte, min(int64(utils.DefaultBufferSize), expected))
	var written int64
	for {
		bytesRead, readErr := body.Read(buffer)
		if bytesRead > 0 {
			if written+int64(bytesRead) > expected {
				return written, fmt.Errorf("%w: body exceeds %d bytes", ErrRangeMismatch, expected)
			}
			if _, writeErr := dst.Write(buffer[:bytesRead]); writeErr != nil {
				return written, fmt.Errorf("error writing temp file: %w", writeErr)
			}
			written += int64(bytesRead)
			credit.report(written)
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, fmt.Errorf("error reading response body: %w", readErr)
		}
	}
}

// chunkComplete reports whether a temp file from an earlier run already
// holds the full range.
func chunkComplete(tempPath string, r ChunkRange) bool {
	info, err := os.Stat(tempPath)
	return err == nil && info.Mode().IsRegular() && info.Size() == r.Len()
}
