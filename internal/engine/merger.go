package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tanq16/rawst/internal/utils"
)

// Merge appends the temp files to the job's output file in ascending index
// order, deleting each temp file once its bytes are copied. tempFiles[i]
// holds ranges[i]. On failure the partial output and any remaining temp
// files stay on disk so the merge can be retried without refetching.
func Merge(job *DownloadJob, ranges []ChunkRange, tempFiles []string) error {
	if len(tempFiles) != len(ranges) {
		return &MergeError{Index: -1, Err: fmt.Errorf("have %d temp files for %d ranges", len(tempFiles), len(ranges))}
	}
	for i, r := range ranges {
		if r.Index != i {
			return &MergeError{Index: r.Index, Err: fmt.Errorf("range at position %d has index %d", i, r.Index)}
		}
	}
	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return &MergeError{Index: -1, Err: fmt.Errorf("error creating output directory: %w", err)}
	}
	outFile, err := os.Create(job.OutputPath())
	if err != nil {
		return &MergeError{Index: -1, Err: fmt.Errorf("error creating output file: %w", err)}
	}
	writer := bufio.NewWriterSize(outFile, utils.DefaultBufferSize)

	for i, r := range ranges {
		copied, err := appendChunk(writer, tempFiles[i])
		if err != nil {
			outFile.Close()
			return &MergeError{Index: r.Index, Err: err}
		}
		if copied != r.Len() {
			outFile.Close()
			return &MergeError{Index: r.Index, Err: fmt.Errorf("%w: expected %d bytes, got %d", ErrShortChunk, r.Len(), copied)}
		}
		if err := os.Remove(tempFiles[i]); err != nil {
			outFile.Close()
			return &MergeError{Index: r.Index, Err: fmt.Errorf("error removing temp file: %w", err)}
		}
	}

	if err := writer.Flush(); err != nil {
		outFile.Close()
		return &MergeError{Index: -1, Err: fmt.Errorf("error flushing output file: %w", err)}
	}
	if err := outFile.Sync(); err != nil {
		outFile.Close()
		return &MergeError{Index: -1, Err: fmt.Errorf("error syncing output file: %w", err)}
	}
	if err := outFile.Close(); err != nil {
		return &MergeError{Index: -1, Err: fmt.Errorf("error closing output file: %w", err)}
	}
	return nil
}

func appendChunk(dst io.Writer, tempPath string) (int64, error) {
	tempFile, err := os.Open(tempPath)
	if err != nil {
		return 0, fmt.Errorf("error opening chunk: %w", err)
	}
	defer tempFile.Close()
	copied, err := io.Copy(dst, tempFile)
	if err != nil {
		return copied, fmt.Errorf("error copying chunk: %w", err)
	}
	return copied, nil
}
