package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/utils"
	"gopkg.in/yaml.v3"
)

// BatchFile groups entries by source type, for example:
//
//	http:
//	  - link: https://example.com/a.iso
//	    op: a.iso
//	s3:
//	  - link: s3://bucket/b.tar
//	    threads: 16
type BatchFile map[string][]utils.DownloadEntry

func LoadBatch(path string) ([]utils.DownloadEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading batch file: %w", err)
	}
	return ParseBatch(data)
}

func ParseBatch(data []byte) ([]utils.DownloadEntry, error) {
	var batchFile BatchFile
	if err := yaml.Unmarshal(data, &batchFile); err != nil {
		return nil, fmt.Errorf("error parsing batch file: %w", err)
	}
	sections := make([]string, 0, len(batchFile))
	for section := range batchFile {
		sections = append(sections, section)
	}
	sort.Strings(sections)

	var entries []utils.DownloadEntry
	for _, section := range sections {
		scheme := normalizeSection(section)
		if scheme == "" {
			log.Warn().Str("op", "scheduler/batch").Msgf("Unknown section '%s', skipping", section)
			continue
		}
		for _, entry := range batchFile[section] {
			if entry.URL == "" {
				log.Warn().Str("op", "scheduler/batch").Msgf("Empty link found in %s section, skipping", section)
				continue
			}
			if scheme == "s3" && !strings.HasPrefix(entry.URL, "s3://") {
				entry.URL = "s3://" + entry.URL
			}
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid jobs found in the batch file")
	}
	return entries, nil
}

func normalizeSection(section string) string {
	switch strings.ToLower(section) {
	case "http", "https":
		return "http"
	case "s3":
		return "s3"
	default:
		return ""
	}
}

// JobsFromEntries builds engine jobs. An entry's op may be a bare filename or
// a path; a path overrides outputDir for that entry.
func JobsFromEntries(entries []utils.DownloadEntry, outputDir string, threads int) []*engine.DownloadJob {
	jobs := make([]*engine.DownloadJob, 0, len(entries))
	for _, entry := range entries {
		job := &engine.DownloadJob{
			URL:       entry.URL,
			OutputDir: outputDir,
			Threads:   threads,
		}
		if entry.Threads > 0 {
			job.Threads = entry.Threads
		}
		if entry.OutputPath != "" {
			job.OutputFilename = filepath.Base(entry.OutputPath)
			if dir := filepath.Dir(entry.OutputPath); dir != "." {
				job.OutputDir = dir
			}
		}
		jobs = append(jobs, job)
	}
	return jobs
}
