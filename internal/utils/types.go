package utils

type DownloadEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	URL        string `yaml:"link"`
	Threads    int    `yaml:"threads,omitempty"`
}
