package cmd

import (
	"context"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanq16/rawst/internal/config"
	"github.com/tanq16/rawst/internal/downloaders"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/history"
	"github.com/tanq16/rawst/internal/output"
	"github.com/tanq16/rawst/internal/utils"
)

var (
	cfgFile       string
	debug         bool
	noLogFile     bool
	threads       int
	workers       int
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	headers       []string
	retries       int
	s3Profile     string

	cfg *config.Config

	// closers are closed in reverse order before the process exits.
	closers []io.Closer
)

var RawstVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "rawst",
	Short:   "Rawst downloads files over parallel byte-range connections",
	Version: RawstVersion,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fail("Error loading configuration", err)
		}
		applyFlagOverrides(cmd)
		if err := cfg.Validate(); err != nil {
			fail("Invalid options", err)
		}
		utils.InitLogger(debug, openLogFile())
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	closeAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func closeAll() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close()
	}
	closers = nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/rawst/config.toml)")
	flags.IntVarP(&threads, "threads", "t", 1, "Number of parallel connections per download")
	flags.IntVarP(&workers, "workers", "w", 1, "Number of downloads to run at once")
	flags.DurationVar(&timeout, "timeout", 3*time.Minute, "Per-request timeout (eg. 5s, 10m)")
	flags.DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	flags.StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent (\"randomize\" picks a browser agent)")
	flags.StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	flags.StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	flags.StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	flags.StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic dXNlcjpwYXNz'); can be specified multiple times")
	flags.IntVar(&retries, "retries", 3, "Retries per chunk before the download fails")
	flags.StringVar(&s3Profile, "profile", "", "AWS profile for s3:// URLs")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&noLogFile, "no-log-file", false, "Do not write a log file for this run")

	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newInfoCmd())
}

// applyFlagOverrides copies explicitly set flags over config file values.
func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout.String()
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.HTTP.KeepAlive = kaTimeout.String()
	}
	if flags.Changed("user-agent") {
		cfg.HTTP.UserAgent = userAgent
	}
	if cfg.HTTP.UserAgent == "randomize" {
		cfg.HTTP.UserAgent = utils.GetRandomUserAgent()
	}
	if flags.Changed("proxy") {
		cfg.HTTP.Proxy = proxyURL
	}
	if flags.Changed("proxy-username") {
		cfg.HTTP.ProxyUsername = proxyUsername
	}
	if flags.Changed("proxy-password") {
		cfg.HTTP.ProxyPassword = proxyPassword
	}
	// Check if proxy URL contains auth
	parsedProxy, err := u.Parse(cfg.HTTP.Proxy)
	if err == nil && parsedProxy.User != nil && cfg.HTTP.ProxyUsername == "" {
		cfg.HTTP.ProxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			cfg.HTTP.ProxyPassword = password
		}
		parsedProxy.User = nil
		cfg.HTTP.Proxy = parsedProxy.String()
	}
	if flags.Changed("header") {
		cfg.HTTP.Headers = append(cfg.HTTP.Headers, headers...)
	}
	if flags.Changed("retries") {
		cfg.Retry.Attempts = retries
	}
	if flags.Changed("profile") {
		cfg.S3.Profile = s3Profile
	}
}

// openLogFile returns nil when no log file can be used.
func openLogFile() io.Writer {
	if noLogFile {
		return nil
	}
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil
	}
	logFile, err := os.OpenFile(cfg.LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	closers = append(closers, logFile)
	return logFile
}

// newEngine wires the configured sources, history backend and retry policy.
// The store is closed on exit.
func newEngine(ctx context.Context) (*engine.Engine, history.Store) {
	store, err := history.Open(cfg.History.Backend, cfg.HistoryPath())
	if err != nil {
		fail("Error opening history", err)
	}
	closers = append(closers, store)
	eng := engine.New(engine.Options{
		Resolve: downloaders.NewResolver(ctx, cfg.HTTPClientConfig(), cfg.S3.Profile),
		History: store,
		Retry:   cfg.RetryPolicy(),
	})
	return eng, store
}

func tempDir() string {
	return filepath.Join(cfg.CacheDir, "chunks")
}

func fail(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	output.PrintError(msg)
	closeAll()
	os.Exit(1)
}
