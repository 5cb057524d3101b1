package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort            = 8080
	DefaultHost            = "127.0.0.1"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultMaxDocumentSize = 10 * 1024 * 1024 // 10MB
	DefaultPrintCommand    = "lp"
	DefaultExportWorkers   = 4
	DefaultMaxRecords      = 10000
	DefaultOfficeID        = "default"
	DefaultURLExpiry       = 24 * time.Hour

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "RENTAL_CONTRACT"
)

// Config holds all configuration for the rental contract server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Delivery configuration
	OutputDirectory string
	PrintCommand    string
	PrintArgs       []string
	ExportWorkers   int

	// Optional S3 compatible storage for downloads
	Storage StorageConfig

	// Contract configuration
	LayoutFile      string // empty uses the built-in layout
	OfficeID        string
	MaxRecords      int
	MaxDocumentSize int64 // Maximum size of a document passed in by a client

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	LogFormat  string // "console" or "json"
	LogFile    string // empty logs to stderr
}

// StorageConfig configures the object storage download target.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
	URLExpiry time.Duration
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio, // Default to stdio mode for MCP compatibility
		Host:            DefaultHost,
		Port:            DefaultPort,
		OutputDirectory: filepath.Join(currentDir, "sozlesmeler"),
		PrintCommand:    DefaultPrintCommand,
		ExportWorkers:   DefaultExportWorkers,
		Storage:         StorageConfig{URLExpiry: DefaultURLExpiry},
		OfficeID:        DefaultOfficeID,
		MaxRecords:      DefaultMaxRecords,
		MaxDocumentSize: DefaultMaxDocumentSize,
		Version:         "1.0.0",
		ServerName:      "mcp-rental-contract",
		LogLevel:        DefaultLogLevel,
		LogFormat:       DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flag names double as viper keys; RENTAL_CONTRACT_<NAME> with dashes
// replaced by underscores sets them from the environment
const (
	keyMode          = "mode"
	keyHost          = "host"
	keyPort          = "port"
	keyOutputDir     = "output-dir"
	keyPrintCommand  = "print-command"
	keyPrintArgs     = "print-args"
	keyExportWorkers = "export-workers"
	keyLayout        = "layout"
	keyOffice        = "office"
	keyMaxRecords    = "max-records"
	keyMaxDocSize    = "max-document-size"
	keyLogLevel      = "log-level"
	keyLogFormat     = "log-format"
	keyLogFile       = "log-file"
	keyS3Endpoint    = "s3-endpoint"
	keyS3AccessKey   = "s3-access-key"
	keyS3SecretKey   = "s3-secret-key"
	keyS3Bucket      = "s3-bucket"
	keyS3Region      = "s3-region"
	keyS3Prefix      = "s3-prefix"
	keyS3UseSSL      = "s3-use-ssl"
	keyS3URLExpiry   = "s3-url-expiry"
)

var allKeys = []string{
	keyMode, keyHost, keyPort, keyOutputDir, keyPrintCommand, keyPrintArgs, keyExportWorkers,
	keyLayout, keyOffice, keyMaxRecords, keyMaxDocSize, keyLogLevel, keyLogFormat, keyLogFile,
	keyS3Endpoint, keyS3AccessKey, keyS3SecretKey, keyS3Bucket, keyS3Region, keyS3Prefix,
	keyS3UseSSL, keyS3URLExpiry,
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(keyMode, cfg.Mode)
	viper.SetDefault(keyHost, cfg.Host)
	viper.SetDefault(keyPort, cfg.Port)
	viper.SetDefault(keyOutputDir, cfg.OutputDirectory)
	viper.SetDefault(keyPrintCommand, cfg.PrintCommand)
	viper.SetDefault(keyPrintArgs, cfg.PrintArgs)
	viper.SetDefault(keyExportWorkers, cfg.ExportWorkers)
	viper.SetDefault(keyLayout, cfg.LayoutFile)
	viper.SetDefault(keyOffice, cfg.OfficeID)
	viper.SetDefault(keyMaxRecords, cfg.MaxRecords)
	viper.SetDefault(keyMaxDocSize, cfg.MaxDocumentSize)
	viper.SetDefault(keyLogLevel, cfg.LogLevel)
	viper.SetDefault(keyLogFormat, cfg.LogFormat)
	viper.SetDefault(keyLogFile, cfg.LogFile)
	viper.SetDefault(keyS3URLExpiry, cfg.Storage.URLExpiry)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String(keyMode, cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String(keyHost, cfg.Host, "Server host address (server mode only)")
	pflag.Int(keyPort, cfg.Port, "Server port (server mode only)")
	pflag.String(keyOutputDir, cfg.OutputDirectory, "Directory downloaded contracts are saved to")
	pflag.String(keyPrintCommand, cfg.PrintCommand, "Command that prints a PDF file given as its last argument")
	pflag.StringSlice(keyPrintArgs, cfg.PrintArgs, "Extra arguments for the print command")
	pflag.Int(keyExportWorkers, cfg.ExportWorkers, "Documents processed concurrently during export")
	pflag.String(keyLayout, cfg.LayoutFile, "YAML file overriding the built-in contract layout")
	pflag.String(keyOffice, cfg.OfficeID, "Office id used when a request names none")
	pflag.Int(keyMaxRecords, cfg.MaxRecords, "Maximum number of contracts kept in memory")
	pflag.Int64(keyMaxDocSize, cfg.MaxDocumentSize, "Maximum size in bytes of a document sent by a client")
	pflag.String(keyLogLevel, cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String(keyLogFormat, cfg.LogFormat, "Log format (console, json)")
	pflag.String(keyLogFile, cfg.LogFile, "Append logs to this file instead of stderr")
	pflag.String(keyS3Endpoint, "", "S3 compatible endpoint for downloads (host:port); empty disables")
	pflag.String(keyS3AccessKey, "", "S3 access key")
	pflag.String(keyS3SecretKey, "", "S3 secret key")
	pflag.String(keyS3Bucket, "", "S3 bucket")
	pflag.String(keyS3Region, "", "S3 region")
	pflag.String(keyS3Prefix, "", "Object name prefix inside the bucket")
	pflag.Bool(keyS3UseSSL, false, "Use TLS for the S3 endpoint")
	pflag.Duration(keyS3URLExpiry, cfg.Storage.URLExpiry, "Lifetime of presigned download links")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range allKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Rental Contract - A Model Context Protocol server for rental contract documents\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          # stdio mode (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --output-dir=/srv/contracts              # custom download directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081                # SSE server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --print-command=lp --print-args=-d,ofis  # print to a named queue\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every option can be set as %s_<OPTION>, for example\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_OUTPUT_DIR or %s_S3_ENDPOINT.\n", envPrefix, envPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString(keyMode)
	cfg.Host = viper.GetString(keyHost)
	cfg.Port = viper.GetInt(keyPort)
	cfg.OutputDirectory = viper.GetString(keyOutputDir)
	cfg.PrintCommand = viper.GetString(keyPrintCommand)
	cfg.PrintArgs = viper.GetStringSlice(keyPrintArgs)
	cfg.ExportWorkers = viper.GetInt(keyExportWorkers)
	cfg.LayoutFile = viper.GetString(keyLayout)
	cfg.OfficeID = viper.GetString(keyOffice)
	cfg.MaxRecords = viper.GetInt(keyMaxRecords)
	cfg.MaxDocumentSize = viper.GetInt64(keyMaxDocSize)
	cfg.LogLevel = viper.GetString(keyLogLevel)
	cfg.LogFormat = viper.GetString(keyLogFormat)
	cfg.LogFile = viper.GetString(keyLogFile)
	cfg.Storage = StorageConfig{
		Endpoint:  viper.GetString(keyS3Endpoint),
		AccessKey: viper.GetString(keyS3AccessKey),
		SecretKey: viper.GetString(keyS3SecretKey),
		Bucket:    viper.GetString(keyS3Bucket),
		Region:    viper.GetString(keyS3Region),
		Prefix:    viper.GetString(keyS3Prefix),
		UseSSL:    viper.GetBool(keyS3UseSSL),
		URLExpiry: viper.GetDuration(keyS3URLExpiry),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}

	// Check if output directory exists, create if it doesn't
	if _, err := os.Stat(c.OutputDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access output directory %s: %w", c.OutputDirectory, err)
	}

	if c.LayoutFile != "" {
		if _, err := os.Stat(c.LayoutFile); err != nil {
			return fmt.Errorf("cannot read layout file %s: %w", c.LayoutFile, err)
		}
	}

	if c.PrintCommand == "" {
		return errors.New("print command cannot be empty")
	}
	if c.ExportWorkers < 1 {
		return errors.New("export workers must be at least 1")
	}
	if c.MaxRecords < 0 {
		return errors.New("maximum records cannot be negative")
	}
	if c.MaxDocumentSize <= 0 {
		return errors.New("maximum document size must be positive")
	}
	if c.OfficeID == "" {
		return errors.New("office id cannot be empty")
	}

	if c.Storage.Enabled() {
		if c.Storage.Bucket == "" {
			return errors.New("s3 bucket is required when an s3 endpoint is set")
		}
		if c.Storage.URLExpiry <= 0 || c.Storage.URLExpiry > 7*24*time.Hour {
			return errors.New("s3 url expiry must be between 1s and 7 days")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.LogFormat)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. Secrets
// are left out.
func (c *Config) String() string {
	storage := "disabled"
	if c.Storage.Enabled() {
		storage = c.Storage.Endpoint + "/" + c.Storage.Bucket
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, OutputDirectory: %s, PrintCommand: %s, "+
		"Storage: %s, Office: %s, LogLevel: %s, LogFormat: %s}",
		c.Mode, c.Host, c.Port, c.OutputDirectory, c.PrintCommand,
		storage, c.OfficeID, c.LogLevel, c.LogFormat)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
