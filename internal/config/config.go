// Package config loads service settings from defaults, an optional file and
// REFIMG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/ukaji3/refimg-go/pkg/refimg"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/ukaji3/refimg-go/pkg/refimg/upload"
)

// EnvPrefix is prepended to every environment variable, e.g. REFIMG_UPLOAD_HOST.
const EnvPrefix = "REFIMG"

type (
	Config struct {
		HTTP       HTTP
		Processing Processing
		Upload     Upload
		History    History
		Log        Log
	}

	HTTP struct {
		Host string
		Port int
		// FileField is the multipart field carrying the workbook.
		FileField       string
		ShutdownTimeout time.Duration
	}
	Processing struct {
		Sheet             string
		ReferenceColumn   string
		ImageColumn       string
		StartRow          int
		InvalidTokens     []string
		MaxFileSize       int64
		AllowedExtensions []string
		InCellImages      bool
		RequestTimeout    time.Duration
		MaxPartSize       int64
		TempDir           string
	}
	Upload struct {
		Backend              string
		Host                 string
		Port                 int
		User                 string
		Password             string
		RemoteBaseDir        string
		PublicBaseURL        string
		Timeout              time.Duration
		MaxConcurrentUploads int
		ConnectRate          float64 // connections per second, 0 = unlimited
		Bucket               string
		UseSSL               bool
		Region               string
		LocalRoot            string
		DisableEPSV          bool
	}
	History struct {
		// Path is the SQLite database file. Empty disables history.
		Path          string
		Retention     time.Duration
		PruneSchedule string // cron spec or descriptor such as "@daily"
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text or json
	}
)

func setDefaults(v *viper.Viper) {
	opts := refimg.DefaultOptions()
	up := upload.DefaultConfig()

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.file_field", "excel_file")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("processing.sheet", "")
	v.SetDefault("processing.reference_column", opts.ReferenceColumn.String())
	v.SetDefault("processing.image_column", opts.ImageColumn.String())
	v.SetDefault("processing.start_row", opts.StartRow)
	v.SetDefault("processing.invalid_tokens", opts.InvalidTokens)
	v.SetDefault("processing.max_file_size", opts.MaxFileSize)
	v.SetDefault("processing.allowed_extensions", opts.AllowedExtensions)
	v.SetDefault("processing.in_cell_images", opts.InCellImages)
	v.SetDefault("processing.request_timeout", opts.RequestTimeout.String())
	v.SetDefault("processing.max_part_size", 0)
	v.SetDefault("processing.temp_dir", "")

	v.SetDefault("upload.backend", up.Backend)
	v.SetDefault("upload.host", "")
	v.SetDefault("upload.port", up.Port)
	v.SetDefault("upload.user", "")
	v.SetDefault("upload.password", "")
	v.SetDefault("upload.remote_base_dir", up.RemoteBaseDir)
	v.SetDefault("upload.public_base_url", "")
	v.SetDefault("upload.timeout", up.UploadTimeout.String())
	v.SetDefault("upload.max_concurrent_uploads", up.MaxConcurrentUploads)
	v.SetDefault("upload.connect_rate", 0)
	v.SetDefault("upload.bucket", "")
	v.SetDefault("upload.use_ssl", true)
	v.SetDefault("upload.region", "")
	v.SetDefault("upload.local_root", "")
	v.SetDefault("upload.disable_epsv", false)

	v.SetDefault("history.path", "")
	v.SetDefault("history.retention", "720h") // 30 days
	v.SetDefault("history.prune_schedule", "@daily")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. path names an optional YAML, TOML or JSON
// file; environment variables override both the file and the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTP: HTTP{
			Host:            v.GetString("http.host"),
			Port:            v.GetInt("http.port"),
			FileField:       v.GetString("http.file_field"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Processing: Processing{
			Sheet:             v.GetString("processing.sheet"),
			ReferenceColumn:   v.GetString("processing.reference_column"),
			ImageColumn:       v.GetString("processing.image_column"),
			StartRow:          v.GetInt("processing.start_row"),
			InvalidTokens:     splitList(v.GetStringSlice("processing.invalid_tokens")),
			MaxFileSize:       v.GetInt64("processing.max_file_size"),
			AllowedExtensions: splitList(v.GetStringSlice("processing.allowed_extensions")),
			InCellImages:      v.GetBool("processing.in_cell_images"),
			RequestTimeout:    v.GetDuration("processing.request_timeout"),
			MaxPartSize:       v.GetInt64("processing.max_part_size"),
			TempDir:           v.GetString("processing.temp_dir"),
		},
		Upload: Upload{
			Backend:              strings.ToLower(v.GetString("upload.backend")),
			Host:                 v.GetString("upload.host"),
			Port:                 v.GetInt("upload.port"),
			User:                 v.GetString("upload.user"),
			Password:             v.GetString("upload.password"),
			RemoteBaseDir:        v.GetString("upload.remote_base_dir"),
			PublicBaseURL:        v.GetString("upload.public_base_url"),
			Timeout:              v.GetDuration("upload.timeout"),
			MaxConcurrentUploads: v.GetInt("upload.max_concurrent_uploads"),
			ConnectRate:          v.GetFloat64("upload.connect_rate"),
			Bucket:               v.GetString("upload.bucket"),
			UseSSL:               v.GetBool("upload.use_ssl"),
			Region:               v.GetString("upload.region"),
			LocalRoot:            v.GetString("upload.local_root"),
			DisableEPSV:          v.GetBool("upload.disable_epsv"),
		},
		History: History{
			Path:          v.GetString("history.path"),
			Retention:     v.GetDuration("history.retention"),
			PruneSchedule: v.GetString("history.prune_schedule"),
		},
		Log: Log{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}
	return cfg, nil
}

// splitList accepts both list values and comma separated strings, so
// REFIMG_PROCESSING_INVALID_TOKENS="TOTAL,SOMA" works like a YAML list.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every impossible value at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http port %d out of range", c.HTTP.Port))
	}
	if c.HTTP.FileField == "" {
		errs = append(errs, errors.New("http file field must not be empty"))
	}
	if _, err := c.ProcessingOptions(); err != nil {
		errs = append(errs, err)
	}
	if err := c.UploadConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("upload: %w", err))
	}
	if c.History.Path != "" && c.History.Retention <= 0 {
		errs = append(errs, fmt.Errorf("history retention must be positive, got %s", c.History.Retention))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ProcessingOptions converts the processing section into pipeline options.
func (c *Config) ProcessingOptions() (refimg.Options, error) {
	p := c.Processing
	refCol, err := models.ParseColumn(p.ReferenceColumn)
	if err != nil {
		return refimg.Options{}, fmt.Errorf("reference column: %w", err)
	}
	imgCol, err := models.ParseColumn(p.ImageColumn)
	if err != nil {
		return refimg.Options{}, fmt.Errorf("image column: %w", err)
	}
	opts := refimg.Options{
		Sheet:             p.Sheet,
		ReferenceColumn:   refCol,
		ImageColumn:       imgCol,
		StartRow:          p.StartRow,
		InvalidTokens:     p.InvalidTokens,
		MaxFileSize:       p.MaxFileSize,
		AllowedExtensions: p.AllowedExtensions,
		InCellImages:      p.InCellImages,
		RequestTimeout:    p.RequestTimeout,
		MaxPartSize:       p.MaxPartSize,
		TempDir:           p.TempDir,
	}
	if err := opts.Validate(); err != nil {
		return refimg.Options{}, fmt.Errorf("processing: %w", err)
	}
	return opts, nil
}

// UploadConfig converts the upload section into uploader settings.
func (c *Config) UploadConfig() upload.Config {
	u := c.Upload
	return upload.Config{
		Backend:              u.Backend,
		Host:                 u.Host,
		Port:                 u.Port,
		User:                 u.User,
		Password:             u.Password,
		RemoteBaseDir:        u.RemoteBaseDir,
		PublicBaseURL:        u.PublicBaseURL,
		UploadTimeout:        u.Timeout,
		MaxConcurrentUploads: u.MaxConcurrentUploads,
		ConnectRate:          u.ConnectRate,
		Bucket:               u.Bucket,
		UseSSL:               u.UseSSL,
		Region:               u.Region,
		LocalRoot:            u.LocalRoot,
		DisableEPSV:          u.DisableEPSV,
	}
}

// Public is the configuration as exposed on GET /config. Credentials are omitted.
type Public struct {
	ReferenceColumn      string   `json:"reference_column"`
	ImageColumn          string   `json:"image_column"`
	StartRow             int      `json:"start_row"`
	Sheet                string   `json:"sheet,omitempty"`
	InvalidTokens        []string `json:"invalid_tokens"`
	MaxFileSize          int64    `json:"max_file_size"`
	AllowedExtensions    []string `json:"allowed_extensions"`
	FileField            string   `json:"file_field"`
	Backend              string   `json:"backend"`
	Host                 string   `json:"host,omitempty"`
	Port                 int      `json:"port,omitempty"`
	RemoteBaseDir        string   `json:"remote_base_dir"`
	PublicBaseURL        string   `json:"public_base_url"`
	MaxConcurrentUploads int      `json:"max_concurrent_uploads"`
	UploadTimeout        string   `json:"upload_timeout"`
	RequestTimeout       string   `json:"request_timeout"`
	HistoryEnabled       bool     `json:"history_enabled"`
}

// Public returns the settings safe to show to clients.
func (c *Config) Public() Public {
	return Public{
		ReferenceColumn:      strings.ToUpper(c.Processing.ReferenceColumn),
		ImageColumn:          strings.ToUpper(c.Processing.ImageColumn),
		StartRow:             c.Processing.StartRow,
		Sheet:                c.Processing.Sheet,
		InvalidTokens:        c.Processing.InvalidTokens,
		MaxFileSize:          c.Processing.MaxFileSize,
		AllowedExtensions:    c.Processing.AllowedExtensions,
		FileField:            c.HTTP.FileField,
		Backend:              c.Upload.Backend,
		Host:                 c.Upload.Host,
		Port:                 c.Upload.Port,
		RemoteBaseDir:        c.Upload.RemoteBaseDir,
		PublicBaseURL:        c.Upload.PublicBaseURL,
		MaxConcurrentUploads: c.Upload.MaxConcurrentUploads,
		UploadTimeout:        c.Upload.Timeout.String(),
		RequestTimeout:       c.Processing.RequestTimeout.String(),
		HistoryEnabled:       c.History.Path != "",
	}
}
