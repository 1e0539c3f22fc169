// =============================================================================
// Submission Merger - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the application
// configuration. Everything the pipeline used to read from globals (sheet
// names, column positions, category rules) lives in one Config value that is
// passed to each component at construction.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (see setDefaults)
//   2. YAML file (--config, default config.yaml; optional)
//   3. Environment variables prefixed MERGER_ (e.g. MERGER_STORE_PATH)
//
// =============================================================================

package config

import (
	"os"
	"strings"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MERGER"

// Store drivers.
const (
	DriverWorkbook = "workbook"
	DriverSQLite   = "sqlite"
)

// Source kinds.
const (
	SourceDir    = "dir"
	SourceExport = "export"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the full application configuration.
type Config struct {
	// OutputDir receives error logs and run summaries.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`

	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Source      SourceConfig      `yaml:"source" mapstructure:"source"`
	Submissions SubmissionsConfig `yaml:"submissions" mapstructure:"submissions"`
	Grouping    GroupingConfig    `yaml:"grouping" mapstructure:"grouping"`
	Merge       MergeConfig       `yaml:"merge" mapstructure:"merge"`
	Report      ReportConfig      `yaml:"report" mapstructure:"report"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects where merged, payment and submission tables live.
type StoreConfig struct {
	// Driver is "workbook" (one .xlsx file, one sheet per table) or "sqlite".
	Driver string `yaml:"driver" mapstructure:"driver"`

	// Path is the workbook file or SQLite database path.
	Path string `yaml:"path" mapstructure:"path"`
}

// SourceConfig selects how submitted documents are fetched.
type SourceConfig struct {
	// Kind is "dir" (local exports named by document ID) or "export"
	// (download each document as xlsx over HTTP).
	Kind string `yaml:"kind" mapstructure:"kind"`

	// Dir is the directory searched by the "dir" source.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// ExportURL is a format string with one %s for the document ID.
	ExportURL string `yaml:"export_url" mapstructure:"export_url"`

	// TimeoutSecs bounds a single document download.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`

	// RequestsPerMinute throttles the "export" source.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// SubmissionsConfig describes the pending-submission log table.
type SubmissionsConfig struct {
	// Table is the store table holding pending submissions.
	// Default: "Submissions"
	Table string `yaml:"table" mapstructure:"table"`

	// Columns says which column holds which submission field.
	Columns SubmissionColumns `yaml:"columns" mapstructure:"columns"`
}

// SubmissionColumns defines which columns of the submission log contain which
// field. Column indices are 0-based (A=0, B=1, C=2, etc.)
//
// CUSTOMIZATION: Modify these values if the log is laid out differently.
type SubmissionColumns struct {
	SourceURL      int `yaml:"source_url" mapstructure:"source_url"`
	Pin            int `yaml:"pin" mapstructure:"pin"`
	PaymentMethod  int `yaml:"payment_method" mapstructure:"payment_method"`
	PaymentNumber  int `yaml:"payment_number" mapstructure:"payment_number"`
	UserID         int `yaml:"user_id" mapstructure:"user_id"`
	Timestamp      int `yaml:"timestamp" mapstructure:"timestamp"`
	SubmissionType int `yaml:"submission_type" mapstructure:"submission_type"`

	// HeaderRows is the number of rows above the first submission.
	// Default: 1
	HeaderRows int `yaml:"header_rows" mapstructure:"header_rows"`
}

// GroupingConfig holds the rules that map a submission type label to its
// category. Rules are checked in order and the first match wins.
type GroupingConfig struct {
	Rules []CategoryRule `yaml:"rules" mapstructure:"rules"`

	// Fallback is the category for labels no rule matches.
	// Default: "Unknown"
	Fallback string `yaml:"fallback" mapstructure:"fallback"`
}

// CategoryRule maps a substring of the submission type to a category.
type CategoryRule struct {
	// IfTypeContains is the substring to look for in the type label.
	IfTypeContains string `yaml:"if_type_contains" mapstructure:"if_type_contains"`

	// Category is the group name (and the table suffix) for matching labels.
	Category string `yaml:"category" mapstructure:"category"`
}

// MergeConfig configures the merge command.
type MergeConfig struct {
	// SourceSheet is the sheet read from every submitted document.
	// Default: "Sheet1"
	SourceSheet string `yaml:"source_sheet" mapstructure:"source_sheet"`

	// ClearSubmissions removes consumed submissions from the log after a run.
	// Default: true
	ClearSubmissions bool `yaml:"clear_submissions" mapstructure:"clear_submissions"`

	// DateFormat is the Go layout used for the "<date> <type>" table names.
	// Default: "2006-01-02"
	DateFormat string `yaml:"date_format" mapstructure:"date_format"`
}

// ReportConfig configures the report command.
type ReportConfig struct {
	// Sheet is the sheet read from the report document. Empty means the
	// first sheet.
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// =============================================================================
// LOADING
// =============================================================================

// setDefaults registers the default value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "./output")
	v.SetDefault("store.driver", DriverWorkbook)
	v.SetDefault("store.path", "./merger.xlsx")
	v.SetDefault("source.kind", SourceDir)
	v.SetDefault("source.dir", "./sources")
	v.SetDefault("source.export_url", "https://docs.google.com/spreadsheets/d/%s/export?format=xlsx")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("source.requests_per_minute", 60)
	v.SetDefault("submissions.table", "Submissions")
	v.SetDefault("submissions.columns.source_url", 0)
	v.SetDefault("submissions.columns.pin", 1)
	v.SetDefault("submissions.columns.payment_method", 2)
	v.SetDefault("submissions.columns.payment_number", 3)
	v.SetDefault("submissions.columns.user_id", 4)
	v.SetDefault("submissions.columns.timestamp", 5)
	v.SetDefault("submissions.columns.submission_type", 6)
	v.SetDefault("submissions.columns.header_rows", 1)
	v.SetDefault("grouping.rules", []map[string]any{
		{"if_type_contains": "0 FD", "category": "0 FD"},
		{"if_type_contains": "30 FD", "category": "30 FD"},
	})
	v.SetDefault("grouping.fallback", "Unknown")
	v.SetDefault("merge.source_sheet", "Sheet1")
	v.SetDefault("merge.clear_submissions", true)
	v.SetDefault("merge.date_format", "2006-01-02")
	v.SetDefault("report.sheet", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it.
//
// PARAMETERS:
//   - path: The config file. A missing file is not an error; defaults and
//     environment still apply.
//
// RETURNS:
//   - The loaded configuration.
//   - An error if the file is unreadable, malformed, or fails validation.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, eris.Wrapf(err, "config: read %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "config: stat %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "config: invalid")
	}

	return &cfg, nil
}

// Default returns the built-in configuration without consulting any file.
// Environment overrides still apply.
func Default() (*Config, error) {
	return Load("")
}

// WriteDefault writes the built-in configuration as YAML to path so that it
// can be edited. Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	cfg, err := Default()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal defaults")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrapf(err, "config: write %s", path)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration. Nested sections validate themselves.
// The workbook driver additionally needs every table name to be a legal
// sheet name.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.Store),
		validation.Field(&c.Source),
		validation.Field(&c.Submissions),
		validation.Field(&c.Grouping),
		validation.Field(&c.Merge),
		validation.Field(&c.Log),
	)
	if err != nil || c.Store.Driver != DriverWorkbook {
		return err
	}
	return c.validateSheetNames()
}

// PaymentCategory is the table suffix of a date's payment table.
const PaymentCategory = "Payment"

// Sheet name limits of the workbook store.
const (
	maxSheetName      = 31
	invalidSheetChars = `:\/?*[]`
)

// sheetNameDate renders DateFormat at its widest: a two-digit day and month,
// the longest month and weekday names, and a two-digit hour.
var sheetNameDate = time.Date(2024, time.September, 25, 23, 59, 59, 0, time.UTC)

// validateSheetNames checks the "<date> <category>" table names the merge and
// report commands create, and the submissions table.
func (c Config) validateSheetNames() error {
	date := sheetNameDate.Format(c.Merge.DateFormat)

	errs := validation.Errors{
		"submissions": checkSheetName(c.Submissions.Table),
		"merge":       checkSheetName(date + " " + PaymentCategory),
	}

	categories := []string{c.Grouping.Fallback}
	for _, rule := range c.Grouping.Rules {
		categories = append(categories, rule.Category)
	}
	for _, category := range categories {
		if err := checkSheetName(date + " " + category); err != nil {
			errs["grouping"] = err
			break
		}
	}
	return errs.Filter()
}

// checkSheetName reports why name cannot be a workbook sheet name.
func checkSheetName(name string) error {
	if n := utf8.RuneCountInString(name); n > maxSheetName {
		return eris.Errorf("sheet name %q is %d characters; the workbook limit is %d", name, n, maxSheetName)
	}
	if i := strings.IndexAny(name, invalidSheetChars); i >= 0 {
		return eris.Errorf("sheet name %q contains %q", name, name[i])
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return eris.Errorf("sheet name %q starts or ends with an apostrophe", name)
	}
	return nil
}

// Validate checks the store section.
func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverWorkbook, DriverSQLite)),
		validation.Field(&s.Path, validation.Required),
	)
}

// Validate checks the source section.
func (s SourceConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Kind, validation.Required, validation.In(SourceDir, SourceExport)),
		validation.Field(&s.Dir, validation.When(s.Kind == SourceDir, validation.Required)),
		validation.Field(&s.ExportURL, validation.When(s.Kind == SourceExport,
			validation.Required,
			validation.By(func(value interface{}) error {
				if !strings.Contains(value.(string), "%s") {
					return eris.New("must contain %s for the document id")
				}
				return nil
			}),
		)),
		validation.Field(&s.TimeoutSecs, validation.Min(0)),
		validation.Field(&s.RequestsPerMinute, validation.Min(0)),
	)
}

// Validate checks the submissions section.
func (s SubmissionsConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Table, validation.Required),
		validation.Field(&s.Columns),
	)
}

// Validate checks that every column index is usable.
func (c SubmissionColumns) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SourceURL, validation.Min(0)),
		validation.Field(&c.Pin, validation.Min(0)),
		validation.Field(&c.PaymentMethod, validation.Min(0)),
		validation.Field(&c.PaymentNumber, validation.Min(0)),
		validation.Field(&c.UserID, validation.Min(0)),
		validation.Field(&c.Timestamp, validation.Min(0)),
		validation.Field(&c.SubmissionType, validation.Min(0)),
		validation.Field(&c.HeaderRows, validation.Min(0)),
	)
}

// Validate checks the grouping section.
func (g GroupingConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Rules, validation.Each(validation.By(func(value interface{}) error {
			rule, _ := value.(CategoryRule)
			if rule.IfTypeContains == "" || rule.Category == "" {
				return eris.New("if_type_contains and category are required")
			}
			return nil
		}))),
		validation.Field(&g.Fallback, validation.Required),
	)
}

// Validate checks the merge section.
func (m MergeConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.SourceSheet, validation.Required),
		validation.Field(&m.DateFormat, validation.Required),
	)
}

// Validate checks the log section.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required),
		validation.Field(&l.Format, validation.In("console", "json")),
	)
}

// =============================================================================
// LOGGING
// =============================================================================

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
