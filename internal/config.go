package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/listing"
	"github.com/starford/ljbook/internal/models"
	pkgconfig "github.com/starford/ljbook/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App          ApplicationConfig `yaml:"app"`
	Blog         BlogConfig        `yaml:"blog"`
	DateRange    DateRangeConfig   `yaml:"date_range"`
	IncludedTags []string          `yaml:"included_tags"`
	ExcludedTags []string          `yaml:"excluded_tags"`
	Output       OutputConfig      `yaml:"output"`
	Scraping     ScrapingConfig    `yaml:"scraping"`
	Build        BuildConfig       `yaml:"build"`
	SQLite       SQLiteConfig      `yaml:"sqlite"`
	Auth         AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration. Every failure is an
// *apperr.ConfigError.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Blog, &c.DateRange, &c.Output, &c.Scraping, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return &apperr.ConfigError{Err: err}
		}
	}
	err := validation.ValidateStruct(c,
		validation.Field(&c.IncludedTags, validation.Each(validation.By(nonBlankTag))),
		validation.Field(&c.ExcludedTags, validation.Each(validation.By(nonBlankTag))),
	)
	if err != nil {
		return &apperr.ConfigError{Err: err}
	}
	return nil
}

func nonBlankTag(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("tag must not be blank")
	}
	return nil
}

// LoadConfig reads path (or defaultPath when path does not exist) over the
// defaults and validates the result. Unreadable files, malformed YAML and
// failed validation are all reported as *apperr.ConfigError.
func LoadConfig(path, defaultPath string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(path, defaultPath, cfg); err != nil {
		var ce *apperr.ConfigError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, &apperr.ConfigError{Err: err}
	}
	return cfg, nil
}

// ConflictingTags returns tags listed both as included and excluded.
// Such a tag never admits a post, since exclusion wins.
func (c *Config) ConflictingTags() []string {
	excluded := models.NormalizeTags(c.ExcludedTags)
	var out []string
	for _, t := range models.NormalizeTags(c.IncludedTags) {
		if _, found := slices.BinarySearch(excluded, t); found {
			out = append(out, t)
		}
	}
	return out
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BlogConfig names the journal and how to sign in to it.
type BlogConfig struct {
	URL      string `yaml:"url"`
	Login    bool   `yaml:"login"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	LoginURL string `yaml:"login_url"`
}

// Validate validates the blog configuration.
func (c *BlogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.LoginURL, validation.By(absoluteURL)),
		validation.Field(&c.Username, validation.When(c.Login, validation.Required)),
		validation.Field(&c.Password, validation.When(c.Login, validation.Required)),
	)
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

// DateRangeConfig bounds the posts to collect. Both ends are inclusive
// YYYY-MM-DD dates; an empty end means today.
type DateRangeConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Validate validates the date range.
func (c *DateRangeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Start, validation.Required, validation.Date(models.DateLayout)),
		validation.Field(&c.End, validation.Date(models.DateLayout)),
	); err != nil {
		return err
	}
	start, end, err := c.Dates(time.Now())
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("date_range: start %s is after end %s", start, end)
	}
	return nil
}

// Dates parses the range, substituting now for an empty end.
func (c *DateRangeConfig) Dates(now time.Time) (start, end models.Date, err error) {
	start, err = models.ParseDate(c.Start)
	if err != nil {
		return start, end, err
	}
	if c.End == "" {
		return start, models.DateOf(now), nil
	}
	end, err = models.ParseDate(c.End)
	return start, end, err
}

// OutputConfig holds where posts and books are written. Posts go to
// <dir>/<journal>/.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	BookDir string `yaml:"book_dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.BookDir, validation.Required),
	)
}

// ScrapingConfig controls crawling behaviour.
type ScrapingConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	MaxPages       int           `yaml:"max_pages"`
	PageSize       int           `yaml:"page_size"`
	Strategy       string        `yaml:"strategy"`
	UserAgent      string        `yaml:"user_agent"`
	RespectRobots  bool          `yaml:"respect_robots"`
}

// Validate validates the scraping configuration.
func (c *ScrapingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.RequestDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxPages, validation.Min(0)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Strategy, validation.In(listing.StrategyAuto, listing.StrategyListing, listing.StrategyArchive)),
	)
}

// Fetch returns the fetcher settings.
func (c *ScrapingConfig) Fetch() fetch.Config {
	return fetch.Config{
		UserAgent:     c.UserAgent,
		Timeout:       c.RequestTimeout,
		Delay:         c.RequestDelay,
		MaxRetries:    c.MaxRetries,
		RespectRobots: c.RespectRobots,
	}
}

// BuildConfig holds book metadata. Stylesheet is a path to a CSS file that
// replaces the built-in one.
type BuildConfig struct {
	Title      string `yaml:"title"`
	Author     string `yaml:"author"`
	Language   string `yaml:"language"`
	Stylesheet string `yaml:"stylesheet"`
}

// SQLiteConfig holds SQLite database configuration. An empty path disables
// the post index during scrape; serve and mcp require it.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Blog: BlogConfig{
			LoginURL: fetch.DefaultLoginURL,
		},
		Output: OutputConfig{
			Dir:     "./posts",
			BookDir: "./books",
		},
		Scraping: ScrapingConfig{
			MaxRetries:     3,
			RequestTimeout: 30 * time.Second,
			RequestDelay:   2 * time.Second,
			PageSize:       listing.DefaultPageSize,
			Strategy:       listing.StrategyAuto,
			UserAgent:      fetch.DefaultUserAgent,
		},
		Build: BuildConfig{
			Language: "ru",
		},
		SQLite: SQLiteConfig{
			Path: "./ljbook.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
