package internal

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Config holds application settings
type Config struct {
	// Runtime
	Env     string
	Verbose bool
	Quiet   bool
	MCPLog  bool

	// LLM
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Model           string
	Temperature     float64
	MaxTokens       int64
	GenerateTimeout time.Duration
	Prompt          string
	SystemPrompt    string

	// Media
	MediaRoot      string
	MediaURL       string
	FFmpegPath     string
	FFprobePath    string
	VideoCodec     string
	AudioCodec     string
	ClipWorkers    int
	ClipTimeout    time.Duration
	MaxUploadBytes int64

	// HTTP
	HTTPAddr          string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	BootstrapToken    string

	// Storage
	DataBackend       string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
	TempDir   string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

const appName = "tutorly"

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig writes the embedded config.toml to the config directory if missing
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt writes the embedded prompt.txt to the config directory if missing
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig initializes Viper and loads configuration
func InitConfig(configFile string) *Config {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	configDir := filepath.Join(xdg.ConfigHome, appName)
	dataDir := filepath.Join(xdg.DataHome, appName)
	cacheDir := filepath.Join(xdg.CacheHome, appName)
	tempDir := filepath.Join(cacheDir, "tmp")

	v := viper.New()

	v.SetDefault("env", "development")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("mcp_log", false)

	v.SetDefault("openai_base_url", "")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2000)
	v.SetDefault("generate_timeout", 2*time.Minute)
	v.SetDefault("prompt", "") // if empty will use prompt.txt from the config dir
	v.SetDefault("system_prompt", DefaultSystemPrompt)

	v.SetDefault("media_root", filepath.Join(dataDir, "media"))
	v.SetDefault("media_url", "/media")
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("video_codec", "libx264")
	v.SetDefault("audio_codec", "aac")
	v.SetDefault("clip_workers", 2)
	v.SetDefault("clip_timeout", 5*time.Minute)
	v.SetDefault("max_upload_bytes", int64(1<<30))

	v.SetDefault("http_addr", ":8000")
	v.SetDefault("read_header_timeout", 5*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("bootstrap_token", "")

	v.SetDefault("data_backend", "memory")
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", time.Hour)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TUTORLY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Special case for OpenAI API Key - check both Viper and direct env var
	_ = v.BindEnv("openai_api_key", "TUTORLY_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("database_url", "TUTORLY_DATABASE_URL", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	config := &Config{
		Env:     v.GetString("env"),
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		MCPLog:  v.GetBool("mcp_log"),

		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		Model:           v.GetString("model"),
		Temperature:     v.GetFloat64("temperature"),
		MaxTokens:       v.GetInt64("max_tokens"),
		GenerateTimeout: v.GetDuration("generate_timeout"),
		Prompt:          v.GetString("prompt"),
		SystemPrompt:    v.GetString("system_prompt"),

		MediaRoot:      v.GetString("media_root"),
		MediaURL:       strings.TrimRight(v.GetString("media_url"), "/"),
		FFmpegPath:     v.GetString("ffmpeg_path"),
		FFprobePath:    v.GetString("ffprobe_path"),
		VideoCodec:     v.GetString("video_codec"),
		AudioCodec:     v.GetString("audio_codec"),
		ClipWorkers:    v.GetInt("clip_workers"),
		ClipTimeout:    v.GetDuration("clip_timeout"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),

		HTTPAddr:          v.GetString("http_addr"),
		ReadHeaderTimeout: v.GetDuration("read_header_timeout"),
		ShutdownTimeout:   v.GetDuration("shutdown_timeout"),
		BootstrapToken:    v.GetString("bootstrap_token"),

		DataBackend:       v.GetString("data_backend"),
		DatabaseURL:       v.GetString("database_url"),
		DBMaxOpenConns:    v.GetInt("db_max_open_conns"),
		DBMaxIdleConns:    v.GetInt("db_max_idle_conns"),
		DBConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
		TempDir:   tempDir,
	}

	if config.Verbose && v.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	return config
}

// Validate checks settings that every command depends on
func (c *Config) Validate() error {
	switch c.DataBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required when data_backend=postgres")
		}
	default:
		return fmt.Errorf("unknown data_backend value: %s", c.DataBackend)
	}
	if c.MediaRoot == "" {
		return fmt.Errorf("media_root is required")
	}
	if c.ClipWorkers < 1 {
		c.ClipWorkers = 1
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	return nil
}
