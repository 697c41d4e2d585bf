package client

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every client environment variable.
const EnvPrefix = "STUDIO"

// Config tunes the client side: where the API lives, how long calls may take
// and where the credential lease is persisted between CLI invocations.
// Values come from STUDIO_* environment variables.
type Config struct {
	APIURL             string        `envconfig:"API_URL"              default:"http://localhost:8080/api/v1"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT"         default:"15s"`
	TokenFile          string        `envconfig:"TOKEN_FILE"`
	SessionInitTimeout time.Duration `envconfig:"SESSION_INIT_TIMEOUT" default:"1s"`
	// RedirectURL is handed to sign-up and OAuth as the post-auth landing page.
	RedirectURL string `envconfig:"REDIRECT_URL"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`
	Debug       bool   `envconfig:"DEBUG"`

	// GeminiAPIKey switches refinement from the built-in template to Gemini.
	// Read from STUDIO_GEMINI_API_KEY, then GEMINI_API_KEY.
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash-latest"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return Config{}, err
	}
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile()
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	return c, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "prompt-studio", "session.json")
}
