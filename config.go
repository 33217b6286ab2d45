package docviz

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the docviz engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.docviz/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "docviz". The file will be <DBName>.db inside the
	// storage directory (~/.docviz/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.docviz/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers. Generation drives the visualization conversation.
	// Classification handles upload-time extraction and needs a model that
	// accepts inline file parts (images, PDFs); it defaults to Generation
	// when unset. Extraction serves the table-export fallback and defaults
	// to Generation as well.
	Generation     LLMConfig `json:"generation" yaml:"generation"`
	Classification LLMConfig `json:"classification" yaml:"classification"`
	Extraction     LLMConfig `json:"extraction" yaml:"extraction"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openai, gemini, openrouter, ollama, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for Gemini-backed
// generation. Database is stored in ~/.docviz/docviz.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "docviz",
		StorageDir: "home",
		Generation: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
		},
	}
}

// resolveDBPath determines the database location: explicit DBPath wins,
// then DBName inside the storage directory, then the default.
func (c Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "docviz"
	}

	if c.StorageDir == "local" {
		return name + ".db"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return name + ".db"
	}
	dir := filepath.Join(home, ".docviz")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return name + ".db"
	}
	return filepath.Join(dir, name+".db")
}
