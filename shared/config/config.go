package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	DataDir          string        `yaml:"data_dir" validate:"required"`
	LogLevel         string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogJSON          bool          `yaml:"log_json"`
	SnapshotBackend  string        `yaml:"snapshot_backend" validate:"required,oneof=fs pg"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" validate:"required,gt=0"`
	OpsAddr          string        `yaml:"ops_addr" validate:"required"`

	AllowReplyToDeleted bool `yaml:"allow_reply_to_deleted"` // replies land in soft-deleted threads
	MaxNameLength       int  `yaml:"max_name_length" validate:"required,gt=0"`
	MaxOwnerLength      int  `yaml:"max_owner_length" validate:"required,gt=0"`
	MaxTextLength       int  `yaml:"max_text_length" validate:"required,gt=0"`
	MaxAttachmentSize   int  `yaml:"max_attachment_size" validate:"required,gt=0"` // bytes

	Pg Pg `yaml:"pg" validate:"-"` // checked only for the pg backend
}

type Pg struct {
	Host   string `yaml:"host" validate:"required"`
	Port   int    `yaml:"port" validate:"required,gt=0"`
	User   string `yaml:"user" validate:"required"`
	Dbname string `yaml:"dbname" validate:"required"`
}

type Private struct {
	PgPassword string `yaml:"pg_password"`
}

func defaultPublic() Public {
	return Public{
		LogLevel:          "info",
		SnapshotBackend:   "fs",
		SnapshotInterval:  time.Minute,
		OpsAddr:           ":8081",
		MaxNameLength:     100,
		MaxOwnerLength:    64,
		MaxTextLength:     10000,
		MaxAttachmentSize: 10 << 20,
	}
}

func (c *Config) UsesPg() bool {
	return c.Public.SnapshotBackend == "pg"
}

func loadPath(configPath string, output interface{}) error {
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("can't read config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(configFile, output); err != nil {
		return fmt.Errorf("can't unmarshal config file %s: %w", configPath, err)
	}
	return nil
}

// Load reads public.yaml and private.yaml from configFolder. private.yaml is
// optional when nothing secret is needed.
func Load(configFolder string) (*Config, error) {
	public := defaultPublic()
	if err := loadPath(path.Join(configFolder, "public.yaml"), &public); err != nil {
		return nil, err
	}

	var private Private
	privatePath := path.Join(configFolder, "private.yaml")
	if _, err := os.Stat(privatePath); err == nil {
		if err := loadPath(privatePath, &private); err != nil {
			return nil, err
		}
	}

	cfg := &Config{Public: public, Private: private}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c.Public); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.UsesPg() {
		if err := validate.Struct(c.Public.Pg); err != nil {
			return fmt.Errorf("invalid pg config: %w", err)
		}
	}
	return nil
}

func MustLoad(configFolder string) *Config {
	cfg, err := Load(configFolder)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}
