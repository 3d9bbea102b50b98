package lib

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

//go:embed defaults.toml
var defaultsTOML []byte

const (
	DefaultConfigDir  = ".config/chazz"
	DefaultConfigFile = "config.toml"
	EnvConfig         = "CHAZZ_CONFIG"
	EnvKey            = "CHAZZ_KEY"
)

var validate = validator.New()

// Config is assembled once per invocation from the built-in defaults, the user
// config file, the environment and flags, in that order. Treat it as read-only.
type Config struct {
	Images        map[string]string `mapstructure:"images" toml:"images" yaml:"images" validate:"min=1,dive,startswith=ami-"`
	DefaultImage  string            `mapstructure:"default_image" toml:"default_image" yaml:"default_image"`
	InstanceType  string            `mapstructure:"instance_type" toml:"instance_type" yaml:"instance_type" validate:"required"`
	KeyPair       string            `mapstructure:"key_pair" toml:"key_pair" yaml:"key_pair"`
	SecurityGroup string            `mapstructure:"security_group" toml:"security_group" yaml:"security_group"`
	InstanceName  string            `mapstructure:"instance_name" toml:"instance_name" yaml:"instance_name"`
	PollSeconds   int               `mapstructure:"poll_seconds" toml:"poll_seconds" yaml:"poll_seconds" validate:"min=1"`
	NoCreate      bool              `mapstructure:"no_create" toml:"no_create" yaml:"no_create"`
	AWS           AWSConfig         `mapstructure:"aws" toml:"aws" yaml:"aws"`
	SSH           SSHConfig         `mapstructure:"ssh" toml:"ssh" yaml:"ssh"`
	Setup         SetupConfig       `mapstructure:"setup" toml:"setup" yaml:"setup"`
	Sync          SyncConfig        `mapstructure:"sync" toml:"sync" yaml:"sync"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region" toml:"region" yaml:"region"`
	Profile         string `mapstructure:"profile" toml:"profile" yaml:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id" toml:"access_key_id" yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" toml:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
}

type SSHConfig struct {
	User        string   `mapstructure:"user" toml:"user" yaml:"user" validate:"required"`
	Key         string   `mapstructure:"key" toml:"key" yaml:"key"`
	Port        int      `mapstructure:"port" toml:"port" yaml:"port" validate:"min=1,max=65535"`
	Options     []string `mapstructure:"options" toml:"options" yaml:"options"`
	WaitSeconds int      `mapstructure:"wait_seconds" toml:"wait_seconds" yaml:"wait_seconds" validate:"min=1"`
}

type SetupConfig struct {
	Scripts   []string `mapstructure:"scripts" toml:"scripts" yaml:"scripts"`
	RemoteDir string   `mapstructure:"remote_dir" toml:"remote_dir" yaml:"remote_dir"`
	Force     bool     `mapstructure:"force" toml:"force" yaml:"force"`
}

type SyncConfig struct {
	Dest    string   `mapstructure:"dest" toml:"dest" yaml:"dest" validate:"required"`
	Exclude []string `mapstructure:"exclude" toml:"exclude" yaml:"exclude"`
	Options []string `mapstructure:"options" toml:"options" yaml:"options"`
	Watcher string   `mapstructure:"watcher" toml:"watcher" yaml:"watcher" validate:"required"`
}

// ConfigFlags are the command line overrides shared by every subcommand.
type ConfigFlags struct {
	Config        string `arg:"--config" help:"config file, default ~/.config/chazz/config.toml"`
	Image         string `arg:"--image" help:"image version name or ami id to use as the default image"`
	Type          string `arg:"--type" help:"instance type for new instances"`
	KeyPair       string `arg:"--key-pair" help:"ec2 key pair name for new instances"`
	SecurityGroup string `arg:"--security-group" help:"security group name for new instances"`
	User          string `arg:"--user" help:"ssh user"`
	Key           string `arg:"--key" help:"ssh private key"`
	Region        string `arg:"--region" help:"aws region"`
	Profile       string `arg:"--profile" help:"aws profile"`
	NoCreate      bool   `arg:"--no-create" help:"never create instances"`
}

// Validate checks struct tags and that the default image is known.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.DefaultImage != "" && c.DefaultImageID() == "" {
		return fmt.Errorf("config validation failed: default_image %q is neither an image version nor an ami id", c.DefaultImage)
	}
	return nil
}

// DefaultImageID resolves default_image to an ami id. Empty means creation is
// disabled and the default selector matches nothing.
func (c *Config) DefaultImageID() string {
	if c.DefaultImage == "" {
		return ""
	}
	if id, ok := c.Images[strings.ToLower(c.DefaultImage)]; ok {
		return id
	}
	if strings.HasPrefix(c.DefaultImage, "ami-") {
		return c.DefaultImage
	}
	return ""
}

// ImageIDs is the set of ami ids chazz considers its own, sorted.
func (c *Config) ImageIDs() []string {
	var ids []string
	for _, id := range c.Images {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if id := c.DefaultImageID(); id != "" && !slices.Contains(ids, id) {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CanCreate reports whether a missing instance may be launched.
func (c *Config) CanCreate() bool {
	return !c.NoCreate && c.DefaultImageID() != ""
}

// ImageVersion returns the version name for an ami id, or the id itself.
func (c *Config) ImageVersion(imageID string) string {
	var versions []string
	for version, id := range c.Images {
		if id == imageID {
			versions = append(versions, version)
		}
	}
	if len(versions) == 0 {
		return imageID
	}
	sort.Strings(versions)
	return versions[0]
}

// ConfigPath is the user config file location: the flag, then $CHAZZ_CONFIG,
// then ~/.config/chazz/config.toml.
func ConfigPath(flag string) (string, error) {
	if flag != "" {
		return expandPath(flag)
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return expandPath(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// DefaultConfig is the built-in configuration with no overrides applied.
func DefaultConfig() (*Config, error) {
	v, err := defaultsViper()
	if err != nil {
		return nil, err
	}
	return decodeConfig(v)
}

// LoadConfig layers defaults, the user file, the environment and flags.
func LoadConfig(flags ConfigFlags) (*Config, error) {
	v, err := defaultsViper()
	if err != nil {
		return nil, err
	}
	path, err := ConfigPath(flags.Config)
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if flags.Config != "" {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	default:
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	v.SetEnvPrefix("CHAZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("ssh.key", EnvKey)
	applyFlags(v, flags)
	return decodeConfig(v)
}

func defaultsViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(defaultsTOML)); err != nil {
		return nil, fmt.Errorf("read built-in defaults: %w", err)
	}
	return v, nil
}

func applyFlags(v *viper.Viper, flags ConfigFlags) {
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("default_image", flags.Image)
	set("instance_type", flags.Type)
	set("key_pair", flags.KeyPair)
	set("security_group", flags.SecurityGroup)
	set("ssh.user", flags.User)
	set("ssh.key", flags.Key)
	set("aws.region", flags.Region)
	set("aws.profile", flags.Profile)
	if flags.NoCreate {
		v.Set("no_create", true)
	}
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	var err error
	if cfg.SSH.Key != "" {
		cfg.SSH.Key, err = expandPath(cfg.SSH.Key)
		if err != nil {
			return nil, err
		}
	}
	for i, script := range cfg.Setup.Scripts {
		cfg.Setup.Scripts[i], err = expandPath(script)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
