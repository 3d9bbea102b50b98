package lib

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/r3labs/diff/v2"
	"gopkg.in/yaml.v3"
)

const redactedValue = "********"

func (c *Config) redacted() Config {
	out := *c
	if out.AWS.SecretAccessKey != "" {
		out.AWS.SecretAccessKey = redactedValue
	}
	return out
}

// TOML renders the config in the same format as the config file, with secrets
// redacted.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c.redacted())
}

func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.redacted())
}

// ConfigChanges lists every field of c that differs from base, one
// "path: from -> to" line each.
func ConfigChanges(base, c *Config) ([]string, error) {
	from := base.redacted()
	to := c.redacted()
	changelog, err := diff.Diff(from, to, diff.TagName("mapstructure"))
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	var lines []string
	for _, change := range changelog {
		path := strings.Join(change.Path, ".")
		switch change.Type {
		case diff.CREATE:
			lines = append(lines, fmt.Sprintf("%s: + %v", path, change.To))
		case diff.DELETE:
			lines = append(lines, fmt.Sprintf("%s: - %v", path, change.From))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v -> %v", path, change.From, change.To))
		}
	}
	return lines, nil
}
