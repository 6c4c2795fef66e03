package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"os"
	"strconv"
)

const Name = "fedbridge"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host      string
		SshPort   int    `yaml:"sshPort"`
		HttpPort  int    `yaml:"httpPort"`
		Domain    string `yaml:"domain"`
		Protocol  string `yaml:"protocol"`
		WithAdmin bool   `yaml:"withAdmin"`
	}
}

// HostURL returns this bridge's own base URL with a trailing slash,
// e.g. "https://fed.example.com/". Signature key ids and wrapped
// redirect URLs are both derived from it.
func (c *AppConfig) HostURL() string {
	return fmt.Sprintf("%s://%s/", c.Conf.Protocol, c.Conf.Domain)
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	// Try to resolve config file path (local first, then user dir)
	configPath := ResolveFilePath(ConfigFileName)

	var buf []byte
	var err error

	// Try to read from resolved path
	buf, err = os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, use embedded config and create user config file
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig

		// Try to write default config to user config directory
		configDir, dirErr := GetConfigDir()
		if dirErr == nil {
			userConfigPath := configDir + "/" + ConfigFileName
			writeErr := os.WriteFile(userConfigPath, embeddedConfig, 0644)
			if writeErr != nil {
				log.Printf("Warning: could not write default config to %s: %v", userConfigPath, writeErr)
			} else {
				log.Printf("Created default config file at %s", userConfigPath)
			}
		}
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("FEDBRIDGE_HOST")
	envSshPort := os.Getenv("FEDBRIDGE_SSHPORT")
	envHttpPort := os.Getenv("FEDBRIDGE_HTTPPORT")
	envDomain := os.Getenv("FEDBRIDGE_DOMAIN")
	envProtocol := os.Getenv("FEDBRIDGE_PROTOCOL")
	envWithAdmin := os.Getenv("FEDBRIDGE_WITH_ADMIN")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envSshPort != "" {
		v, err := strconv.Atoi(envSshPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.SshPort = v
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envDomain != "" {
		c.Conf.Domain = envDomain
	}

	if envProtocol != "" {
		c.Conf.Protocol = envProtocol
	}

	if envWithAdmin == "true" {
		c.Conf.WithAdmin = true
	}

	if c.Conf.Protocol == "" {
		c.Conf.Protocol = "https"
	}

	return c, nil
}
