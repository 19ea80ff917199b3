// Package config loads and validates the simplc YAML configuration
// described in spec §6: server/client protocol roles, the Modbus and
// OPC UA transport settings for each, and the initial node list.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the top-level shape of the YAML file.
type Config struct {
	Server string `mapstructure:"server"` // "OPCUA" | "ModBus" | ""
	Client string `mapstructure:"client"` // "OPCUA" | "ModBus" | ""

	ModbusServer *ModbusConfig `mapstructure:"modbus_server_config"`
	ModbusClient *ModbusConfig `mapstructure:"modbus_client_config"`

	OPCUAServer *OPCUAConfig `mapstructure:"opcua_server_config"`
	OPCUAClient *OPCUAConfig `mapstructure:"opcua_client_config"`

	Nodes []NodeConfig `mapstructure:"nodes"`

	Logger LoggerConfig `mapstructure:"logger"`
	API    APIConfig    `mapstructure:"api"`
}

// ModbusConfig covers both the IP transports (tcp/udp/tls) and the
// serial (RTU) variant; fields irrelevant to the selected Type are
// simply left zero.
type ModbusConfig struct {
	Type string `mapstructure:"type"` // tcp | udp | tls | serial

	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`

	Certificate string `mapstructure:"certificate"`
	Key         string `mapstructure:"key"`
	CA          string `mapstructure:"ca"`

	SerialPort string `mapstructure:"port_name"`
	Baudrate   int    `mapstructure:"baudrate"`
	Bytesize   int    `mapstructure:"bytesize"`
	Parity     string `mapstructure:"parity"` // N | E | O | S | M
	Stopbits   int    `mapstructure:"stopbits"`

	ByteOrder string `mapstructure:"byte_order"` // big | little
	WordOrder string `mapstructure:"word_order"` // big | little
}

// OPCUAConfig covers both server and client endpoints.
type OPCUAConfig struct {
	URL            string `mapstructure:"url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	PrivateKey     string `mapstructure:"private_key"`
	Certificate    string `mapstructure:"certificate"`
	SecurityPolicy []int  `mapstructure:"security_policy"`
}

// ModbusNodeConfig is the modbus half of a node entry.
type ModbusNodeConfig struct {
	Slave        uint8  `mapstructure:"slave" yaml:"slave"`
	Address      uint16 `mapstructure:"address" yaml:"address"`
	Type         string `mapstructure:"type" yaml:"type"` // c | d | h | i
	RegisterSize int    `mapstructure:"register_size" yaml:"register_size"`
}

// OPCUANodeConfig is the opcua half of a node entry.
type OPCUANodeConfig struct {
	Namespace         string `mapstructure:"namespace" yaml:"namespace"`
	NodeQualifiedName string `mapstructure:"node_qualified_name" yaml:"node_qualified_name"`
}

// NodeConfig is one entry of the `nodes:` list. It carries both
// mapstructure and yaml.v3 tags: viper/mapstructure builds the Config as
// a whole, but Value's scalar type (int vs float) survives a second,
// direct yaml.v3 decode of just this list more faithfully than
// mapstructure's JSON-ish type inference — see reloadNodesWithYAML.
type NodeConfig struct {
	QualifiedName string            `mapstructure:"qualified_name" yaml:"qualified_name"`
	Value         interface{}       `mapstructure:"value" yaml:"value"`
	Modbus        *ModbusNodeConfig `mapstructure:"modbus" yaml:"modbus"`
	OPCUA         *OPCUANodeConfig  `mapstructure:"opcua" yaml:"opcua"`
}

// LoggerConfig matches the teacher's logging.Config field set.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	LogDir     string `mapstructure:"log_dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// APIConfig controls the REST/WS control surface.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ErrConfigInvalid is the fatal, startup-aborting error of spec §7.
var ErrConfigInvalid = fmt.Errorf("config: invalid configuration")

// Load reads configPath (or searches the usual locations if empty),
// applies defaults, and validates the result. A missing file is not
// fatal — it logs a warning and falls back to the zero-config defaults
// (spec §4 supplemented feature 3); a malformed file or one that fails
// Validate is fatal.
func Load(configPath string, logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	v.SetEnvPrefix("SIMPLC")
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, os.ErrNotExist) {
			fileFound = false
			logger.Warn("no config file found, using zero-config defaults", zap.String("searched", configPath))
		} else {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	if fileFound {
		if err := reloadNodesWithYAML(v.ConfigFileUsed(), &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	} else if cfg.Server == "OPCUA" && cfg.OPCUAServer == nil {
		cfg.OPCUAServer = &OPCUAConfig{URL: "opc.tcp://0.0.0.0:4840"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// reloadNodesWithYAML re-decodes just the `nodes:` list straight off disk
// with yaml.v3, replacing cfg.Nodes. mapstructure's decode of an
// interface{} field infers JSON-ish types (an unsuffixed YAML integer can
// come back float64-shaped after viper's internal JSON round trip); a
// direct yaml.v3 decode preserves the scalar kind the file actually wrote,
// which matters for the Bool/Int/Float distinction validateNode checks.
func reloadNodesWithYAML(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reload nodes: %w", err)
	}
	var wrapper struct {
		Nodes []NodeConfig `yaml:"nodes"`
	}
	if err := yaml.Unmarshal(raw, &wrapper); err != nil {
		return fmt.Errorf("reload nodes: %w", err)
	}
	if wrapper.Nodes != nil {
		cfg.Nodes = wrapper.Nodes
	}
	return nil
}

// WatchReload wires fsnotify (via viper.WatchConfig) to call onChange
// with the freshly reloaded, re-validated configuration whenever the
// file changes on disk. onChange is not called if the reloaded file
// fails validation; the error is logged and the previous configuration
// keeps running.
func WatchReload(configPath string, logger *zap.Logger, onChange func(*Config)) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			logger.Error("config reload: unmarshal failed, keeping previous config", zap.Error(err))
			return
		}
		if err := cfg.Validate(); err != nil {
			logger.Error("config reload: validation failed, keeping previous config", zap.Error(err))
			return
		}
		logger.Info("config reloaded", zap.String("path", e.Name))
		onChange(&cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server", "OPCUA")
	v.SetDefault("client", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_dir", "./logs")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 7)
	v.SetDefault("logger.compress", true)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
}

func getConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".simplc")
}
