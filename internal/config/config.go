package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/appkins-org/go-testmode/internal/bcd"
	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "testmode"
	envPrefix  = "TESTMODE"
	logName    = "testmode.log"
)

type Config struct {
	Mode         string        `yaml:"mode" mapstructure:"mode"`
	AutoAccept   bool          `yaml:"auto_accept" mapstructure:"auto_accept"`
	AutoReboot   bool          `yaml:"auto_reboot" mapstructure:"auto_reboot"`
	NoElevate    bool          `yaml:"no_elevate" mapstructure:"no_elevate"`
	LogLevel     string        `yaml:"log_level" mapstructure:"log_level"`
	LogFile      string        `yaml:"log_file" mapstructure:"log_file"`
	BcdeditPath  string        `yaml:"bcdedit_path" mapstructure:"bcdedit_path"`
	ShutdownPath string        `yaml:"shutdown_path" mapstructure:"shutdown_path"`
	RebootDelay  time.Duration `yaml:"reboot_delay" mapstructure:"reboot_delay"`
	TruthyTokens []string      `yaml:"truthy_tokens" mapstructure:"truthy_tokens"`
	Log          logr.Logger   `yaml:"-" mapstructure:"-"`

	// ConfigFile is the file that was read, if any.
	ConfigFile string `yaml:"-" mapstructure:"-"`

	logFile *os.File
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"mode":        "mode",
	"auto-accept": "auto_accept",
	"auto-reboot": "auto_reboot",
	"no-elevate":  "no_elevate",
	"log-level":   "log_level",
}

// NewFlagSet declares the command line flags understood by NewConfig.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("mode", "enable", "enable or disable test-signing mode")
	fs.Bool("auto-accept", false, "skip the confirmation prompts")
	fs.Bool("auto-reboot", false, "restart automatically when flags were changed")
	fs.Bool("no-elevate", false, "fail instead of relaunching as administrator")
	fs.String("log-level", "info", "log level (info or debug)")
	fs.String("config", "", "config file (default testmode.yaml beside the executable or in the working directory)")
	return fs
}

// NewConfig resolves the configuration from defaults, an optional YAML
// file, TESTMODE_* environment variables and the parsed flags, in
// increasing precedence, and opens the log. A log file that cannot be
// opened is replaced by one in the temporary directory, and records are
// dropped when that fails too. The console is never used for records.
func NewConfig(fs *pflag.FlagSet) (conf *Config, err error) {
	conf = &Config{}
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if dir := executableDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetDefault("mode", "enable")
	v.SetDefault("auto_accept", false)
	v.SetDefault("auto_reboot", false)
	v.SetDefault("no_elevate", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", defaultLogFile())
	v.SetDefault("bcdedit_path", SystemTool("bcdedit.exe"))
	v.SetDefault("shutdown_path", SystemTool("shutdown.exe"))
	v.SetDefault("reboot_delay", 5*time.Second)
	v.SetDefault("truthy_tokens", bcd.DefaultTruthy)

	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	conf.ConfigFile = v.ConfigFileUsed()

	for _, key := range v.AllKeys() {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey); err != nil {
			return nil, fmt.Errorf("config: unable to bind env: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: unable to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	w := io.Discard
	if f := openLog(conf.LogFile, filepath.Join(os.TempDir(), logName)); f != nil {
		conf.logFile = f
		w = f
	}
	conf.Log = defaultLogger(conf.LogLevel, w)
	if conf.ConfigFile != "" {
		conf.Log.V(1).Info("loaded config file", "path", conf.ConfigFile)
	}

	return conf, nil
}

// Close releases the log file.
func (c *Config) Close() error {
	if c == nil || c.logFile == nil {
		return nil
	}
	err := c.logFile.Close()
	c.logFile = nil
	return err
}

// SystemTool returns the path of a program in %WINDIR%\System32.
func SystemTool(name string) string {
	windir := os.Getenv("WINDIR")
	if windir == "" {
		windir = `C:\Windows`
	}
	return filepath.Join(windir, "System32", name)
}

// openLog opens the first of paths that can be appended to.
func openLog(paths ...string) *os.File {
	for _, p := range paths {
		if p == "" {
			continue
		}
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			return f
		}
	}
	return nil
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

func defaultLogFile() string {
	if dir := executableDir(); dir != "" {
		return filepath.Join(dir, logName)
	}
	return logName
}

// defaultLogger returns a JSON logr.Logger writing to w at level.
func defaultLogger(level string, w io.Writer) logr.Logger {
	// Keep only the last three path elements of the source file and function.
	trimSource := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			ss, ok := a.Value.Any().(*slog.Source)
			if !ok || ss == nil {
				return a
			}
			f := strings.Split(ss.Function, "/")
			if len(f) > 3 {
				ss.Function = filepath.Join(f[len(f)-3:]...)
			}
			p := strings.Split(ss.File, "/")
			if len(p) > 3 {
				ss.File = filepath.Join(p[len(p)-3:]...)
			}

			return a
		}

		return a
	}
	opts := &slog.HandlerOptions{AddSource: true, ReplaceAttr: trimSource}
	switch level {
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		opts.Level = slog.LevelInfo
	}
	log := slog.New(slog.NewJSONHandler(w, opts))

	return logr.FromSlogHandler(log.Handler())
}
