package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/libopenstorage/lockbox"
	_ "github.com/libopenstorage/lockbox/aws/aws_secrets_manager"
	_ "github.com/libopenstorage/lockbox/azure"
	_ "github.com/libopenstorage/lockbox/dcos"
	_ "github.com/libopenstorage/lockbox/docker"
	_ "github.com/libopenstorage/lockbox/file"
	_ "github.com/libopenstorage/lockbox/gcloud"
	"github.com/libopenstorage/lockbox/internal/config"
	_ "github.com/libopenstorage/lockbox/k8s"
	_ "github.com/libopenstorage/lockbox/keychain"
	_ "github.com/libopenstorage/lockbox/keyring"
	_ "github.com/libopenstorage/lockbox/vault"
)

const defaultBackend = "keyring"

var (
	cfg *config.Config

	flagConfig         string
	flagBackend        string
	flagNamespace      string
	flagAccount        string
	flagAccessGroup    string
	flagAccessibility  string
	flagSynchronizable bool
	flagLogLevel       string
	flagLogFormat      string
)

var rootCmd = &cobra.Command{
	Use:           "lockbox",
	Short:         "Store and read secrets in the system keychain or a secret service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", config.DefaultPath(), "config file")
	flags.StringVarP(&flagBackend, "backend", "b", "", "secret store backend (see 'lockbox backends')")
	flags.StringVarP(&flagNamespace, "namespace", "n", "", "namespace prepended to every key")
	flags.StringVar(&flagAccount, "account", "", "account the items belong to")
	flags.StringVar(&flagAccessGroup, "access-group", "", "access group shared between applications")
	flags.StringVar(&flagAccessibility, "accessibility", "", "when items may be read, e.g. after_first_unlock")
	flags.BoolVar(&flagSynchronizable, "synchronizable", false, "mark written items for cloud synchronization")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&flagLogFormat, "log-format", "", "log format (text, json)")
}

// loadConfig merges, lowest first, the config file, LOCKBOX_* variables and
// flags set on the command line.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := c.ApplyEnv(); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.Backend = flagBackend
	}
	if flags.Changed("namespace") {
		c.Namespace = flagNamespace
	}
	if flags.Changed("account") {
		c.Account = flagAccount
	}
	if flags.Changed("access-group") {
		c.AccessGroup = flagAccessGroup
	}
	if flags.Changed("accessibility") {
		c.Accessibility = flagAccessibility
	}
	if flags.Changed("synchronizable") {
		c.Synchronizable = flagSynchronizable
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if c.Backend == "" {
		c.Backend = defaultBackend
	}
	if c.Namespace == "" {
		c.Namespace = lockbox.DefaultNamespace()
	}

	if err := configureLogging(c); err != nil {
		return err
	}
	cfg = c
	return nil
}

func configureLogging(c *config.Config) error {
	logrus.SetOutput(os.Stderr)
	level := logrus.WarnLevel
	if c.LogLevel != "" {
		l, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return err
		}
		level = l
	}
	logrus.SetLevel(level)

	switch c.LogFormat {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
