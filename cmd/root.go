package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/log"

	"github.com/spf13/cobra"
)

const (
	defaultPort       = uint16(4000)
	defaultHost       = "localhost"
	defaultConfigPath = "./canarynet.yml"
	configFileEnvVar  = "CANARYNET_CONFIG_FILE"
)

// process exit codes. The 10+ range is reserved for environment failures
// so CI can tell broken infrastructure from actionable test results.
const (
	ExitTestsFailed       = 1
	ExitConfigInvalid     = 2
	ExitEnvironmentFailed = 10
)

//nolint:gochecknoglobals
var (
	version   = "undefined"
	buildTime = "undefined"

	configPath string
	apiHost    string
	apiPort    uint16
)

// ExitCodeError carries the exit code a failed run terminates with
type ExitCodeError struct {
	Code int
	Err  error
}

// Error implements `error`.
func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap supports `errors.Is/As`.
func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// NewRootCommand creates a new root command instance. Without a subcommand
// it runs the whole environment.
func NewRootCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "canarynet",
		Short: "canarynet is a hermetic test environment orchestrator",
		Long: `canarynet brings up a miniature Internet on a closed network: an
authoritative DNSSEC zone tree, an issuing CA with OCSP, a matrix of TLS
target fixtures and the application under test, then drives a browser
grid against it and reports the outcome.

Complete documentation is available at https://github.com/0xERR0R/canarynet`,
		RunE: runEnvironment,
	}

	c.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")
	c.PersistentFlags().StringVar(&apiHost, "apiHost", defaultHost, "host of the status API")
	c.PersistentFlags().Uint16Var(&apiPort, "apiPort", defaultPort, "port of the status API")

	c.AddCommand(
		newRunCommand(),
		NewValidateCommand(),
		NewHealthcheckCommand(),
		NewVersionCommand(),
	)

	return c
}

func apiURL() string {
	return fmt.Sprintf("http://%s:%d/api", apiHost, apiPort)
}

// initConfig loads and validates the configuration and applies its log
// section to the global logger.
func initConfig() (*config.Config, error) {
	if envPath := os.Getenv(configFileEnvVar); envPath != "" {
		configPath = envPath
	}

	cfg, err := config.LoadConfig(configPath, true)
	if err != nil {
		return nil, err
	}

	log.ConfigureLogger(cfg.Log)

	return cfg, nil
}

// Execute runs the root command and terminates the process with the exit
// code of the failure class.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Log().Error(err)

		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}

		os.Exit(ExitConfigInvalid)
	}
}
