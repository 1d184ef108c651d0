// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mistral-ocr CLI. It converts a PDF,
// image, or office document into Markdown using the Mistral OCR API.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mistral-ocr/internal/logger"
	"github.com/pdiddy/mistral-ocr/internal/secrets"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// secretsDir holds one file per credential; mistral-api-key is consulted
// when MISTRAL_API_KEY is unset.
const secretsDir = ".secrets/"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "mistral-ocr <input>",
	Short: "Convert documents to Markdown with Mistral OCR",
	Long: `mistral-ocr sends a PDF, image, or office document to the Mistral OCR API
and writes the recognised text as Markdown.

Office documents (docx, odt, pptx, xlsx, ...) are converted to PDF with a
local LibreOffice installation first. Extracted images can be dropped,
written to a sibling directory, embedded as data URIs, or packaged with the
Markdown in a zip archive (--images).

The API key is read from MISTRAL_API_KEY, a .env file, or
.secrets/mistral-api-key.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not load .env file: %v\n", err)
		}

		cfg := logger.DefaultConfig()
		cfg.Level = viper.GetString("log-level")
		cfg.Format = viper.GetString("log-format")
		cfg.Out = cmd.ErrOrStderr()
		if err := logger.Setup(cfg); err != nil {
			return err
		}

		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
	RunE: runOCR,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./mistral-ocr.yaml or ~/.config/mistral-ocr/mistral-ocr.yaml)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("log-format", logger.FormatConsole, "log format: console or json")
	mustBind(pf.Lookup("log-level"), pf.Lookup("log-format"))

	registerRunFlags(rootCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mistral-ocr")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mistral-ocr"))
		}
	}

	viper.SetEnvPrefix("MISTRAL_OCR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv(keyAPIKey, types.APIKeyEnv, "MISTRAL_OCR_API_KEY")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
}

// run executes the root command with args and returns the process exit
// code. Errors are reported as a single "Error: ..." line on stderr.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return types.ExitCode(err)
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
