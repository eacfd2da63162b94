// Package main is the papyrus-cv command: it renders CV data into paginated PDF résumés,
// either once from the command line or over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ByLCY/papyrus-cv/assets"
	"github.com/ByLCY/papyrus-cv/config"
	canvasrenderer "github.com/ByLCY/papyrus-cv/renderer/canvas"
	"github.com/ByLCY/papyrus-cv/resume"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "papyrus-cv",
	Short:         "Paginated résumé generator",
	Long:          "papyrus-cv lays out structured CV data into a multi-page PDF in an ATS, technical or designed variant, in English or Dutch.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML 配置文件路径（可选）")
}

func main() {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app 是各子命令共用的依赖。
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	generator *resume.Generator
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg.Log, os.Stderr)
	r := canvasrenderer.NewRenderer()
	gen := resume.NewGenerator(r, r,
		resume.WithFetcher(assets.NewLoader(cfg.Render.AssetsDir, cfg.Render.FetchTimeout,
			assets.AllowPrivateNetworks(cfg.Render.AllowPrivateNetworks))),
		resume.WithLogger(log),
		resume.WithFilenameTemplate(cfg.Render.Filename),
	)
	return &app{cfg: cfg, log: log, generator: gen}, nil
}
