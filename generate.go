package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
	"github.com/ByLCY/papyrus-cv/resume"
	"github.com/ByLCY/papyrus-cv/style"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Render a CV JSON file to PDF",
	Long:  "Reads CV data from a JSON file, lays it out in the chosen variant and locale and writes the PDF under the output directory using the configured file name.",
	RunE:  runGenerate,
}

var (
	generateData    string
	generateVariant string
	generateLocale  string
	generatePhoto   string
	generateOut     string
	generateDebug   string
)

func init() {
	generateCmd.Flags().StringVarP(&generateData, "data", "d", "", "CV JSON 文件路径（必填）")
	generateCmd.Flags().StringVarP(&generateVariant, "variant", "v", "", "plain|technical|designed（默认取配置）")
	generateCmd.Flags().StringVarP(&generateLocale, "locale", "l", "", "en|nl（默认取配置）")
	generateCmd.Flags().StringVar(&generatePhoto, "photo", "", "头像 URL 或资源目录下的路径")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "输出目录（默认取配置）")
	generateCmd.Flags().StringVar(&generateDebug, "debug", "", "布局调试 JSON 输出路径")

	if err := generateCmd.MarkFlagRequired("data"); err != nil {
		panic(fmt.Sprintf("failed to mark data flag as required: %v", err))
	}
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}

	req, err := buildRequest(a, generateData, generateVariant, generateLocale, generatePhoto)
	if err != nil {
		return err
	}
	doc, err := a.generator.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("生成 PDF 失败: %w", err)
	}

	if generateDebug != "" {
		if err := layout.WriteDebugJSON(doc.Layout, generateDebug); err != nil {
			return err
		}
	}

	outDir := generateOut
	if outDir == "" {
		outDir = a.cfg.Render.OutputDir
	}
	path, err := writeDocument(outDir, doc)
	if err != nil {
		return err
	}
	a.log.Info().Str("file", path).Int("pages", doc.Layout.PageCount()).Msg("已生成 PDF")
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func buildRequest(a *app, dataPath, variant, locale, photo string) (resume.Request, error) {
	data, err := cv.LoadFile(dataPath)
	if err != nil {
		return resume.Request{}, err
	}
	req := resume.Request{
		CV:              *data,
		Variant:         a.cfg.DefaultVariant(),
		Locale:          a.cfg.DefaultLocale(),
		ProfileImageURL: photo,
	}
	if variant != "" {
		if req.Variant, err = style.ParseVariant(variant); err != nil {
			return resume.Request{}, err
		}
	}
	if locale != "" {
		if req.Locale, err = style.ParseLocale(locale); err != nil {
			return resume.Request{}, err
		}
	}
	return req, nil
}

func writeDocument(dir string, doc *resume.Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
		return "", fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return path, nil
}
