// Package config 读取 papyrus-cv 的 YAML 配置，并允许用 PAPYRUS_CV_* 环境变量覆盖。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/papyrus-cv/binding"
	"github.com/ByLCY/papyrus-cv/resume"
	"github.com/ByLCY/papyrus-cv/style"
)

// EnvPrefix 是所有环境变量覆盖项的前缀。
const EnvPrefix = "PAPYRUS_CV_"

// Config 应用程序配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Render RenderConfig `yaml:"render"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig 定义 HTTP 服务配置
type ServerConfig struct {
	Address     string   `yaml:"address" validate:"required"`                  // 例如 ":8080"
	BodyLimitMB int      `yaml:"body_limit_mb" validate:"min=1,max=64"`       // 请求体大小上限
	PhotoHosts  []string `yaml:"photo_hosts" validate:"dive,hostname_rfc1123"` // ?photo= 允许的 https 主机；本地图片路径始终允许
}

// RenderConfig 定义生成文档时使用的目录与默认值
type RenderConfig struct {
	AssetsDir            string        `yaml:"assets_dir"`                          // 本地图片（logo、头像）根目录
	OutputDir            string        `yaml:"output_dir" validate:"required"`      // CLI 输出目录
	Filename             string        `yaml:"filename" validate:"required"`        // 文件名模板，支持 ${name} ${variant} ${locale}
	FetchTimeout         time.Duration `yaml:"fetch_timeout" validate:"gt=0"`       // 头像下载超时
	Variant              string        `yaml:"variant" validate:"required"`         // plain/technical/designed
	Locale               string        `yaml:"locale" validate:"oneof=en nl EN NL"` // en/nl
	AllowPrivateNetworks bool          `yaml:"allow_private_networks"`              // 允许远程图片连接回环、内网地址（仅限可信环境）
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json pretty"`
}

// Default 返回内置默认配置。
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: ":8080", BodyLimitMB: 4},
		Render: RenderConfig{
			AssetsDir:    "public",
			OutputDir:    ".",
			Filename:     resume.DefaultFilename,
			FetchTimeout: 10 * time.Second,
			Variant:      string(style.Designed),
			Locale:       string(style.EN),
		},
		Log: LogConfig{Level: "info", Format: "pretty"},
	}
}

// Load 读取 path（为空时只使用默认值），应用环境变量覆盖并校验。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用 PAPYRUS_CV_<SECTION>_<KEY> 覆盖配置项。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SERVER_ADDRESS", &c.Server.Address)
	str("RENDER_ASSETS_DIR", &c.Render.AssetsDir)
	str("RENDER_OUTPUT_DIR", &c.Render.OutputDir)
	str("RENDER_FILENAME", &c.Render.Filename)
	str("RENDER_VARIANT", &c.Render.Variant)
	str("RENDER_LOCALE", &c.Render.Locale)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(EnvPrefix + "SERVER_BODY_LIMIT_MB"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSERVER_BODY_LIMIT_MB: %w", EnvPrefix, err)
		}
		c.Server.BodyLimitMB = n
	}
	if v, ok := lookup(EnvPrefix + "SERVER_PHOTO_HOSTS"); ok {
		c.Server.PhotoHosts = nil
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.Server.PhotoHosts = append(c.Server.PhotoHosts, h)
			}
		}
	}
	if v, ok := lookup(EnvPrefix + "RENDER_ALLOW_PRIVATE_NETWORKS"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sRENDER_ALLOW_PRIVATE_NETWORKS: %w", EnvPrefix, err)
		}
		c.Render.AllowPrivateNetworks = b
	}
	if v, ok := lookup(EnvPrefix + "RENDER_FETCH_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sRENDER_FETCH_TIMEOUT: %w", EnvPrefix, err)
		}
		c.Render.FetchTimeout = d
	}
	return nil
}

var validate = validator.New()

// Validate 检查字段约束、默认 variant/locale 以及文件名模板中的占位符。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s 不满足 %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("配置无效: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("配置无效: %w", err)
	}
	if _, err := style.ParseVariant(c.Render.Variant); err != nil {
		return fmt.Errorf("配置无效: render.variant: %w", err)
	}
	if unknown := binding.Unknown(c.Render.Filename, resume.FilenameVars...); len(unknown) > 0 {
		return fmt.Errorf("配置无效: render.filename 含未知占位符 %s", strings.Join(unknown, ", "))
	}
	return nil
}

// DefaultVariant 返回已校验的默认 variant。
func (c *Config) DefaultVariant() style.Variant {
	v, err := style.ParseVariant(c.Render.Variant)
	if err != nil {
		return style.Plain
	}
	return v
}

// DefaultLocale 返回已校验的默认 locale。
func (c *Config) DefaultLocale() style.Locale {
	l, err := style.ParseLocale(c.Render.Locale)
	if err != nil {
		return style.EN
	}
	return l
}
