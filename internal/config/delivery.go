package config

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DeliveryConfig holds presentation knobs for generated deliverables.
// Unlike the process environment it is hot-reloadable, so report layout
// can be tuned without a redeploy.
type DeliveryConfig struct {
	PDFRowsPerPage   int    `mapstructure:"pdfRowsPerPage"`
	PreviewLeadCount int    `mapstructure:"previewLeadCount"`
	ReportTitle      string `mapstructure:"reportTitle"`
	BrandingLine     string `mapstructure:"brandingLine"`
}

func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		PDFRowsPerPage:   25,
		PreviewLeadCount: 3,
		ReportTitle:      "Motivated Seller Leads",
		BrandingLine:     "RealtyLeadsAI",
	}
}

type DeliveryConfigHolder struct {
	current atomic.Value // holds DeliveryConfig
}

func NewDeliveryConfigHolder(log *zap.Logger) (*DeliveryConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("delivery")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/leadflow/config")
	v.AddConfigPath("/etc/leadflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDeliveryConfig()
	v.SetDefault("delivery.pdfRowsPerPage", defaults.PDFRowsPerPage)
	v.SetDefault("delivery.previewLeadCount", defaults.PreviewLeadCount)
	v.SetDefault("delivery.reportTitle", defaults.ReportTitle)
	v.SetDefault("delivery.brandingLine", defaults.BrandingLine)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	holder := &DeliveryConfigHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Warn("delivery config reload failed", zap.Error(err))
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *DeliveryConfigHolder) reload(v *viper.Viper) error {
	var cfg DeliveryConfig
	if err := v.UnmarshalKey("delivery", &cfg); err != nil {
		return err
	}
	cfg = cfg.withDefaults()
	h.current.Store(cfg)
	return nil
}

func (h *DeliveryConfigHolder) Current() DeliveryConfig {
	if cfg, ok := h.current.Load().(DeliveryConfig); ok {
		return cfg
	}
	return DefaultDeliveryConfig()
}

func (c DeliveryConfig) withDefaults() DeliveryConfig {
	defaults := DefaultDeliveryConfig()
	if c.PDFRowsPerPage <= 0 {
		c.PDFRowsPerPage = defaults.PDFRowsPerPage
	}
	if c.PreviewLeadCount <= 0 {
		c.PreviewLeadCount = defaults.PreviewLeadCount
	}
	if strings.TrimSpace(c.ReportTitle) == "" {
		c.ReportTitle = defaults.ReportTitle
	}
	if strings.TrimSpace(c.BrandingLine) == "" {
		c.BrandingLine = defaults.BrandingLine
	}
	return c
}
