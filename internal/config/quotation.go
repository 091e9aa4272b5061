package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// QuotationDefaults seed the parameters of newly created quotations. Existing
// quotations keep their own parameter rows; changing these never rewrites a
// priced quote.
type QuotationDefaults struct {
	BaseCurrency   string  `mapstructure:"baseCurrency"`
	DefaultMarkup  float64 `mapstructure:"defaultMarkup"`
	RiskPercent    float64 `mapstructure:"riskPercent"`
	VATRatePercent float64 `mapstructure:"vatRatePercent"`
	IncludeVAT     bool    `mapstructure:"includeVAT"`
	DayLaborCost   float64 `mapstructure:"dayLaborCost"`
	// Units of base currency per one USD / EUR. Seed values only; each
	// quotation stores its own rates.
	UsdToBase float64 `mapstructure:"usdToBase"`
	EurToBase float64 `mapstructure:"eurToBase"`
}

func DefaultQuotationDefaults() QuotationDefaults {
	return QuotationDefaults{
		BaseCurrency:   "ILS",
		DefaultMarkup:  25,
		RiskPercent:    0,
		VATRatePercent: 18,
		IncludeVAT:     true,
		DayLaborCost:   1200,
		UsdToBase:      3.7,
		EurToBase:      4.0,
	}
}

// Rates returns the default currency table keyed by ISO code.
func (c QuotationDefaults) Rates() map[string]float64 {
	return map[string]float64{
		"USD": c.UsdToBase,
		"EUR": c.EurToBase,
	}
}

type QuotationDefaultsHolder struct {
	current atomic.Value // holds QuotationDefaults
}

func NewQuotationDefaultsHolder() (*QuotationDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("quotation")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/quotora/config") // Volume-mounted config
	v.AddConfigPath("/etc/quotora")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("QUOTORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultQuotationDefaults()
		v.SetDefault("quotation.baseCurrency", defaults.BaseCurrency)
		v.SetDefault("quotation.defaultMarkup", defaults.DefaultMarkup)
		v.SetDefault("quotation.riskPercent", defaults.RiskPercent)
		v.SetDefault("quotation.vatRatePercent", defaults.VATRatePercent)
		v.SetDefault("quotation.includeVAT", defaults.IncludeVAT)
		v.SetDefault("quotation.dayLaborCost", defaults.DayLaborCost)
		v.SetDefault("quotation.usdToBase", defaults.UsdToBase)
		v.SetDefault("quotation.eurToBase", defaults.EurToBase)
	}

	var cfg QuotationDefaults
	if err := v.UnmarshalKey("quotation", &cfg); err != nil {
		return nil, err
	}
	if err := validateQuotationDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &QuotationDefaultsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated QuotationDefaults
		if err := v.UnmarshalKey("quotation", &updated); err != nil {
			log.Printf("[quotation-config] reload failed: %v", err)
			return
		}
		if err := validateQuotationDefaults(updated); err != nil {
			log.Printf("[quotation-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[quotation-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *QuotationDefaultsHolder) Get() QuotationDefaults {
	return h.current.Load().(QuotationDefaults)
}

// NewStaticQuotationDefaults builds a holder pinned to cfg, with no file
// watching. Used by tests.
func NewStaticQuotationDefaults(cfg QuotationDefaults) *QuotationDefaultsHolder {
	holder := &QuotationDefaultsHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateQuotationDefaults(cfg QuotationDefaults) error {
	if strings.TrimSpace(cfg.BaseCurrency) == "" {
		return errors.New("quotation defaults: base currency is required")
	}
	if cfg.VATRatePercent < 0 || cfg.VATRatePercent > 100 {
		return errors.New("quotation defaults: vat rate out of range")
	}
	if cfg.RiskPercent < 0 {
		return errors.New("quotation defaults: negative risk percent")
	}
	if cfg.DayLaborCost < 0 {
		return errors.New("quotation defaults: negative day labor cost")
	}
	if cfg.UsdToBase <= 0 || cfg.EurToBase <= 0 {
		return errors.New("quotation defaults: exchange rates must be positive")
	}
	return nil
}
