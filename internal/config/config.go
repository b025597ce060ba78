package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline"
	"piaoju/internal/pipeline/extract"
	"piaoju/internal/pipeline/normalize"
	"piaoju/internal/pipeline/rules"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	S3       S3Config
	Log      LogConfig
	CORS     CORSConfig
	Batch    BatchConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BatchConfig holds batch transformation settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxItems    int `mapstructure:"max_items"`
}

// PipelineConfig is the full configuration surface of the transformation
// pipeline: synonym tables, validation patterns, amount-format tables,
// reference tax rates and the reconciliation policy. Supporting a new OCR
// vendor or language is a configuration change, not a code change.
type PipelineConfig struct {
	CurrencySymbols      []string            `mapstructure:"currency_symbols"`
	ThousandsSeparators  []string            `mapstructure:"thousands_separators"`
	DecimalSeparators    []string            `mapstructure:"decimal_separators"`
	AmountMin            float64             `mapstructure:"amount_min"`
	AmountMax            float64             `mapstructure:"amount_max"`
	DateMin              string              `mapstructure:"date_min"`
	DateMax              string              `mapstructure:"date_max"`
	InvoiceNumberPattern string              `mapstructure:"invoice_number_pattern"`
	TaxNumberPattern     string              `mapstructure:"tax_number_pattern"`
	FuzzyNumberPattern   string              `mapstructure:"fuzzy_number_pattern"`
	MaxDepth             int                 `mapstructure:"max_depth"`
	CompanySuffixRules   map[string]string   `mapstructure:"company_suffix_rules"`
	CurrencyAliases      map[string]string   `mapstructure:"currency_aliases"`
	DefaultCurrency      string              `mapstructure:"default_currency"`
	Synonyms             map[string][]string `mapstructure:"synonyms"`
	RequiredFields       []string            `mapstructure:"required_fields"`
	OptionalFields       []string            `mapstructure:"optional_fields"`
	Tolerance            float64             `mapstructure:"tolerance"`
	AutoCorrect          bool                `mapstructure:"auto_correct"`
	ReferenceTaxRates    map[string]float64  `mapstructure:"reference_tax_rates"`
	DefaultTaxRate       float64             `mapstructure:"default_tax_rate"`
	RateDelta            float64             `mapstructure:"rate_delta"`
}

// Build converts the loaded tables into the explicit pipeline configuration
// passed to the component constructors.
func (p *PipelineConfig) Build() (pipeline.Config, error) {
	dateMin, err := time.Parse("2006-01-02", p.DateMin)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("parsing pipeline.date_min: %w", err)
	}
	dateMax, err := time.Parse("2006-01-02", p.DateMax)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("parsing pipeline.date_max: %w", err)
	}

	// Longer suffix variants rewrite first, so 有限责任公司 wins over any
	// shorter overlapping rule; the order is stable across loads.
	variants := make([]string, 0, len(p.CompanySuffixRules))
	for v := range p.CompanySuffixRules {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})
	suffixRules := make([]normalize.SuffixRule, 0, len(variants))
	for _, v := range variants {
		suffixRules = append(suffixRules, normalize.SuffixRule{Variant: v, Canonical: p.CompanySuffixRules[v]})
	}

	// Viper folds map keys to lower case; the currency lookup is done on
	// upper-cased input, so index aliases under both forms.
	aliases := make(map[string]string, len(p.CurrencyAliases)*2)
	for k, canonical := range p.CurrencyAliases {
		aliases[k] = canonical
		aliases[strings.ToUpper(k)] = canonical
	}

	taxRates := make(map[domain.InvoiceType]float64, len(p.ReferenceTaxRates))
	for t, rate := range p.ReferenceTaxRates {
		taxRates[domain.InvoiceType(t)] = rate
	}

	return pipeline.Config{
		Normalize: normalize.Config{
			CurrencySymbols:      p.CurrencySymbols,
			ThousandsSeparators:  p.ThousandsSeparators,
			DecimalSeparators:    p.DecimalSeparators,
			AmountMin:            p.AmountMin,
			AmountMax:            p.AmountMax,
			DateMin:              dateMin,
			DateMax:              dateMax,
			InvoiceNumberPattern: p.InvoiceNumberPattern,
			TaxNumberPattern:     p.TaxNumberPattern,
			CompanySuffixRules:   suffixRules,
			CurrencyAliases:      aliases,
			DefaultCurrency:      p.DefaultCurrency,
		},
		Extract: extract.Config{
			Synonyms:           p.Synonyms,
			FuzzyNumberPattern: p.FuzzyNumberPattern,
			MaxDepth:           p.MaxDepth,
		},
		Rules: rules.Config{
			RequiredFields:    p.RequiredFields,
			OptionalFields:    p.OptionalFields,
			Tolerance:         p.Tolerance,
			AutoCorrect:       p.AutoCorrect,
			ReferenceTaxRates: taxRates,
			DefaultTaxRate:    p.DefaultTaxRate,
			RateDelta:         p.RateDelta,
		},
	}, nil
}

// Load reads configuration from environment variables with the PIAOJU_
// prefix. The pipeline tables default to the Chinese VAT invoice setup.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PIAOJU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "piaoju")
	v.SetDefault("db.password", "piaoju_secret")
	v.SetDefault("db.name", "piaoju_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "cn-north-1")
	v.SetDefault("s3.bucket", "piaoju-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Batch defaults
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("batch.max_items", 100)

	// Pipeline defaults
	v.SetDefault("pipeline.currency_symbols", []string{"¥", "￥", "$", "€", "£", "元", "圆", "人民币", "RMB"})
	v.SetDefault("pipeline.thousands_separators", []string{",", "，", " "})
	v.SetDefault("pipeline.decimal_separators", []string{"．"})
	v.SetDefault("pipeline.amount_min", 0.01)
	v.SetDefault("pipeline.amount_max", 9999999.99)
	v.SetDefault("pipeline.date_min", "2000-01-01")
	v.SetDefault("pipeline.date_max", "2035-12-31")
	v.SetDefault("pipeline.invoice_number_pattern", `^\d{8,20}$`)
	v.SetDefault("pipeline.tax_number_pattern", `^[A-Z0-9]{15,20}$`)
	v.SetDefault("pipeline.fuzzy_number_pattern", `^\d{8,12}$`)
	v.SetDefault("pipeline.max_depth", 8)
	v.SetDefault("pipeline.company_suffix_rules", map[string]string{
		"有限责任公司": "有限公司",
	})
	v.SetDefault("pipeline.currency_aliases", map[string]string{
		"¥": "CNY", "￥": "CNY", "元": "CNY", "人民币": "CNY", "RMB": "CNY", "CNY": "CNY",
		"$": "USD", "US$": "USD", "美元": "USD", "USD": "USD",
		"€": "EUR", "欧元": "EUR", "EUR": "EUR",
		"£": "GBP", "英镑": "GBP", "GBP": "GBP",
		"HK$": "HKD", "港币": "HKD", "HKD": "HKD",
		"日元": "JPY", "JPY": "JPY",
	})
	v.SetDefault("pipeline.default_currency", "CNY")
	v.SetDefault("pipeline.synonyms", map[string][]string{
		domain.FieldInvoiceNumber:    {"发票号码", "invoice_number", "invoiceNumber", "invoice_no", "号码"},
		domain.FieldInvoiceCode:      {"发票代码", "invoice_code", "invoiceCode", "代码"},
		domain.FieldSellerName:       {"销售方名称", "销售方", "开票方名称", "seller_name", "seller", "vendor_name"},
		domain.FieldSellerTaxNumber:  {"销售方纳税人识别号", "销售方税号", "seller_tax_number", "seller_tax_id"},
		domain.FieldBuyerName:        {"购买方名称", "购买方", "购方名称", "buyer_name", "buyer"},
		domain.FieldBuyerTaxNumber:   {"购买方纳税人识别号", "购买方税号", "buyer_tax_number", "buyer_tax_id"},
		domain.FieldTotalAmount:      {"价税合计", "合计金额", "小写金额", "total_amount", "total"},
		domain.FieldAmountWithoutTax: {"金额", "不含税金额", "amount_without_tax", "subtotal", "pretax_amount"},
		domain.FieldTaxAmount:        {"税额", "合计税额", "tax_amount", "tax"},
		domain.FieldCurrency:         {"币种", "货币", "currency", "currency_code"},
		domain.FieldInvoiceDate:      {"开票日期", "invoice_date", "开票时间", "date"},
		domain.FieldConsumptionDate:  {"消费日期", "交易日期", "consumption_date"},
		domain.FieldInvoiceType:      {"发票类型", "invoice_type"},
		domain.FieldRemarks:          {"备注", "remarks", "note", "notes"},
	})
	v.SetDefault("pipeline.required_fields", []string{
		domain.FieldInvoiceNumber, domain.FieldSellerName, domain.FieldTotalAmount,
	})
	v.SetDefault("pipeline.optional_fields", []string{
		domain.FieldInvoiceCode, domain.FieldSellerTaxNumber, domain.FieldBuyerName,
		domain.FieldBuyerTaxNumber, domain.FieldConsumptionDate, domain.FieldInvoiceType,
		domain.FieldRemarks,
	})
	v.SetDefault("pipeline.tolerance", 0.05)
	v.SetDefault("pipeline.auto_correct", true)
	v.SetDefault("pipeline.reference_tax_rates", map[string]float64{
		string(domain.InvoiceTypeGeneral):    0.13,
		string(domain.InvoiceTypeSpecial):    0.13,
		string(domain.InvoiceTypeElectronic): 0.13,
	})
	v.SetDefault("pipeline.default_tax_rate", 0.13)
	v.SetDefault("pipeline.rate_delta", 0.01)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "PIAOJU_SERVER_PORT",
		"server.read_timeout":  "PIAOJU_SERVER_READ_TIMEOUT",
		"server.write_timeout": "PIAOJU_SERVER_WRITE_TIMEOUT",
		"server.environment":   "PIAOJU_SERVER_ENVIRONMENT",
		"db.host":              "PIAOJU_DB_HOST",
		"db.port":              "PIAOJU_DB_PORT",
		"db.user":              "PIAOJU_DB_USER",
		"db.password":          "PIAOJU_DB_PASSWORD",
		"db.name":              "PIAOJU_DB_NAME",
		"db.sslmode":           "PIAOJU_DB_SSLMODE",
		"db.max_open":          "PIAOJU_DB_MAX_OPEN",
		"db.max_idle":          "PIAOJU_DB_MAX_IDLE",
		"s3.region":            "PIAOJU_S3_REGION",
		"s3.bucket":            "PIAOJU_S3_BUCKET",
		"s3.endpoint":          "PIAOJU_S3_ENDPOINT",
		"s3.access_key":        "PIAOJU_S3_ACCESS_KEY",
		"s3.secret_key":        "PIAOJU_S3_SECRET_KEY",
		"s3.max_file_size_mb":  "PIAOJU_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":    "PIAOJU_S3_PRESIGN_EXPIRY",
		"log.level":            "PIAOJU_LOG_LEVEL",
		"log.format":           "PIAOJU_LOG_FORMAT",
		"cors.allowed_origins": "PIAOJU_CORS_ALLOWED_ORIGINS",
		"batch.concurrency":    "PIAOJU_BATCH_CONCURRENCY",
		"batch.max_items":      "PIAOJU_BATCH_MAX_ITEMS",

		"pipeline.amount_min":             "PIAOJU_PIPELINE_AMOUNT_MIN",
		"pipeline.amount_max":             "PIAOJU_PIPELINE_AMOUNT_MAX",
		"pipeline.date_min":               "PIAOJU_PIPELINE_DATE_MIN",
		"pipeline.date_max":               "PIAOJU_PIPELINE_DATE_MAX",
		"pipeline.invoice_number_pattern": "PIAOJU_PIPELINE_INVOICE_NUMBER_PATTERN",
		"pipeline.tax_number_pattern":     "PIAOJU_PIPELINE_TAX_NUMBER_PATTERN",
		"pipeline.fuzzy_number_pattern":   "PIAOJU_PIPELINE_FUZZY_NUMBER_PATTERN",
		"pipeline.max_depth":              "PIAOJU_PIPELINE_MAX_DEPTH",
		"pipeline.default_currency":       "PIAOJU_PIPELINE_DEFAULT_CURRENCY",
		"pipeline.tolerance":              "PIAOJU_PIPELINE_TOLERANCE",
		"pipeline.auto_correct":           "PIAOJU_PIPELINE_AUTO_CORRECT",
		"pipeline.default_tax_rate":       "PIAOJU_PIPELINE_DEFAULT_TAX_RATE",
		"pipeline.rate_delta":             "PIAOJU_PIPELINE_RATE_DELTA",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PIAOJU_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PIAOJU_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}
	cfg.Batch = BatchConfig{
		Concurrency: v.GetInt("batch.concurrency"),
		MaxItems:    v.GetInt("batch.max_items"),
	}

	cfg.Pipeline = PipelineConfig{
		CurrencySymbols:      v.GetStringSlice("pipeline.currency_symbols"),
		ThousandsSeparators:  v.GetStringSlice("pipeline.thousands_separators"),
		DecimalSeparators:    v.GetStringSlice("pipeline.decimal_separators"),
		AmountMin:            v.GetFloat64("pipeline.amount_min"),
		AmountMax:            v.GetFloat64("pipeline.amount_max"),
		DateMin:              v.GetString("pipeline.date_min"),
		DateMax:              v.GetString("pipeline.date_max"),
		InvoiceNumberPattern: v.GetString("pipeline.invoice_number_pattern"),
		TaxNumberPattern:     v.GetString("pipeline.tax_number_pattern"),
		FuzzyNumberPattern:   v.GetString("pipeline.fuzzy_number_pattern"),
		MaxDepth:             v.GetInt("pipeline.max_depth"),
		CompanySuffixRules:   v.GetStringMapString("pipeline.company_suffix_rules"),
		CurrencyAliases:      v.GetStringMapString("pipeline.currency_aliases"),
		DefaultCurrency:      v.GetString("pipeline.default_currency"),
		Synonyms:             v.GetStringMapStringSlice("pipeline.synonyms"),
		RequiredFields:       v.GetStringSlice("pipeline.required_fields"),
		OptionalFields:       v.GetStringSlice("pipeline.optional_fields"),
		Tolerance:            v.GetFloat64("pipeline.tolerance"),
		AutoCorrect:          v.GetBool("pipeline.auto_correct"),
		ReferenceTaxRates:    refRates(v.GetStringMap("pipeline.reference_tax_rates")),
		DefaultTaxRate:       v.GetFloat64("pipeline.default_tax_rate"),
		RateDelta:            v.GetFloat64("pipeline.rate_delta"),
	}

	return cfg, nil
}

// refRates converts viper's untyped map into the float rate table.
func refRates(raw map[string]any) map[string]float64 {
	rates := make(map[string]float64, len(raw))
	for k, val := range raw {
		switch t := val.(type) {
		case float64:
			rates[k] = t
		case int:
			rates[k] = float64(t)
		}
	}
	return rates
}
