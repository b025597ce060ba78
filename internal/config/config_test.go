package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piaoju/internal/config"
	"piaoju/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, "piaoju-uploads", cfg.S3.Bucket)
	assert.Equal(t, int64(50), cfg.S3.MaxFileSizeMB)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Equal(t, 100, cfg.Batch.MaxItems)
	assert.Contains(t, cfg.CORS.AllowedOrigins, "http://localhost:3000")

	assert.Equal(t, "CNY", cfg.Pipeline.DefaultCurrency)
	assert.InDelta(t, 0.05, cfg.Pipeline.Tolerance, 1e-9)
	assert.True(t, cfg.Pipeline.AutoCorrect)
	assert.InDelta(t, 0.13, cfg.Pipeline.DefaultTaxRate, 1e-9)
	assert.Equal(t, 8, cfg.Pipeline.MaxDepth)
	assert.Contains(t, cfg.Pipeline.RequiredFields, domain.FieldInvoiceNumber)
	assert.Contains(t, cfg.Pipeline.RequiredFields, domain.FieldTotalAmount)
	assert.NotEmpty(t, cfg.Pipeline.Synonyms[domain.FieldSellerName])
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PIAOJU_SERVER_PORT", ":9090")
	t.Setenv("PIAOJU_DB_HOST", "db.internal")
	t.Setenv("PIAOJU_PIPELINE_TOLERANCE", "0.10")
	t.Setenv("PIAOJU_BATCH_CONCURRENCY", "12")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.InDelta(t, 0.10, cfg.Pipeline.Tolerance, 1e-9)
	assert.Equal(t, 12, cfg.Batch.Concurrency)
}

func TestLoad_PortEnvFallback(t *testing.T) {
	t.Setenv("PORT", "7000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)
}

func TestDBConfig_DSN(t *testing.T) {
	d := config.DBConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		Name: "piaoju_db", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/piaoju_db?sslmode=disable", d.DSN())
}

func TestPipelineConfig_Build(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	pipeCfg, err := cfg.Pipeline.Build()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), pipeCfg.Normalize.DateMin)
	assert.Equal(t, time.Date(2035, 12, 31, 0, 0, 0, 0, time.UTC), pipeCfg.Normalize.DateMax)
	assert.Equal(t, "CNY", pipeCfg.Normalize.DefaultCurrency)
	require.NotEmpty(t, pipeCfg.Normalize.CompanySuffixRules)
	assert.Equal(t, "有限责任公司", pipeCfg.Normalize.CompanySuffixRules[0].Variant)
	assert.InDelta(t, 0.13, pipeCfg.Rules.ReferenceTaxRates[domain.InvoiceTypeGeneral], 1e-9)
	assert.Equal(t, 8, pipeCfg.Extract.MaxDepth)

	// Alias lookup stays valid after viper's key folding.
	assert.Equal(t, "CNY", pipeCfg.Normalize.CurrencyAliases["RMB"])
}

func TestPipelineConfig_Build_RejectsBadDates(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Pipeline.DateMin = "not-a-date"
	_, err = cfg.Pipeline.Build()
	assert.Error(t, err)
}
