package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline/normalize"
	"piaoju/internal/pipeline/rules"
)

func testNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()
	n, err := normalize.New(normalize.Config{
		CurrencySymbols:      []string{"¥"},
		ThousandsSeparators:  []string{","},
		AmountMin:            0.01,
		AmountMax:            9999999.99,
		DateMin:              time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		DateMax:              time.Date(2035, 12, 31, 0, 0, 0, 0, time.UTC),
		InvoiceNumberPattern: `^\d{8,20}$`,
		TaxNumberPattern:     `^[A-Z0-9]{15,20}$`,
		CompanySuffixRules: []normalize.SuffixRule{
			{Variant: "有限责任公司", Canonical: "有限公司"},
		},
		CurrencyAliases: map[string]string{"CNY": "CNY"},
		DefaultCurrency: "CNY",
	})
	require.NoError(t, err)
	return n
}

func testProcessor(t *testing.T, autoCorrect bool) *rules.Processor {
	t.Helper()
	return rules.New(rules.Config{
		RequiredFields: []string{
			domain.FieldInvoiceNumber, domain.FieldSellerName, domain.FieldTotalAmount,
		},
		OptionalFields: []string{
			domain.FieldInvoiceCode, domain.FieldSellerTaxNumber, domain.FieldBuyerName,
			domain.FieldBuyerTaxNumber, domain.FieldConsumptionDate, domain.FieldInvoiceType,
			domain.FieldRemarks,
		},
		Tolerance:   0.05,
		AutoCorrect: autoCorrect,
		ReferenceTaxRates: map[domain.InvoiceType]float64{
			domain.InvoiceTypeGeneral:    0.13,
			domain.InvoiceTypeSpecial:    0.13,
			domain.InvoiceTypeElectronic: 0.13,
		},
		DefaultTaxRate: 0.13,
		RateDelta:      0.01,
	}, testNormalizer(t))
}

func baseFields() *domain.InvoiceFields {
	return &domain.InvoiceFields{
		InvoiceNumber:    "12345678",
		SellerName:       "北京科技有限公司",
		TotalAmount:      113,
		AmountWithoutTax: 100,
		TaxAmount:        13,
		Currency:         "CNY",
		InvoiceDate:      "2024-03-15",
	}
}

func TestProcess_ConsistentAmountsProduceNoDiagnostics(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeGeneral

	warnings, errs := p.Process(f)
	assert.Empty(t, warnings)
	assert.Empty(t, errs)
}

func TestProcess_RequiredFieldMissing(t *testing.T) {
	p := testProcessor(t, true)

	t.Run("zero total", func(t *testing.T) {
		f := baseFields()
		f.TotalAmount = 0
		f.AmountWithoutTax = 0
		f.TaxAmount = 0

		_, errs := p.Process(f)
		require.NotEmpty(t, errs)
		assert.Equal(t, domain.FieldTotalAmount, errs[0].Field)
		assert.Equal(t, domain.ErrCodeRequiredFieldMissing, errs[0].Code)
		assert.False(t, errs[0].Recoverable)
	})

	t.Run("empty seller", func(t *testing.T) {
		f := baseFields()
		f.SellerName = ""

		_, errs := p.Process(f)
		require.NotEmpty(t, errs)
		assert.Equal(t, domain.FieldSellerName, errs[0].Field)
	})
}

func TestReconcile_MismatchAutoCorrected(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeGeneral
	f.AmountWithoutTax = 90 // 90 + 13 != 113

	warnings, errs := p.Process(f)
	assert.Empty(t, errs)

	// Total is ground truth: subtotal = 113/1.13, tax = remainder.
	assert.InDelta(t, 100.0, f.AmountWithoutTax, 1e-9)
	assert.InDelta(t, 13.0, f.TaxAmount, 1e-9)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldTotalAmount && w.Severity == domain.SeverityMedium {
			found = true
			assert.Contains(t, w.OriginalValue, "subtotal=90.00")
			assert.Contains(t, w.CorrectedValue, "subtotal=100.00")
		}
	}
	assert.True(t, found, "expected a reconciliation warning")
}

func TestReconcile_MismatchBlocksWithoutAutoCorrect(t *testing.T) {
	p := testProcessor(t, false)
	f := baseFields()
	f.AmountWithoutTax = 90

	_, errs := p.Process(f)
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrCodeAmountInconsistent, errs[0].Code)
	assert.Equal(t, domain.FieldTotalAmount, errs[0].Field)
}

func TestReconcile_DerivesMissingSubtotal(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.AmountWithoutTax = 0

	warnings, errs := p.Process(f)
	assert.Empty(t, errs)
	assert.InDelta(t, 100.0, f.AmountWithoutTax, 1e-9)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldAmountWithoutTax && w.Severity == domain.SeverityLow {
			found = true
		}
	}
	assert.True(t, found)
}

func TestReconcile_DerivesMissingTax(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.TaxAmount = 0

	warnings, errs := p.Process(f)
	assert.Empty(t, errs)
	assert.InDelta(t, 13.0, f.TaxAmount, 1e-9)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldTaxAmount && w.Severity == domain.SeverityLow {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTaxRate_ZeroTaxAtNonZeroReferenceWarnsHigh(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeGeneral
	f.TotalAmount = 100
	f.AmountWithoutTax = 100
	f.TaxAmount = 0

	warnings, errs := p.Process(f)
	assert.Empty(t, errs)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldTaxAmount && w.Severity == domain.SeverityHigh {
			found = true
		}
	}
	assert.True(t, found, "zero tax against a 13%% reference must warn")
}

func TestTaxRate_WithinDeltaIsSilent(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeSpecial

	warnings, _ := p.Process(f)
	for _, w := range warnings {
		assert.NotEqual(t, domain.SeverityHigh, w.Severity)
	}
}

func TestInferInvoiceType(t *testing.T) {
	tests := []struct {
		name     string
		number   string
		code     string
		expected domain.InvoiceType
	}{
		{"electronic from code", "12345678", "044001911111", domain.InvoiceTypeElectronic},
		{"general from 8-digit number", "12345678", "", domain.InvoiceTypeGeneral},
		{"special from 12-digit number", "123456789012", "", domain.InvoiceTypeSpecial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProcessor(t, true)
			f := baseFields()
			f.InvoiceNumber = tt.number
			f.InvoiceCode = tt.code
			f.InvoiceType = ""

			warnings, _ := p.Process(f)
			assert.Equal(t, tt.expected, f.InvoiceType)

			found := false
			for _, w := range warnings {
				if w.Field == domain.FieldInvoiceType {
					found = true
					assert.Equal(t, domain.SeverityLow, w.Severity)
				}
			}
			assert.True(t, found)
		})
	}
}

func TestInferInvoiceType_ObservedTypeKept(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeSpecial

	p.Process(f)
	assert.Equal(t, domain.InvoiceTypeSpecial, f.InvoiceType)
}

func TestCrossField_ConsumptionAfterInvoiceDate(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.ConsumptionDate = "2024-03-20"

	warnings, _ := p.Process(f)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldConsumptionDate && w.Severity == domain.SeverityMedium {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCrossField_SameSellerAndBuyerName(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.BuyerName = f.SellerName

	warnings, _ := p.Process(f)

	found := false
	for _, w := range warnings {
		if w.Field == domain.FieldBuyerName && w.Severity == domain.SeverityHigh {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCrossField_SharedTaxNumberIsRecoverable(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.SellerTaxNumber = "91110108MA01C8JU7H"
	f.BuyerTaxNumber = "91110108MA01C8JU7H"

	_, errs := p.Process(f)
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrCodeDuplicateTaxNumber, errs[0].Code)
	assert.True(t, errs[0].Recoverable)
}

func TestProcess_Idempotent(t *testing.T) {
	p := testProcessor(t, true)
	f := baseFields()
	f.InvoiceType = domain.InvoiceTypeGeneral
	f.AmountWithoutTax = 90

	p.Process(f)
	corrected := *f

	warnings, errs := p.Process(f)
	assert.Empty(t, warnings)
	assert.Empty(t, errs)
	assert.Equal(t, corrected, *f)
}

func TestQualityScore(t *testing.T) {
	p := testProcessor(t, true)

	t.Run("complete record", func(t *testing.T) {
		f := baseFields()
		f.InvoiceCode = "044001911111"
		f.SellerTaxNumber = "91110108MA01C8JU7H"
		f.BuyerName = "上海贸易有限公司"
		f.BuyerTaxNumber = "91310000MA1FL1111X"
		f.ConsumptionDate = "2024-03-10"
		f.InvoiceType = domain.InvoiceTypeGeneral
		f.Remarks = "办公用品"

		assert.InDelta(t, 100.0, p.QualityScore(f, 0, 0), 1e-9)
	})

	t.Run("missing optionals and diagnostics", func(t *testing.T) {
		f := baseFields() // all 7 optional fields empty
		score := p.QualityScore(f, 2, 1)
		assert.InDelta(t, 100-7*5-2*2-10, score, 1e-9)
	})

	t.Run("clamped at zero", func(t *testing.T) {
		f := &domain.InvoiceFields{}
		assert.InDelta(t, 0.0, p.QualityScore(f, 20, 10), 1e-9)
	})
}

func TestQualityScore_Monotonic(t *testing.T) {
	p := testProcessor(t, true)

	t.Run("never increases with more diagnostics", func(t *testing.T) {
		f := baseFields()
		counts := []struct{ warnings, errors int }{
			{0, 0}, {1, 0}, {3, 0}, {0, 1}, {1, 1}, {5, 2}, {10, 5},
		}
		prevByErrors := map[int]float64{}
		for _, c := range counts {
			score := p.QualityScore(f, c.warnings, c.errors)
			assert.GreaterOrEqual(t, p.QualityScore(f, 0, 0), score)
			if prev, ok := prevByErrors[c.errors]; ok {
				assert.LessOrEqual(t, score, prev,
					"score rose from %v with %d warnings, %d errors", prev, c.warnings, c.errors)
			}
			prevByErrors[c.errors] = score
		}
	})

	t.Run("never increases as fields go missing", func(t *testing.T) {
		full := baseFields()
		full.InvoiceCode = "044001911111"
		full.SellerTaxNumber = "91110108MA01C8JU7H"
		full.BuyerName = "上海贸易有限公司"
		full.BuyerTaxNumber = "91310000MA1FL1111X"
		full.ConsumptionDate = "2024-03-10"
		full.InvoiceType = domain.InvoiceTypeGeneral
		full.Remarks = "办公用品"

		prev := p.QualityScore(full, 0, 0)

		degrade := []func(*domain.InvoiceFields){
			func(f *domain.InvoiceFields) { f.Remarks = "" },
			func(f *domain.InvoiceFields) { f.ConsumptionDate = "" },
			func(f *domain.InvoiceFields) { f.BuyerTaxNumber = "" },
			func(f *domain.InvoiceFields) { f.BuyerName = "" },
			func(f *domain.InvoiceFields) { f.SellerName = "" },
			func(f *domain.InvoiceFields) { f.TotalAmount = 0 },
		}
		for _, d := range degrade {
			d(full)
			score := p.QualityScore(full, 0, 0)
			assert.LessOrEqual(t, score, prev)
			prev = score
		}
	})
}
