package domain

// Canonical field names, used as synonym-table keys, diagnostic field labels
// and required/optional field lists.
const (
	FieldInvoiceNumber    = "invoice_number"
	FieldInvoiceCode      = "invoice_code"
	FieldSellerName       = "seller_name"
	FieldSellerTaxNumber  = "seller_tax_number"
	FieldBuyerName        = "buyer_name"
	FieldBuyerTaxNumber   = "buyer_tax_number"
	FieldTotalAmount      = "total_amount"
	FieldAmountWithoutTax = "amount_without_tax"
	FieldTaxAmount        = "tax_amount"
	FieldCurrency         = "currency"
	FieldInvoiceDate      = "invoice_date"
	FieldConsumptionDate  = "consumption_date"
	FieldInvoiceType      = "invoice_type"
	FieldRemarks          = "remarks"
)

// IsEmpty reports whether the named canonical slot is unpopulated. Monetary
// slots count as empty at exactly zero; unknown names count as empty.
func (f *InvoiceFields) IsEmpty(field string) bool {
	switch field {
	case FieldInvoiceNumber:
		return f.InvoiceNumber == ""
	case FieldInvoiceCode:
		return f.InvoiceCode == ""
	case FieldSellerName:
		return f.SellerName == ""
	case FieldSellerTaxNumber:
		return f.SellerTaxNumber == ""
	case FieldBuyerName:
		return f.BuyerName == ""
	case FieldBuyerTaxNumber:
		return f.BuyerTaxNumber == ""
	case FieldTotalAmount:
		return f.TotalAmount == 0
	case FieldAmountWithoutTax:
		return f.AmountWithoutTax == 0
	case FieldTaxAmount:
		return f.TaxAmount == 0
	case FieldCurrency:
		return f.Currency == ""
	case FieldInvoiceDate:
		return f.InvoiceDate == ""
	case FieldConsumptionDate:
		return f.ConsumptionDate == ""
	case FieldInvoiceType:
		return f.InvoiceType == ""
	case FieldRemarks:
		return f.Remarks == ""
	default:
		return true
	}
}

// PopulatedCount returns how many canonical slots hold a value.
func (f *InvoiceFields) PopulatedCount() int {
	all := []string{
		FieldInvoiceNumber, FieldInvoiceCode, FieldSellerName,
		FieldSellerTaxNumber, FieldBuyerName, FieldBuyerTaxNumber,
		FieldTotalAmount, FieldAmountWithoutTax, FieldTaxAmount,
		FieldCurrency, FieldInvoiceDate, FieldConsumptionDate,
		FieldInvoiceType, FieldRemarks,
	}
	count := 0
	for _, name := range all {
		if !f.IsEmpty(name) {
			count++
		}
	}
	return count
}
