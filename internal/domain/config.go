package domain

// KeyPrefix namespaces every key opsearch writes to Redis/Valkey.
const KeyPrefix = "opsearch:"

// Reference operator fields.
const (
	FieldRegistration = "registro_ans"
	FieldTaxID        = "cnpj"
	FieldLegalName    = "razao_social"
	FieldTradeName    = "nome_fantasia"
	FieldModality     = "modalidade"
)

// DefaultSearchFields returns the projection used when none is configured.
func DefaultSearchFields() []string {
	return []string{FieldRegistration, FieldTaxID, FieldLegalName, FieldTradeName}
}
