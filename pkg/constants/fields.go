package constants

// Well-known contract data keys shared by the built-in contract types
const (
	FieldContractTitle    = "contractTitle"
	FieldContractSignDate = "contractSignDate"
	FieldPartyAName       = "partyAName"
	FieldPartyBName       = "partyBName"
)

// Role labels used when no party name has been entered
const (
	DefaultPartyA     = "甲"
	DefaultPartyB     = "乙"
	DefaultSignatureA = "{{甲氏名　住所　印}}"
	DefaultSignatureB = "{{乙氏名　住所　印}}"
	DefaultSignDate   = "{{契約締結日}}"
)

// PartyANameFields lists the party A name fields in lookup order
func PartyANameFields() []string {
	return []string{"contractorName", "employerName", "discloserName", "landlordName", "sellerName", FieldPartyAName}
}

// PartyBNameFields lists the party B name fields in lookup order
func PartyBNameFields() []string {
	return []string{"clientName", "employeeName", "recipientName", "tenantName", "buyerName", FieldPartyBName}
}

// PartyASignatureFields lists the party A signature fields in lookup order
func PartyASignatureFields() []string {
	return []string{"contractorSignature", "employerSignature", "discloserSignature", "landlordSignature", "sellerSignature"}
}

// PartyBSignatureFields lists the party B signature fields in lookup order
func PartyBSignatureFields() []string {
	return []string{"clientSignature", "employeeSignature", "recipientSignature", "tenantSignature", "buyerSignature"}
}
