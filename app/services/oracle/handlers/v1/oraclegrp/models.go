package oraclegrp

// submitAttestation is the payload for submitting a signed price
// attestation. The price is a base 10 integer string in the feed's fixed
// point representation and the signature is the hex encoded 65 byte
// [R|S|V] value.
type submitAttestation struct {
	Price     string `json:"price" validate:"required"`
	Timestamp uint64 `json:"timestamp" validate:"required"`
	Sig       string `json:"sig" validate:"required"`
}

// mintQuote is the payload for pricing a payment against a signed
// attestation.
type mintQuote struct {
	submitAttestation
	Payment string `json:"payment" validate:"required"`
}

// acceptedRecord is an attestation the verifier has committed.
type acceptedRecord struct {
	Price      string `json:"price"`
	Timestamp  uint64 `json:"timestamp"`
	Digest     string `json:"digest"`
	Signer     string `json:"signer"`
	SignerName string `json:"signer_name"`
	Sig        string `json:"sig"`
}
