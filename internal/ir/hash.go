package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainShape  = "dynquery/shape/v1"
	DomainRecord = "dynquery/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the domain-separated SHA-256 of v's canonical JSON.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RecordHash identifies a record by content. Execution layers use it to
// compare result sets without relying on map iteration order.
func RecordHash(rec IRObject) (string, error) {
	return Hash(DomainRecord, rec)
}

// MustRecordHash is like RecordHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordHash(rec IRObject) string {
	h, err := RecordHash(rec)
	if err != nil {
		panic(err)
	}
	return h
}
