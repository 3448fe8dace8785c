// Package store handles the lower level support for archiving accepted
// attestations so replay protection survives a restart.
package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Record represents an accepted attestation as archived by the verifier.
type Record struct {
	Price     *big.Int       `json:"price"`     // Price accepted into state.
	Timestamp uint64         `json:"timestamp"` // Attestation timestamp, strictly increasing across records.
	Digest    common.Hash    `json:"digest"`    // Replay key for the attestation.
	Signer    common.Address `json:"signer"`    // Account that signed the attestation.
	Sig       hexutil.Bytes  `json:"sig"`       // Signature the attestation carried.
}

// Archiver interface represents the behavior required to be implemented by
// any package providing support for storing and reading accepted records.
type Archiver interface {
	Write(rec Record) error
	GetRecord(timestamp uint64) (Record, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by
// any package providing support to iterate over the records.
type Iterator interface {
	Next() (Record, error)
	Done() bool
}
