package database

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
)

// nextRevision returns the revision following rev: "<generation+1>-<32 hex>".
func nextRevision(rev string) string {
	return strconv.FormatUint(revisionGeneration(rev)+1, 10) + "-" + randomHex()
}

// revisionGeneration returns the generation of rev, or 0 if rev is empty or
// malformed.
func revisionGeneration(rev string) uint64 {
	genText, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	gen, err := strconv.ParseUint(genText, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

// newDocumentID returns a fresh document identifier.
func newDocumentID() string {
	return randomHex()
}

func randomHex() string {
	return hex.EncodeToString(uuid.Must(uuid.NewV4()).Bytes())
}
