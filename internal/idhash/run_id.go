// Package idhash computes deterministic identifiers so identical runs and
// trades hash to identical ids across processes.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run id using SHA256.
// Formula: SHA256(strategy_id|config_fingerprint|start_ms|end_ms)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(strategyID, configFingerprint string, startMs, endMs int64) string {
	data := fmt.Sprintf("%s|%s|%d|%d", strategyID, configFingerprint, startMs, endMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(run_id|token|position_id)
func ComputeTradeID(runID, token string, positionID int64) string {
	data := fmt.Sprintf("%s|%s|%d", runID, token, positionID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
