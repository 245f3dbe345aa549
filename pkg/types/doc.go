// Package types defines the quantum state value, checkpoint, and
// verification types shared by the Quanta engine packages, plus the
// Archive interface and standard errors.
// Implements: prd001-state-model (QuantumState, Checkpoint, VerificationResult, errors); docs/ARCHITECTURE § Main Interface.
package types
