// Package textutil provides small text helpers shared by the chunker and the
// CLI: filesystem-safe tokens for directory names and display truncation.
package textutil
