package interfaces

// Registry maps stock symbols to regulatory entity identifiers (CIKs).
type Registry interface {
	// Lookup returns the zero-padded CIK for a symbol, or false when the
	// symbol is not listed.
	Lookup(symbol string) (string, bool)
}
