package engine

// ValidateSource builds and immediately discards an Isolate from source,
// surfacing CompileError/ContractError without running any invocation.
// Used at deploy time to reject broken code eagerly instead of waiting
// for the first invocation to discover it.
func ValidateSource(source string, cfg Config) error {
	iso, err := newIsolate("validate", source, cfg)
	if err != nil {
		return err
	}
	iso.Close()
	return nil
}
