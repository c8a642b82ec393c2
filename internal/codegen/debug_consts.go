package codegen

// These consts are used various places in the code generator.
// Instead of defining them in each file, we define them here so that we can quickly iterate on
// debugging without spending "where do we have debug logging?" time.

// ----- Debug logging -----
// These consts must be disabled by default. Enable them only when debugging.

const (
	// LoggingEnabled prints the trace of every method to stdout, in addition to Options.Trace.
	LoggingEnabled = false
)

// ----- Output prints -----
// These consts must be disabled by default. Enable them only when debugging.

const (
	// PrintGCLabels prints the GC snapshot recorded at each block label.
	PrintGCLabels = false
	// PrintBlockListing prints the listing so far after each block, when generating into a listing.
	PrintBlockListing = false
)

// ----- Validations -----
// These consts must be enabled by default until we reach the point where we can disable them.

const (
	// ValidationEnabledByDefault is the default of lirgen.CompilerConfig.WithValidation.
	ValidationEnabledByDefault = true
)
