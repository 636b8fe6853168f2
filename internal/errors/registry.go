package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// Registered codes referenced by other packages.
const (
	CodeConfigRead      = "E120"
	CodeConfigNotFound  = "E121"
	CodeInvalidPort     = "E122"
	CodeInvalidRoot     = "E123"
	CodeInvalidPattern  = "E124"
	CodeInvalidTemplate = "E125"
	CodeInvalidFlag     = "E140"
	CodeAddressInUse    = "E150"
	CodeListenFailed    = "E151"
	CodeStepFailed      = "E152"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	CodeConfigRead: {
		Category:   CategoryConfig,
		Message:    "Failed to read configuration",
		Suggestion: "Check that the config file is valid JSON or YAML",
	},
	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Pass --config with the path of an existing devstatic.json or devstatic.yaml",
	},
	CodeInvalidPort: {
		Category:   CategoryConfig,
		Message:    "Invalid port",
		Suggestion: "Ports must be between 0 and 65535 and the two listeners must differ",
	},
	CodeInvalidRoot: {
		Category:   CategoryConfig,
		Message:    "Invalid root directory",
		Suggestion: "Point root at an existing directory",
	},
	CodeInvalidPattern: {
		Category:   CategoryConfig,
		Message:    "Invalid rule pattern",
		Suggestion: `Patterns use RE2 syntax and are anchored at "/" automatically`,
	},
	CodeInvalidTemplate: {
		Category:   CategoryConfig,
		Message:    "Invalid template",
		Suggestion: "Check the template file path and its syntax",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	CodeInvalidFlag: {
		Category:   CategoryCLI,
		Message:    "Invalid flag value",
		Suggestion: `Use the form "pattern=value"`,
	},

	// ============================================
	// Listener Errors (E150-E159)
	// ============================================

	CodeAddressInUse: {
		Category:   CategoryBind,
		Message:    "Address already in use",
		Suggestion: "Stop the other process or choose another port with --port",
	},
	CodeListenFailed: {
		Category: CategoryBind,
		Message:  "Failed to start listener",
	},
	CodeStepFailed: {
		Category: CategoryRuntime,
		Message:  "Task step failed",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
