// Package strictjson parses JSON payloads under a strict policy: duplicate
// keys are detected in document order, dangerous keys and disallowed paths
// are rejected, nesting depth is bounded, and oversized bodies are refused
// before any parsing work happens. Validation results for identical payloads
// are cached, and structured rejection events can be fanned out to audit
// sinks.
package strictjson

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version is the current release of strictjson-go.
const Version = "1.4.0"

var majorVersionAsserted bool

// RequireMajor crashes the process if the strictjson major version does not
// match the required version. Services must call this at the top of main()
// before constructing parsers or using any other strictjson module.
func RequireMajor(required int) {
	majorVersionAsserted = true
	parts := strings.SplitN(Version, ".", 2)
	actual, _ := strconv.Atoi(parts[0])
	if actual != required {
		fmt.Fprintf(os.Stderr,
			"FATAL: Service requires strictjson v%d but v%s is installed.\n"+
				"Review the v%d migration guide and update your RequireMajor(%d) call.\n",
			required, Version, actual, actual)
		os.Exit(1)
	}
}

// AssertVersionChecked crashes if RequireMajor has not been called yet.
// Entry points of this module call this before doing any work.
func AssertVersionChecked() {
	if !majorVersionAsserted {
		fmt.Fprintf(os.Stderr,
			"FATAL: strictjson.RequireMajor() must be called before using strictjson.\n"+
				"Add strictjson.RequireMajor(1) to main() before any other strictjson calls.\n")
		os.Exit(1)
	}
}

// ResetVersionCheck is for testing purposes only - resets the version assertion state.
func ResetVersionCheck() {
	majorVersionAsserted = false
}
