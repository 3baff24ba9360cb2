package main

import (
	"fmt"
	"os"

	"github.com/marcelsud/webhook-dispatch/forward"
)

/* validate-targets - Standalone CLI tool to validate targets.yaml
 * Usage: go run cmd/validate-targets/main.go [targets.yaml]
 * Exit codes: 0 = valid, 1 = invalid
 */

func main() {
	// Get targets file path from args or use default
	targetsFile := "targets.yaml"
	if len(os.Args) > 1 {
		targetsFile = os.Args[1]
	}

	fmt.Printf("Validating targets file: %s\n", targetsFile)

	// Create loader and attempt to load targets
	loader := forward.NewLoader()
	if err := loader.Load(targetsFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ VALIDATION FAILED\n\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Success - print loaded targets
	targets := loader.List()
	fmt.Printf("✓ VALIDATION PASSED\n\n")
	fmt.Printf("Loaded %d target(s):\n", len(targets))

	for i, target := range targets {
		fmt.Printf("\n%d. Target: %s\n", i+1, target.Name)
		fmt.Printf("   Target URL:      %s\n", target.TargetURL)
		if target.EventType != "" {
			fmt.Printf("   Event Type:      %s\n", target.EventType)
		} else {
			fmt.Printf("   Event Type:      (all)\n")
		}
		fmt.Printf("   Priority:        %d\n", target.Priority)
		fmt.Printf("   Timeout:         %s\n", target.Timeout)
		if target.SigningSecret != "" {
			fmt.Printf("   Signing:         enabled\n")
		}
		if target.ExpectedStatus != 0 {
			fmt.Printf("   Expected Status: %d\n", target.ExpectedStatus)
		}
	}

	fmt.Printf("\n✓ All targets are valid!\n")
	os.Exit(0)
}
