package sub

// This file should never be scanned: it matches the generated-file
// exclusion rule.

func ShouldNotBeFound() {}
