package runner

// Test-only exports for internal functions.
var Within = within
