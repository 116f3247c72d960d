package domain

// KeyPrefix namespaces every Redis key the service owns. Overridden once at
// startup from configuration, before any store access.
var KeyPrefix = "rankd:"
