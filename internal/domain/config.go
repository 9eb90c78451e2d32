package domain

// KeyPrefix namespaces every key written to a shared key-value store.
const KeyPrefix = "smartsearch:"

// DefaultMaxQueryRunes bounds the free-text part of a query, in code points.
const DefaultMaxQueryRunes = 300

// DefaultPageSize is the admin product list page size.
const DefaultPageSize = 10
