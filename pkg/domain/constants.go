package domain

// MaxHistory is the upper bound on turns retained per session.
// Truncation always drops the oldest turns first.
const MaxHistory = 20

// DefaultMaxTokens caps the length of a generated reply. Voice answers should
// stay within a few sentences.
const DefaultMaxTokens int64 = 300
