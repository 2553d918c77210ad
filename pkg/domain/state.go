package domain

// CallState is the position of a call in the flow state machine.
type CallState string

const (
	StateEntry          CallState = "entry"
	StateLanguageSelect CallState = "language_select"
	StateConversing     CallState = "conversing"
	StateTerminated     CallState = "terminated"
)
