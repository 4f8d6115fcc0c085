package rule

import "fmt"

// SyntaxError is returned when a rule does not match the rule grammar.
type SyntaxError struct {
	Rule    string // The raw rule as given
	Offset  int    // Byte offset of the offending character
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid conversion rule %q: %s at offset %d", e.Rule, e.Message, e.Offset)
}
