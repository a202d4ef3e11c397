package expand

import "fmt"

// Strategy selects which citation adapters an expansion calls.
type Strategy string

const (
	Forward   Strategy = "forward"
	Backward  Strategy = "backward"
	Both      Strategy = "both"
	Recommend Strategy = "recommend"
	All       Strategy = "all"
)

// ParseStrategy converts a string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	st := Strategy(s)
	switch st {
	case Forward, Backward, Both, Recommend, All:
		return st, nil
	}
	return "", fmt.Errorf("unknown strategy %q (valid: forward, backward, both, recommend, all)", s)
}

func (s Strategy) forward() bool   { return s == Forward || s == Both || s == All }
func (s Strategy) backward() bool  { return s == Backward || s == Both || s == All }
func (s Strategy) recommend() bool { return s == Recommend || s == All }
