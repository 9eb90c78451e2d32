package domain

// Vote is the tri-state relevance feedback of one record.
type Vote int

const (
	// VoteUnset means no feedback.
	VoteUnset Vote = iota
	// VoteLike marks the record relevant.
	VoteLike
	// VoteDislike marks the record not relevant.
	VoteDislike
)

// Toggle returns the vote after clicking clicked: the same button twice clears it.
func (v Vote) Toggle(clicked Vote) Vote {
	if v == clicked {
		return VoteUnset
	}
	return clicked
}

// IsRelevant maps the vote to the wire value. Unset maps to nil.
func (v Vote) IsRelevant() *bool {
	switch v {
	case VoteLike:
		t := true
		return &t
	case VoteDislike:
		f := false
		return &f
	default:
		return nil
	}
}

func (v Vote) String() string {
	switch v {
	case VoteLike:
		return "like"
	case VoteDislike:
		return "dislike"
	default:
		return "unset"
	}
}

// ParseVote parses "like" or "dislike".
func ParseVote(s string) (Vote, bool) {
	switch s {
	case "like":
		return VoteLike, true
	case "dislike":
		return VoteDislike, true
	default:
		return VoteUnset, false
	}
}
