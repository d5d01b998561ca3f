// Package verdict turns classifier output into human-readable rejection
// reasons.
package verdict

// Label is the classifier's content category.
type Label int

const (
	LabelUnrecognized Label = iota
	LabelPolitical
	LabelPornographic
	LabelIllegal
	LabelTerrorism
	LabelSuggestive
	LabelNormal
)

// Category is a parsed label. Raw keeps the classifier's original string so
// unrecognized categories can still be shown.
type Category struct {
	Label Label
	Raw   string
}

// ParseLabel maps the classifier vocabulary onto Label.
func ParseLabel(raw string) Category {
	c := Category{Raw: raw}
	switch raw {
	case "Polity":
		c.Label = LabelPolitical
	case "Porn":
		c.Label = LabelPornographic
	case "Illegal":
		c.Label = LabelIllegal
	case "Terror":
		c.Label = LabelTerrorism
	case "Sexy":
		c.Label = LabelSuggestive
	case "Normal":
		c.Label = LabelNormal
	default:
		c.Label = LabelUnrecognized
	}
	return c
}

// Text returns the display name, or the raw label when unrecognized.
func (c Category) Text() string {
	switch c.Label {
	case LabelPolitical:
		return "political"
	case LabelPornographic:
		return "pornographic"
	case LabelIllegal:
		return "illegal"
	case LabelTerrorism:
		return "terrorism"
	case LabelSuggestive:
		return "suggestive"
	case LabelNormal:
		return "normal"
	case LabelUnrecognized:
		return c.Raw
	}
	return c.Raw
}

// Suggestion is the classifier's recommended action.
type Suggestion int

const (
	SuggestionUnrecognized Suggestion = iota
	SuggestionBlock
	SuggestionPass
	SuggestionReview
)

// Advice is a parsed suggestion with its raw value.
type Advice struct {
	Suggestion Suggestion
	Raw        string
}

// ParseSuggestion maps Block/Pass/Review onto Suggestion.
func ParseSuggestion(raw string) Advice {
	a := Advice{Raw: raw}
	switch raw {
	case "Block":
		a.Suggestion = SuggestionBlock
	case "Pass":
		a.Suggestion = SuggestionPass
	case "Review":
		a.Suggestion = SuggestionReview
	default:
		a.Suggestion = SuggestionUnrecognized
	}
	return a
}

// Text returns the display name, or the raw value when unrecognized.
func (a Advice) Text() string {
	switch a.Suggestion {
	case SuggestionBlock:
		return "reject"
	case SuggestionPass:
		return "approve"
	case SuggestionReview:
		return "manual review"
	case SuggestionUnrecognized:
		return a.Raw
	}
	return a.Raw
}
