package categorize

import (
	"sort"
	"strings"
	"unicode"
)

// Label is a suggested template for quotation terms.
type Label string

const (
	LabelDelivery     Label = "delivery"
	LabelInstallation Label = "installation"
	LabelWarranty     Label = "warranty"
	LabelPayment      Label = "payment"
	LabelDiscount     Label = "discount"
	LabelMaterials    Label = "materials"
	LabelGeneral      Label = "general"
)

// Labels lists every label a classifier may return, general last.
var Labels = []Label{
	LabelDelivery,
	LabelInstallation,
	LabelWarranty,
	LabelPayment,
	LabelDiscount,
	LabelMaterials,
	LabelGeneral,
}

// ParseLabel normalizes model output into a known label.
func ParseLabel(value string) (Label, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.Trim(value, "\"'.`")
	for _, label := range Labels {
		if string(label) == value {
			return label, true
		}
	}
	return "", false
}

var keywords = map[Label][]string{
	LabelDelivery:     {"deliver", "delivery", "shipping", "ship", "dispatch", "pickup", "transport", "freight"},
	LabelInstallation: {"install", "installation", "fitting", "setup", "labor", "labour", "mount"},
	LabelWarranty:     {"warranty", "guarantee", "guaranteed", "replacement", "defect", "defects"},
	LabelPayment:      {"payment", "pay", "advance", "deposit", "cash", "installment", "invoice", "upfront"},
	LabelDiscount:     {"discount", "off", "offer", "bulk", "rebate", "promo", "sale"},
	LabelMaterials:    {"cement", "brick", "bricks", "sand", "steel", "tiles", "paint", "wood", "timber", "pipe", "pipes", "grade"},
}

// KeywordClassifier scores terms against fixed keyword lists.
type KeywordClassifier struct{}

// Classify returns the label with the most keyword hits. Ties resolve in
// Labels order and no hits yields LabelGeneral.
func (KeywordClassifier) Classify(terms string) Label {
	tokens := tokenize(terms)
	if len(tokens) == 0 {
		return LabelGeneral
	}

	scores := make(map[Label]int, len(keywords))
	for _, token := range tokens {
		for label, words := range keywords {
			if containsWord(words, token) {
				scores[label]++
			}
		}
	}

	ranked := make([]Label, 0, len(scores))
	for label, score := range scores {
		if score > 0 {
			ranked = append(ranked, label)
		}
	}
	if len(ranked) == 0 {
		return LabelGeneral
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return labelIndex(ranked[i]) < labelIndex(ranked[j])
	})
	return ranked[0]
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsWord(words []string, token string) bool {
	for _, word := range words {
		if word == token {
			return true
		}
	}
	return false
}

func labelIndex(label Label) int {
	for i, candidate := range Labels {
		if candidate == label {
			return i
		}
	}
	return len(Labels)
}
