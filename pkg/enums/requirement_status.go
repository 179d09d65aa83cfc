package enums

import "slices"

// RequirementStatus is the requirement lifecycle. Open moves to Purchased
// exactly once and Purchased is terminal.
type RequirementStatus string

const (
	RequirementStatusOpen      RequirementStatus = "open"
	RequirementStatusPurchased RequirementStatus = "purchased"
)

var requirementStatuses = []RequirementStatus{RequirementStatusOpen, RequirementStatusPurchased}

func (s RequirementStatus) String() string { return string(s) }

func (s RequirementStatus) IsValid() bool { return slices.Contains(requirementStatuses, s) }

// AcceptsQuotations reports whether shops may still submit or edit quotations.
func (s RequirementStatus) AcceptsQuotations() bool { return s == RequirementStatusOpen }

func (s RequirementStatus) CanTransitionTo(next RequirementStatus) bool {
	return s == RequirementStatusOpen && next == RequirementStatusPurchased
}

func ParseRequirementStatus(value string) (RequirementStatus, error) {
	return parseClosed("requirement status", requirementStatuses, value)
}
