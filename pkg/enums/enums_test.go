package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleIsLenient(t *testing.T) {
	for _, raw := range []string{"shop_owner", "shop-owner", " Shop-Owner "} {
		role, err := ParseRole(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, RoleShopOwner, role, raw)
	}
	_, err := ParseRole("contractor")
	assert.EqualError(t, err, `invalid role "contractor"`)
}

func TestRoleSelfRegistrable(t *testing.T) {
	assert.True(t, RoleHomeowner.SelfRegistrable())
	assert.True(t, RoleShopOwner.SelfRegistrable())
	assert.False(t, RoleAdmin.SelfRegistrable())
}

func TestRequirementStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to RequirementStatus
		allowed  bool
	}{
		{RequirementStatusOpen, RequirementStatusPurchased, true},
		{RequirementStatusPurchased, RequirementStatusOpen, false},
		{RequirementStatusPurchased, RequirementStatusPurchased, false},
		{RequirementStatusOpen, RequirementStatusOpen, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.True(t, RequirementStatusOpen.AcceptsQuotations())
	assert.False(t, RequirementStatusPurchased.AcceptsQuotations())
}

func TestClosedSetsAreExact(t *testing.T) {
	_, err := ParseOutboxEventType("quotation_accepted")
	assert.NoError(t, err)
	_, err = ParseOutboxEventType("Quotation_Accepted")
	assert.Error(t, err)
	_, err = ParseMediaKind("banner")
	assert.EqualError(t, err, `invalid media kind "banner"`)
	_, err = ParseRequirementStatus("closed")
	assert.Error(t, err)
	assert.False(t, NotificationType("promo").IsValid())
}

func TestEventAggregates(t *testing.T) {
	assert.Equal(t, AggregateRequirement, EventRequirementCreated.Aggregate())
	assert.Equal(t, AggregateRequirement, EventQuotationAccepted.Aggregate())
	assert.Equal(t, AggregateQuotation, EventQuotationSubmitted.Aggregate())
	assert.Equal(t, AggregateQuotation, EventQuotationUpdated.Aggregate())
}
