package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeParticipantRoom() RoomDef {
	return RoomDef{
		Name:     "Test room",
		Currency: "INR",
		Participants: []ParticipantDef{
			{ID: "asha", Name: "Asha"},
			{ID: "balan", Name: "Balan"},
			{ID: "chitra", Name: "Chitra"},
		},
	}
}

func TestRun_MeetsExpectations(t *testing.T) {
	scenario := &Scenario{
		Name: "run-meets-expectations",
		Room: threeParticipantRoom(),
		Events: []EventStep{
			{Kind: KindContribution, Actor: "asha", Amount: "3.00"},
			{Kind: KindExpense, Actor: "balan", Amount: "1.50"},
		},
		Expect: Expectations{
			Balances:  map[string]string{"asha": "2.50", "balan": "1.00", "chitra": "-0.50"},
			Pool:      "-3.00",
			Positions: map[string]string{"asha": "1.50", "balan": "0.00", "chitra": "-1.50"},
			Transfers: []TransferExpect{{From: "chitra", To: "asha", Amount: "1.50"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Passed(), "failures: %v", result.Failures)
	assert.Equal(t, []int64{1, 2}, result.Applied)
	require.Len(t, result.Transfers, 1)
	assert.Equal(t, "1.00", result.Transfers[0].Score)
	require.Len(t, result.Expenses, 1)
	assert.Equal(t, "0.67", result.Expenses[0].Score)
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario := &Scenario{
		Name: "run-reports-mismatches",
		Room: threeParticipantRoom(),
		Events: []EventStep{
			{Kind: KindContribution, Actor: "asha", Amount: "3.00"},
		},
		Expect: Expectations{
			Balances: map[string]string{"asha": "9.99"},
			Pool:     "0.00",
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.Len(t, result.Failures, 2)
	assert.Contains(t, result.Failures[0], "balance[asha]")
}

func TestRun_ExpectedRejection(t *testing.T) {
	scenario := &Scenario{
		Name: "run-expected-rejection",
		Room: threeParticipantRoom(),
		Events: []EventStep{
			{
				Kind:   KindExpense,
				Actor:  "asha",
				Amount: "1.00",
				Policy: "exact",
				Shares: map[string]string{"asha": "0.30", "balan": "0.30"},
				Reject: "UNBALANCED_SHARES",
			},
			{Kind: KindContribution, Actor: "asha", Amount: "1.00"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, result.Passed(), "failures: %v", result.Failures)
	assert.Equal(t, map[int]string{0: "UNBALANCED_SHARES"}, result.Rejected)
	assert.Equal(t, []int64{1}, result.Applied)
	assert.Equal(t, "-1.00", result.Pool)
}

func TestRun_UnexpectedAcceptanceFails(t *testing.T) {
	scenario := &Scenario{
		Name: "run-unexpected-acceptance",
		Room: threeParticipantRoom(),
		Events: []EventStep{
			{Kind: KindContribution, Actor: "asha", Amount: "1.00", Reject: "NON_POSITIVE_AMOUNT"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.Contains(t, result.Failures[0], "expected rejection NON_POSITIVE_AMOUNT")
}
