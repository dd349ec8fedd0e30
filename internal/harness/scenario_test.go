package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: smoke
description: minimal valid scenario
room:
  name: Smoke room
  currency: INR
  participants:
    - id: a
      name: A
    - id: b
      weight: 2
events:
  - kind: contribution
    actor: a
    amount: "1.00"
expect:
  pool: "-1.00"
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "smoke", s.Name)
	assert.Equal(t, "INR", s.Room.Currency)
	require.Len(t, s.Room.Participants, 2)
	assert.Equal(t, int64(0), s.Room.Participants[0].Weight)
	assert.Equal(t, int64(2), s.Room.Participants[1].Weight)
	require.Len(t, s.Events, 1)
	assert.Equal(t, KindContribution, s.Events[0].Kind)
	assert.Equal(t, "-1.00", s.Expect.Pool)
}

func TestLoadScenario_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}]
events: [{kind: contribution, actor: a, amount: "1.00"}]
`,
			wantErr: "name is required",
		},
		{
			name: "no participants",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: []
events: [{kind: contribution, actor: a, amount: "1.00"}]
`,
			wantErr: "room.participants",
		},
		{
			name: "duplicate participant",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}, {id: a}]
events: [{kind: contribution, actor: a, amount: "1.00"}]
`,
			wantErr: "duplicate id",
		},
		{
			name: "unknown kind",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}]
events: [{kind: transfer, actor: a, amount: "1.00"}]
`,
			wantErr: "unknown kind",
		},
		{
			name: "contribution with shares",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}]
events: [{kind: contribution, actor: a, amount: "1.00", shares: {a: "1.00"}}]
`,
			wantErr: "contributions take no policy or shares",
		},
		{
			name: "incomplete transfer expectation",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}]
events: [{kind: contribution, actor: a, amount: "1.00"}]
expect:
  transfers: [{from: a, amount: "1.00"}]
`,
			wantErr: "expect.transfers[0]",
		},
		{
			name: "unknown field",
			content: `
name: n
description: d
room:
  name: r
  currency: INR
  participants: [{id: a}]
events: [{kind: contribution, actor: a, amount: "1.00"}]
budget: 12
`,
			wantErr: "failed to parse YAML",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
