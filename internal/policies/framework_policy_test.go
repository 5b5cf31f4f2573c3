package policies

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		want    bool
	}{
		{name: "exact", targets: []string{"net7.0"}, want: true},
		{name: "platform suffix", targets: []string{"net7.0-windows"}, want: true},
		{name: "universal only", targets: []string{"netstandard2.0"}, want: true},
		{name: "other framework", targets: []string{"net6.0", "net48"}, want: false},
		{name: "empty", targets: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCompatible(tt.targets, "net7.0"))
		})
	}
}

func TestCandidateTargetsRequestedFirst(t *testing.T) {
	got := CandidateTargets([]string{"netstandard2.0", "net7.0", "net6.0"}, "net7.0")
	if diff := cmp.Diff([]string{"net7.0", "netstandard2.0", "net6.0"}, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestCandidateTargetsUniversalNewestFirst(t *testing.T) {
	got := CandidateTargets([]string{"netstandard2.0", "net6.0", "netstandard2.1"}, "net7.0")
	if diff := cmp.Diff([]string{"netstandard2.1", "netstandard2.0"}, got); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestIsUniversalTarget(t *testing.T) {
	assert.True(t, IsUniversalTarget("netstandard2.0"))
	assert.True(t, IsUniversalTarget("NETStandard1.3"))
	assert.False(t, IsUniversalTarget("net7.0"))
}
