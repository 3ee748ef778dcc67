package runtime

import (
	"slices"
	"testing"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides []string
		want      []string
	}{
		{
			name:      "credentials override image env",
			base:      []string{"PATH=/usr/bin", "AWS_DEFAULT_REGION=us-east-1"},
			overrides: []string{"AWS_DEFAULT_REGION=ap-southeast-1", "AWS_ACCESS_KEY_ID=AK"},
			want:      []string{"AWS_ACCESS_KEY_ID=AK", "AWS_DEFAULT_REGION=ap-southeast-1", "PATH=/usr/bin"},
		},
		{
			name:      "image env only",
			base:      []string{"PATH=/usr/bin", "NODE_VERSION=18.20.4"},
			overrides: nil,
			want:      []string{"NODE_VERSION=18.20.4", "PATH=/usr/bin"},
		},
		{
			name:      "both empty",
			base:      nil,
			overrides: nil,
			want:      []string{},
		},
		{
			name:      "value containing equals",
			base:      nil,
			overrides: []string{"NODE_OPTIONS=--max-old-space-size=4096"},
			want:      []string{"NODE_OPTIONS=--max-old-space-size=4096"},
		},
		{
			name:      "entries without equals dropped",
			base:      []string{"NOEQUALS", "A=1"},
			overrides: []string{"ALSO_BAD", "B="},
			want:      []string{"A=1", "B="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeEnv(tt.base, tt.overrides)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("mergeEnv = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextExecID(t *testing.T) {
	a := nextExecID()
	b := nextExecID()
	if a == b {
		t.Fatalf("nextExecID returned duplicate: %q", a)
	}
	if a == "" || b == "" {
		t.Fatal("nextExecID returned empty string")
	}
}
