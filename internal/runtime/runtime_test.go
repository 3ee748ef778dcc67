package runtime

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeRef(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "node:18-alpine", want: "docker.io/library/node:18-alpine"},
		{ref: "amazon/aws-cli:latest", want: "docker.io/amazon/aws-cli:latest"},
		{ref: "amazon/aws-cli", want: "docker.io/amazon/aws-cli:latest"},
		{ref: "ghcr.io/acme/builder:1.2", want: "ghcr.io/acme/builder:1.2"},
		{ref: "Node:18", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := normalizeRef(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrImageRef) {
					t.Fatalf("err = %v, want ErrImageRef", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("normalizeRef(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestDefaultPlatform(t *testing.T) {
	p := defaultPlatform()
	if !strings.HasPrefix(p, "linux/") {
		t.Fatalf("defaultPlatform = %q, want linux/<arch>", p)
	}
	parts := strings.Split(p, "/")
	if len(parts) != 2 || parts[1] == "" {
		t.Fatalf("defaultPlatform = %q, want linux/<arch>", p)
	}
}

func TestWithSnapshotter(t *testing.T) {
	rt := &Runtime{snapshotter: DefaultSnapshotter}

	WithSnapshotter("")(rt)
	if rt.snapshotter != DefaultSnapshotter {
		t.Fatalf("empty name changed snapshotter to %q", rt.snapshotter)
	}

	WithSnapshotter("fuse-overlayfs")(rt)
	if rt.snapshotter != "fuse-overlayfs" {
		t.Fatalf("snapshotter = %q, want fuse-overlayfs", rt.snapshotter)
	}
}
