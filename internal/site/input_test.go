package site

import "testing"

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		workdir string
		want    Input
		wantErr bool
	}{
		{
			name:  "host path",
			input: "./website /src",
			want:  Input{Source: "./website", Dest: "/src"},
		},
		{
			name:  "step artifact",
			input: "build:/src/build /website",
			want:  Input{Step: "build", Source: "/src/build", Dest: "/website"},
		},
		{
			name:    "relative dest with workdir",
			input:   "file.txt out/",
			workdir: "/app",
			want:    Input{Source: "file.txt", Dest: "/app/out"},
		},
		{
			name:    "relative dest without workdir",
			input:   "file.txt out/",
			wantErr: true,
		},
		{
			name:    "missing destination",
			input:   "file.txt",
			wantErr: true,
		},
		{
			name:    "too many tokens",
			input:   "a b c",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.input, tt.workdir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseInput(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStepSource(t *testing.T) {
	tests := []struct {
		name  string
		input string
		step  string
		path  string
		ok    bool
	}{
		{
			name:  "valid step source",
			input: "build:/app/bin",
			step:  "build",
			path:  "/app/bin",
			ok:    true,
		},
		{
			name:  "no colon",
			input: "/usr/local/bin",
		},
		{
			name:  "colon at start",
			input: ":/some/path",
		},
		{
			name:  "colon after slash",
			input: "/foo:bar",
		},
		{
			name:  "slash in prefix",
			input: "some/step:path",
		},
		{
			name:  "simple host path",
			input: "file.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, path, ok := parseStepSource(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if step != tt.step {
				t.Errorf("step = %q, want %q", step, tt.step)
			}
			if path != tt.path {
				t.Errorf("path = %q, want %q", path, tt.path)
			}
		})
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/src/build", "/src/build", true},
		{"/src/build", "/src/build/assets", true},
		{"/src/build/", "/src/build/index.html", true},
		{"/src/build", "/src", false},
		{"/src/build", "/src/buildx", false},
		{"/src/build", "/src/build/../secrets", false},
	}

	for _, tt := range tests {
		if got := within(tt.dir, tt.path); got != tt.want {
			t.Errorf("within(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
