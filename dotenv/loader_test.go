package dotenv

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSequence(t *testing.T) {
	tests := []struct {
		in      string
		want    Sequence
		wantErr bool
	}{
		{in: "", want: InputThenEnv},
		{in: "input-then-env", want: InputThenEnv},
		{in: "ENV_THEN_INPUT", want: EnvThenInput},
		{in: "input-only", want: InputOnly},
		{in: " env-only ", want: EnvOnly},
		{in: "file-first", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSequence(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSequence(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSequence(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoaderSequences(t *testing.T) {
	const input = "SRC=envfile\nFOO=bar\n"

	tests := []struct {
		name string
		seq  Sequence
		want EnvMap
	}{
		{
			name: "input then env keeps existing values",
			seq:  InputThenEnv,
			want: EnvMap{"SRC": "env", "FOO": "bar", "OTHER": "x"},
		},
		{
			name: "env then input overrides",
			seq:  EnvThenInput,
			want: EnvMap{"SRC": "envfile", "FOO": "bar", "OTHER": "x"},
		},
		{
			name: "input only",
			seq:  InputOnly,
			want: EnvMap{"SRC": "envfile", "FOO": "bar"},
		},
		{
			name: "env only",
			seq:  EnvOnly,
			want: EnvMap{"SRC": "env", "OTHER": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := MapEnvironment{"SRC": "env", "OTHER": "x"}
			got, err := NewLoader(
				WithReader(strings.NewReader(input)),
				WithSequence(tt.seq),
				WithEnvironment(env),
			).Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(MapEnvironment{"SRC": "env", "OTHER": "x"}, env); diff != "" {
				t.Errorf("Load() modified the environment:\n%s", diff)
			}
		})
	}
}

func TestLoaderLoadAndModify(t *testing.T) {
	const input = "SRC=envfile\nFOO=bar\n"

	tests := []struct {
		name    string
		seq     Sequence
		wantEnv MapEnvironment
		wantMap EnvMap
	}{
		{
			name:    "input then env sets only missing keys",
			seq:     InputThenEnv,
			wantEnv: MapEnvironment{"SRC": "env", "FOO": "bar"},
			wantMap: EnvMap{"SRC": "env", "FOO": "bar"},
		},
		{
			name:    "env then input overrides",
			seq:     EnvThenInput,
			wantEnv: MapEnvironment{"SRC": "envfile", "FOO": "bar"},
			wantMap: EnvMap{"SRC": "envfile", "FOO": "bar"},
		},
		{
			name:    "input only overrides and returns input",
			seq:     InputOnly,
			wantEnv: MapEnvironment{"SRC": "envfile", "FOO": "bar"},
			wantMap: EnvMap{"SRC": "envfile", "FOO": "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := MapEnvironment{"SRC": "env"}
			got, err := NewLoader(
				WithReader(strings.NewReader(input)),
				WithSequence(tt.seq),
				WithEnvironment(env),
			).LoadAndModify()
			if err != nil {
				t.Fatalf("LoadAndModify() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantMap, got); diff != "" {
				t.Errorf("returned map mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantEnv, env); diff != "" {
				t.Errorf("environment mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("env only is invalid", func(t *testing.T) {
		_, err := NewLoader(WithReader(strings.NewReader(input)), WithSequence(EnvOnly)).LoadAndModify()
		if !errors.Is(err, ErrInvalidOp) {
			t.Errorf("LoadAndModify() error = %v, want ErrInvalidOp", err)
		}
	})

	t.Run("later lines see earlier writes", func(t *testing.T) {
		env := MapEnvironment{}
		got, err := NewLoader(
			WithReader(strings.NewReader("A=1\nB=${A}2\n")),
			WithSequence(InputOnly),
			WithEnvironment(env),
		).LoadAndModify()
		if err != nil {
			t.Fatalf("LoadAndModify() error = %v", err)
		}
		if got["B"] != "12" || env["B"] != "12" {
			t.Errorf("B = %q (env %q), want 12", got["B"], env["B"])
		}
	})

	t.Run("process environment", func(t *testing.T) {
		t.Setenv("DOTENVY_LOADER_SRC", "env")
		t.Setenv("DOTENVY_LOADER_FOO", "")
		os.Unsetenv("DOTENVY_LOADER_FOO")

		in := "DOTENVY_LOADER_SRC=envfile\nDOTENVY_LOADER_FOO=bar\n"
		if _, err := NewLoader(WithReader(strings.NewReader(in))).LoadAndModify(); err != nil {
			t.Fatalf("LoadAndModify() error = %v", err)
		}
		if got := os.Getenv("DOTENVY_LOADER_SRC"); got != "env" {
			t.Errorf("DOTENVY_LOADER_SRC = %q, want env", got)
		}
		if got := os.Getenv("DOTENVY_LOADER_FOO"); got != "bar" {
			t.Errorf("DOTENVY_LOADER_FOO = %q, want bar", got)
		}
	})
}

func TestLoaderSubstitution(t *testing.T) {
	subs := []string{"$ZZZ", "$KEY", "$KEY1", "${KEY}1", "$KEY_U", "${KEY_U}", `\$KEY`}
	common := strings.Join(subs, ">>")
	input := `
KEY1=new_value1
KEY_U=$KEY+valueU

STRONG_QUOTES='` + common + `'
WEAK_QUOTES="` + common + `"
NO_QUOTES=` + common + `
`
	env := MapEnvironment{"KEY": "value", "KEY1": "value1"}
	m, err := NewLoader(WithReader(strings.NewReader(input)), WithEnvironment(env)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expanded := strings.Join([]string{"", "value", "value1", "value1", "value_U", "value+valueU", "$KEY"}, ">>")
	want := map[string]string{
		"KEY":           "value",
		"KEY1":          "value1",
		"KEY_U":         "value+valueU",
		"STRONG_QUOTES": common,
		"WEAK_QUOTES":   expanded,
		"NO_QUOTES":     expanded,
	}
	for k, v := range want {
		got, err := m.Var(k)
		if err != nil {
			t.Fatalf("Var(%q) error = %v", k, err)
		}
		if got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestLoaderErrors(t *testing.T) {
	t.Run("no input", func(t *testing.T) {
		_, err := NewLoader(WithPath("")).Load()
		if !errors.Is(err, ErrNoInput) {
			t.Errorf("Load() error = %v, want ErrNoInput", err)
		}
	})

	t.Run("missing file carries path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.env")
		_, err := NewLoader(WithPath(path), WithSequence(InputOnly)).Load()
		if !IsNotFound(err) {
			t.Fatalf("Load() error = %v, want not found", err)
		}
		var fileErr *FileError
		if !errors.As(err, &fileErr) || fileErr.Path != path {
			t.Errorf("Load() error = %v, want *FileError for %s", err, path)
		}
	})

	t.Run("parse error carries path and line", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("A=1\nB=a b\n"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := NewLoader(WithPath(path), WithSequence(InputOnly)).Load()
		var fileErr *FileError
		if !errors.As(err, &fileErr) || fileErr.Path != path {
			t.Fatalf("Load() error = %v, want *FileError", err)
		}
		var lineErr *LineError
		if !errors.As(err, &lineErr) || lineErr.Num != 2 {
			t.Errorf("Load() error = %v, want *LineError on line 2", err)
		}
		if !strings.HasPrefix(err.Error(), path+": ") {
			t.Errorf("error %q should start with the path", err.Error())
		}
	})

	t.Run("multi-line error message is one line", func(t *testing.T) {
		_, err := Parse(strings.NewReader("K=\"a\nb\n"))
		var lineErr *LineError
		if !errors.As(err, &lineErr) {
			t.Fatalf("Parse() error = %v, want *LineError", err)
		}
		want := `error parsing line: "K=\"a\nb\n", error at line index: 7`
		if got := lineErr.Error(); got != want {
			t.Errorf("Error() = %s, want %s", got, want)
		}
	})

	t.Run("missing var", func(t *testing.T) {
		_, err := EnvMap{}.Var("NOPE")
		var notPresent *NotPresentError
		if !errors.As(err, &notPresent) || notPresent.Key != "NOPE" {
			t.Errorf("Var() error = %v, want *NotPresentError", err)
		}
	})
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, ".env")
	second := filepath.Join(dir, ".env.local")
	if err := os.WriteFile(first, []byte("A=1\nB=1\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(second, []byte("\xEF\xBB\xBFB=2\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(first, second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if diff := cmp.Diff(EnvMap{"A": "1", "B": "2"}, got); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAndOverloadFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DOTENVY_PKG_A=file\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DOTENVY_PKG_A", "env")

	if err := Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := Var("DOTENVY_PKG_A"); got != "env" {
		t.Errorf("after Load, DOTENVY_PKG_A = %q, want env", got)
	}

	if err := Overload(path); err != nil {
		t.Fatalf("Overload() error = %v", err)
	}
	if got, _ := Var("DOTENVY_PKG_A"); got != "file" {
		t.Errorf("after Overload, DOTENVY_PKG_A = %q, want file", got)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader("FOO=bar\nexport BAZ='q x'\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if diff := cmp.Diff(EnvMap{"FOO": "bar", "BAZ": "q x"}, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}
