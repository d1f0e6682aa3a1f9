package dotenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFind(t *testing.T) {
	t.Run("finds in same dir", func(t *testing.T) {
		tmp := t.TempDir()
		envPath := filepath.Join(tmp, ".env")
		if err := os.WriteFile(envPath, []byte("A=1\n"), 0600); err != nil {
			t.Fatal(err)
		}

		got, err := Find(tmp, "")
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got != envPath {
			t.Errorf("Find() = %q, want %q", got, envPath)
		}
	})

	t.Run("finds in parent", func(t *testing.T) {
		tmp := t.TempDir()
		envPath := filepath.Join(tmp, ".env.test")
		if err := os.WriteFile(envPath, []byte("A=1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		sub := filepath.Join(tmp, "a", "b")
		if err := os.MkdirAll(sub, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := Find(sub, ".env.test")
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got != envPath {
			t.Errorf("Find() = %q, want %q", got, envPath)
		}
	})

	t.Run("skips directories with the same name", func(t *testing.T) {
		tmp := t.TempDir()
		envPath := filepath.Join(tmp, ".env")
		if err := os.WriteFile(envPath, []byte("A=1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		sub := filepath.Join(tmp, "sub")
		if err := os.MkdirAll(filepath.Join(sub, ".env"), 0755); err != nil {
			t.Fatal(err)
		}

		got, err := Find(sub, "")
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if got != envPath {
			t.Errorf("Find() = %q, want %q", got, envPath)
		}
	})

	t.Run("respects max depth", func(t *testing.T) {
		tmp := t.TempDir()
		if err := os.WriteFile(filepath.Join(tmp, ".env"), []byte("A=1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		deep := filepath.Join(tmp, "a", "b", "c")
		if err := os.MkdirAll(deep, 0755); err != nil {
			t.Fatal(err)
		}

		_, err := FindN(deep, "", 2)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("FindN() error = %v, want ErrNotFound", err)
		}
		if !IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = false", err)
		}
	})

	t.Run("uses working directory when dir is empty", func(t *testing.T) {
		tmp := t.TempDir()
		if err := os.WriteFile(filepath.Join(tmp, ".env"), []byte("A=1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(tmp)

		got, err := Find("", "")
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if filepath.Base(got) != ".env" {
			t.Errorf("Find() = %q, want a .env path", got)
		}
	})
}
