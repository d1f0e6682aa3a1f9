package dotenv

import (
	"os"
	"strings"
	"sync"
)

// Lookuper resolves a variable during substitution.
type Lookuper interface {
	LookupEnv(key string) (string, bool)
}

// LookupFunc adapts a function to Lookuper.
type LookupFunc func(key string) (string, bool)

func (f LookupFunc) LookupEnv(key string) (string, bool) { return f(key) }

// Environment is the variable store a Loader reads from and writes to.
type Environment interface {
	Lookuper
	Setenv(key, value string) error
	Environ() map[string]string
}

// envMu serializes writes to the process environment, which is shared by
// every goroutine in the process.
var envMu sync.Mutex

type osEnvironment struct{}

// OSEnvironment returns the process environment.
func OSEnvironment() Environment { return osEnvironment{} }

func (osEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (osEnvironment) Setenv(key, value string) error {
	envMu.Lock()
	defer envMu.Unlock()
	return os.Setenv(key, value)
}

func (osEnvironment) Environ() map[string]string {
	return environToMap(os.Environ())
}

// MapEnvironment is an in-memory Environment.
type MapEnvironment map[string]string

func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m MapEnvironment) Setenv(key, value string) error {
	m[key] = value
	return nil
}

func (m MapEnvironment) Environ() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func environToMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		// Windows keeps per-drive entries like "=C:=C:\".
		if kv == "" || kv[0] == '=' {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
