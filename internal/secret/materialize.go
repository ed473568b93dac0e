package secret

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/bartekus/cadence/internal/atomicfile"
	"github.com/bartekus/cadence/internal/logging"
)

const fileMode = 0o600

var (
	ErrMultilineSecret = errors.New("secret value spans multiple lines")
	ErrKeyNotLoadable  = errors.New("dotenv file does not define key")
	ErrValueMismatch   = errors.New("dotenv file does not load back the written value")
)

// Materializer writes one credential into a dotenv file for the analysis
// procedure to read.
type Materializer struct {
	Name   string
	Path   string
	Source Source
	Log    *log.Logger
}

// Materialize fetches the credential and writes NAME=value into the dotenv
// file. A missing credential is written as an empty value and only logged:
// the failure surfaces later when the analysis cannot authenticate.
func (m *Materializer) Materialize(ctx context.Context) (bool, error) {
	logger := logging.OrDiscard(m.Log)

	value, found, err := m.Source.Lookup(ctx, m.Name)
	if err != nil {
		return false, err
	}
	value = strings.TrimRight(value, "\r\n")
	if strings.ContainsAny(value, "\r\n") {
		return false, fmt.Errorf("%w: %s", ErrMultilineSecret, m.Name)
	}

	present := found && value != ""
	if !present {
		logger.Warn("secret is not set, writing an empty value", "name", m.Name)
	}

	if err := Upsert(m.Path, m.Name, value); err != nil {
		return present, err
	}
	if err := Verify(m.Path, m.Name, value); err != nil {
		return present, err
	}
	logger.Info("secret materialized", "name", m.Name, "file", m.Path, "value", logging.Presence(value))
	return present, nil
}

// Upsert sets key=value in the dotenv file at path, creating it when needed.
// An existing assignment of key is replaced in place and other lines are
// kept, so the file never holds two lines for key.
func Upsert(path, key, value string) error {
	existing, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	line := key + "=" + value
	var out bytes.Buffer
	replaced := false

	sc := bufio.NewScanner(bytes.NewReader(existing))
	for sc.Scan() {
		l := sc.Text()
		if assigns(l, key) {
			if replaced {
				continue
			}
			l = line
			replaced = true
		}
		out.WriteString(l)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	if !replaced {
		out.WriteString(line)
		out.WriteByte('\n')
	}

	if err := atomicfile.Write(path, out.Bytes(), fileMode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func assigns(line, key string) bool {
	l := strings.TrimSpace(line)
	l = strings.TrimPrefix(l, "export ")
	return strings.HasPrefix(strings.TrimSpace(l), key+"=")
}

// Verify loads the dotenv file the way the analysis procedure will and checks
// that key loads back as want. Unquoted values lose inline comments, quotes
// and surrounding blanks on load, so those come back as ErrValueMismatch.
func Verify(path, key, want string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	got, ok := values[key]
	if !ok {
		return fmt.Errorf("%w: %s in %s", ErrKeyNotLoadable, key, path)
	}
	if got != want {
		return fmt.Errorf("%w: %s in %s", ErrValueMismatch, key, path)
	}
	return nil
}
