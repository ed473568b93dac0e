package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/bartekus/cadence/internal/config"
)

type mapSource map[string]string

func (m mapSource) Lookup(_ context.Context, name string) (string, bool, error) {
	v, ok := m[name]
	return v, ok, nil
}

type failingSource struct{}

func (failingSource) Lookup(context.Context, string) (string, bool, error) {
	return "", false, errors.New("store unavailable")
}

func TestMaterialize_FreshFileHasExactlyOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	m := &Materializer{Name: "OPENAI_API_KEY", Path: path, Source: mapSource{"OPENAI_API_KEY": "sk-test-123"}}

	present, err := m.Materialize(context.Background())
	require.NoError(t, err)
	assert.True(t, present)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=sk-test-123\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, Verify(path, "OPENAI_API_KEY", "sk-test-123"))
}

func TestMaterialize_AbsentSecretWritesEmptyValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	m := &Materializer{Name: "OPENAI_API_KEY", Path: path, Source: mapSource{}}

	present, err := m.Materialize(context.Background())
	require.NoError(t, err)
	assert.False(t, present)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=\n", string(data))
}

func TestMaterialize_TrailingNewlineTrimmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	m := &Materializer{Name: "OPENAI_API_KEY", Path: path, Source: mapSource{"OPENAI_API_KEY": "sk-abc\n"}}

	_, err := m.Materialize(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=sk-abc\n", string(data))
}

func TestMaterialize_Multiline(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	m := &Materializer{Name: "OPENAI_API_KEY", Path: path, Source: mapSource{"OPENAI_API_KEY": "a\nb"}}

	_, err := m.Materialize(context.Background())
	require.ErrorIs(t, err, ErrMultilineSecret)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMaterialize_SourceError(t *testing.T) {
	m := &Materializer{Name: "OPENAI_API_KEY", Path: filepath.Join(t.TempDir(), ".env"), Source: failingSource{}}
	_, err := m.Materialize(context.Background())
	require.Error(t, err)
}

func TestUpsert_ReplacesAndPreserves(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# local\nOTHER=1\nOPENAI_API_KEY=old\nOPENAI_API_KEY=older\n"), 0o600))

	require.NoError(t, Upsert(path, "OPENAI_API_KEY", "new"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# local\nOTHER=1\nOPENAI_API_KEY=new\n", string(data))
}

func TestUpsert_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, Upsert(path, "OPENAI_API_KEY", "v"))
	require.NoError(t, Upsert(path, "OPENAI_API_KEY", "v"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=v\n", string(data))
}

func TestUpsert_TightensMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"), 0o644))

	require.NoError(t, Upsert(path, "OPENAI_API_KEY", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMaterialize_ValueThatDoesNotLoadBackFails(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"inline comment", "abc #x"},
		{"quoted", `"abc"`},
		{"leading blank", " abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			m := &Materializer{Name: "OPENAI_API_KEY", Path: path, Source: mapSource{"OPENAI_API_KEY": tt.value}}

			_, err := m.Materialize(context.Background())
			require.ErrorIs(t, err, ErrValueMismatch)
		})
	}
}

func TestVerify_ValueMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=abc #x
"), 0o600))
	require.ErrorIs(t, Verify(path, "OPENAI_API_KEY", "abc #x"), ErrValueMismatch)
	require.NoError(t, Verify(path, "OPENAI_API_KEY", "abc"))
}

func TestVerify_MissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"), 0o600))
	require.ErrorIs(t, Verify(path, "OPENAI_API_KEY", ""), ErrKeyNotLoadable)
}

func TestEnvSource(t *testing.T) {
	t.Setenv("CADENCE_TEST_SECRET", "value")
	src := EnvSource{LookupEnv: os.LookupEnv}

	v, ok, err := src.Lookup(context.Background(), "CADENCE_TEST_SECRET")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok, err = src.Lookup(context.Background(), "CADENCE_TEST_SECRET_UNSET")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeSSM struct {
	params map[string]string
	err    error
	asked  []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.asked = append(f.asked, aws.ToString(in.Name))
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func TestSSMSource(t *testing.T) {
	client := &fakeSSM{params: map[string]string{"/cadence/OPENAI_API_KEY": "sk-ssm"}}
	src := &SSMSource{Client: client, Prefix: "/cadence/"}

	v, ok, err := src.Lookup(context.Background(), "OPENAI_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-ssm", v)

	_, ok, err = src.Lookup(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"/cadence/OPENAI_API_KEY", "/cadence/MISSING"}, client.asked)

	client.err = errors.New("throttled")
	_, _, err = src.Lookup(context.Background(), "OPENAI_API_KEY")
	require.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(context.Background(), config.SecretConfig{Source: config.SourceEnv})
	require.NoError(t, err)
	assert.IsType(t, EnvSource{}, src)

	src, err = NewSource(context.Background(), config.SecretConfig{Source: config.SourceKeyring, KeyringService: "cadence"})
	require.NoError(t, err)
	assert.Equal(t, KeyringSource{Service: "cadence"}, src)

	_, err = NewSource(context.Background(), config.SecretConfig{Source: "vault"})
	require.ErrorIs(t, err, config.ErrInvalidSecretSource)
}

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("cadence", "OPENAI_API_KEY", "sk-keyring"))

	src := KeyringSource{Service: "cadence"}
	v, ok, err := src.Lookup(context.Background(), "OPENAI_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sk-keyring", v)

	_, ok, err = src.Lookup(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}
