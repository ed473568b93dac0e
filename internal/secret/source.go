package secret

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/zalando/go-keyring"

	"github.com/bartekus/cadence/internal/config"
)

// Source looks up a credential by name. A missing credential is reported with
// found=false and a nil error.
type Source interface {
	Lookup(ctx context.Context, name string) (value string, found bool, err error)
}

// NewSource builds the Source selected by cfg.Source.
func NewSource(ctx context.Context, cfg config.SecretConfig) (Source, error) {
	switch cfg.Source {
	case config.SourceEnv, "":
		return EnvSource{LookupEnv: os.LookupEnv}, nil
	case config.SourceKeyring:
		return KeyringSource{Service: cfg.KeyringService}, nil
	case config.SourceSSM:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.SSMRegion))
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		return &SSMSource{Client: ssm.NewFromConfig(awsCfg), Prefix: cfg.SSMPrefix}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidSecretSource, cfg.Source)
	}
}

// EnvSource reads the process environment, which is where the hosted runner
// exposes its secret store.
type EnvSource struct {
	LookupEnv func(string) (string, bool)
}

func (s EnvSource) Lookup(_ context.Context, name string) (string, bool, error) {
	v, ok := s.LookupEnv(name)
	return v, ok, nil
}

// KeyringSource reads the OS keychain, for manual runs on a workstation.
type KeyringSource struct {
	Service string
}

func (s KeyringSource) Lookup(_ context.Context, name string) (string, bool, error) {
	v, err := keyring.Get(s.Service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading keyring %s/%s: %w", s.Service, name, err)
	}
	return v, true, nil
}

// SSMClient is the subset of the SSM API used here.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads a SecureString parameter named Prefix+name.
type SSMSource struct {
	Client SSMClient
	Prefix string
}

func (s *SSMSource) Lookup(ctx context.Context, name string) (string, bool, error) {
	out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.Prefix + name),
		WithDecryption: aws.Bool(true),
	})
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading ssm parameter %s%s: %w", s.Prefix, name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", false, nil
	}
	return *out.Parameter.Value, true, nil
}
