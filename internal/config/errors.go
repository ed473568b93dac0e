package config

import "errors"

// Secret sources understood by the materializer.
const (
	SourceEnv     = "env"
	SourceKeyring = "keyring"
	SourceSSM     = "ssm"
)

var (
	ErrMissingBranch       = errors.New("branch is required")
	ErrMissingRuntime      = errors.New("runtime binary is required")
	ErrInvalidConstraint   = errors.New("invalid runtime version constraint")
	ErrInvalidSecretName   = errors.New("invalid secret name")
	ErrMissingSecretFile   = errors.New("secret file is required")
	ErrInvalidSecretSource = errors.New("invalid secret source")
	ErrMissingSSMRegion    = errors.New("ssm region is required for the ssm secret source")
	ErrMissingCommand      = errors.New("analysis command is required")
	ErrMissingReport       = errors.New("report path is required")
	ErrReportIsSecretFile  = errors.New("report path must differ from the secret file")
	ErrMissingAuthor       = errors.New("publish author name and email are required")
	ErrMissingMessage      = errors.New("publish message is required")
)
