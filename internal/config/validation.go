package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags first, then rules that span several sections.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.Local.Root == "" {
			return fmt.Errorf("storage.local.root: required for the local backend")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket: required for the s3 backend")
		}
	}

	switch cfg.Session.Backend {
	case "jwt":
		if len(cfg.Session.JWTSecret) < 16 {
			return fmt.Errorf("session.jwt_secret: at least 16 bytes required for the jwt backend")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr: required for the redis session backend")
		}
	}

	if cfg.Auth.AdminUsername != "" && len(cfg.Auth.AdminPassword) < cfg.Auth.MinPasswordLength {
		return fmt.Errorf("auth.admin_password: must be at least %d characters when auth.admin_username is set", cfg.Auth.MinPasswordLength)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("config validation: %w", err)
}
