package types

import (
	"fmt"
	"time"
)

// AccountTarget identifies one account to inventory and the role used to
// reach it. Targets come from configuration and are immutable.
type AccountTarget struct {
	AccountID   string
	RoleARN     string
	SessionName string
	ExternalID  string
}

// IsCrossAccount reports whether the target uses a cross-account trust.
// External id presence alone is treated as sufficient.
func (t AccountTarget) IsCrossAccount() bool {
	return t.ExternalID != ""
}

// Validate checks the target carries the minimum required fields.
func (t AccountTarget) Validate() error {
	if t.RoleARN == "" {
		return fmt.Errorf("account %s: role ARN is required", t.AccountID)
	}
	if t.AccountID == "" {
		return fmt.Errorf("account id is required for role %s", t.RoleARN)
	}
	return nil
}

// DelegatedCredential is a short-lived credential obtained by assuming a
// role. It is never persisted and is re-derived per account.
type DelegatedCredential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}
