// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"github.com/flemzord/confidant/internal/security"
)

// NewTestRedactor returns a Redactor with no patterns, so test strings
// that happen to look like keys stay readable.
func NewTestRedactor() *security.Redactor {
	return &security.Redactor{}
}

// NewTestCredentialStore returns a CredentialStore holding the given
// provider/key pairs. Panics on an odd number of args.
func NewTestCredentialStore(kvs ...string) *security.CredentialStore {
	if len(kvs)%2 != 0 {
		panic("securitytest: NewTestCredentialStore requires provider/key pairs")
	}
	store := security.NewCredentialStore()
	for i := 0; i < len(kvs); i += 2 {
		store.Set(kvs[i], kvs[i+1])
	}
	return store
}
