package model

import "time"

// Credential points at the materialized client certificate and key used for
// mutual TLS. Both files are owner-read/write only.
type Credential struct {
	CertPath string
	KeyPath  string
}

// AccessToken is a short-lived bearer token from the client-credentials grant.
// The token endpoint never advertises a TTL, so none is tracked; callers treat
// the token as valid for one call sequence and re-acquire.
type AccessToken struct {
	Value    string
	IssuedAt time.Time
}
