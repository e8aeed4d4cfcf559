// Package token mints and verifies the bearer tokens accepted by the Kabinet
// development server.
//
// Tokens are HS256 JSON Web Tokens signed with a server secret. Secrets are
// generated with crypto/rand and must carry at least 256 bits of entropy.
//
// # Secret Generation
//
//	secret, err := token.GenerateSecret()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// secret is a 44-character base64-URL-encoded string
//
// # Issuing
//
//	raw, err := token.Issue(secret, "backend-1", 24*time.Hour)
//
// # Verification
//
//	claims, err := token.Verify(secret, raw)
//	if errors.Is(err, token.ErrExpired) {
//	    // ask the client to refresh
//	}
//
// # Security Properties
//
//   - Secrets shorter than MinSecretLength are rejected
//   - Only HS256 is accepted on verification
//   - Every token carries an issuer, subject, ID and expiry
//   - Token values are never logged (only subjects and IDs)
package token
