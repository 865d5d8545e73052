// Package device derives a stable device fingerprint for each request.
//
// The mobile app sends its install ID in X-Device-ID. Combined with the
// parsed User-Agent (platform, OS, engine), this yields a fingerprint that
// distinguishes devices without storing anything identifying beyond a hash.
// Session hijack detection and audit records use the fingerprint, never the
// raw header values.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"haven/pkg/requestcontext"
)

// HeaderDeviceID carries the app's install-scoped identifier.
const HeaderDeviceID = "X-Device-ID"

// maxDeviceIDLength bounds the attacker-controlled header before hashing.
const maxDeviceIDLength = 128

// Fingerprint is middleware that computes the device fingerprint and stores
// both it and the raw device ID in the context.
func Fingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get(HeaderDeviceID)
		if len(deviceID) > maxDeviceIDLength {
			deviceID = deviceID[:maxDeviceIDLength]
		}

		fp := ComputeFingerprint(deviceID, r.Header.Get("User-Agent"))

		ctx := r.Context()
		ctx = requestcontext.WithDeviceID(ctx, deviceID)
		ctx = requestcontext.WithDeviceFingerprint(ctx, fp)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ComputeFingerprint hashes the device ID together with the stable parts of
// the User-Agent. Browser minor versions are excluded so routine app updates
// do not rotate the fingerprint.
func ComputeFingerprint(deviceID, rawUA string) string {
	ua := useragent.New(rawUA)

	engine, _ := ua.Engine()
	browser, _ := ua.Browser()

	parts := []string{
		deviceID,
		ua.Platform(),
		ua.OS(),
		engine,
		browser,
	}
	if ua.Mobile() {
		parts = append(parts, "mobile")
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
