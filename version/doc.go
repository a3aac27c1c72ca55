// Package version reports the build identity of a storefront binary.
//
// Set the release at link time:
//
//	go build -ldflags "-X github.com/kbukum/storefront/version.Version=1.4.0" ./cmd/catalog
//
// The commit and build time are read from the Go build info when the
// binary was built inside a VCS checkout.
package version
