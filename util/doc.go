// Package util holds small helpers shared by the storefront packages.
package util
