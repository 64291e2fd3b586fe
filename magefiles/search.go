//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search runs one query against the configured search backends and prints
// the merged results.
func Search(query string) error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "search", query)
}
