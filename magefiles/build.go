//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the ideas project using Mage.
//
// Usage:
//
//	mage build          Compile the ideas binary to bin/
//	mage install        Install ideas to GOPATH/bin
//	mage test:all       Run every test
//	mage test:unit      Run tests that need no database
//	mage test:postgres  Run the postgres backend tests against IDEAS_TEST_DATABASE_URL
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo       = "go"
	binaryName  = "ideas"
	binaryDir   = "bin"
	cmdDir      = "./cmd/ideas"
	versionVar  = "github.com/mesh-intelligence/ideas/internal/cli.Version"
	envVersion  = "IDEAS_VERSION"
	defaultVers = "0.1.0-dev"
)

// ldflags stamps the version from IDEAS_VERSION into the binary.
func ldflags() string {
	version := os.Getenv(envVersion)
	if version == "" {
		version = defaultVers
	}
	return "-X " + versionVar + "=" + version
}

// Build compiles the ideas binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
