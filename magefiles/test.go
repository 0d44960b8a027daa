//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	postgresPkg = "./internal/postgres/..."
	envTestDB   = "IDEAS_TEST_DATABASE_URL"
)

// Test groups test targets (all, unit, postgres).
type Test mg.Namespace

// All runs every test. Postgres tests skip unless IDEAS_TEST_DATABASE_URL is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs every package except the postgres backend.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/internal/postgres") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test", "-race"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// Postgres runs the postgres backend tests. It fails instead of skipping
// when IDEAS_TEST_DATABASE_URL is unset.
func (Test) Postgres() error {
	if os.Getenv(envTestDB) == "" {
		return errors.New(envTestDB + " must point at a scratch database")
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", postgresPkg)
}
