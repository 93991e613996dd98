//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs go vet and the unit tests.
func (Test) Unit() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Decodes and re-encodes the generated samples with geomtool.
func (Test) RoundTrip() error {
	mg.SerialDeps(Build.All, Build.Samples)
	_, err := executeCmd("bin/geomtool",
		withArgs("-strict", "roundtrip", "pkg/formats/testdata/sample.simgeom"), withStream())
	return err
}
