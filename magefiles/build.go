//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

var Default = Build.All

type Build mg.Namespace

// Builds geomtool into ./bin.
func (Build) All() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/geomtool", "./cmd/geomtool"), withStream())
	return err
}

// Generates the sample GEOM and RIG pair in pkg/formats/testdata.
func (Build) Samples() error {
	_, err := executeCmd("go", withArgs("run", "generate_geom.go"), withDir("pkg/formats/testdata"), withStream())
	return err
}
