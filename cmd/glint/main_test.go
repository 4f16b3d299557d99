package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"glint": glintMain,
	}))
}

// TestScenarios runs the spec §8 end-to-end scenario fixtures against the
// built glint binary, asserting stdout exactly as a host running `glint
// run` from a shell would observe it.
func TestScenarios(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "../../internal/loader/testdata",
	})
}
