package main

import (
	"testing"
)

func TestRootCommand_DebugFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("debug")
	if flag == nil {
		t.Fatal("expected persistent --debug flag")
	}
	if flag.Shorthand != "d" {
		t.Errorf("expected shorthand d, got %q", flag.Shorthand)
	}

	defer func() { debugMode = false }()
	if err := rootCmd.PersistentFlags().Set("debug", "true"); err != nil {
		t.Fatal(err)
	}
	if !debugMode {
		t.Error("--debug should set debugMode")
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	for _, name := range []string{"forecast", "record", "resolve", "export", "run", "stats", "schedule", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered: %v", name, err)
		}
	}
}
