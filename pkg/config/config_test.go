package config

import "testing"

func TestDefaultIsUsable(t *testing.T) {
	c := Default()
	if c.Output == nil || c.Input == nil || c.Errors == nil {
		t.Fatal("Default() should wire the standard streams")
	}
	if c.RecursionLimit <= 0 {
		t.Fatal("Default() should set a positive recursion limit")
	}
	if !c.AllowCollect {
		t.Fatal("Default() should allow collection")
	}
}
