package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/drivectl/internal/config"
)

func TestLinspace(t *testing.T) {
	got := linspace(0, 2, 5)
	want := []float64{0, 0.5, 1, 1.5, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if one := linspace(3, 9, 1); len(one) != 1 || one[0] != 3 {
		t.Errorf("single point should be the low end, got %v", one)
	}
}

func TestApplyBenchFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	simFlags(cmd)
	if err := cmd.ParseFlags([]string{"--speed", "250", "--hkp", "7", "--no-calibrate"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.GetPreset("profile")
	applyBenchFlags(cmd, cfg)

	if cfg.Sim.TargetSpeed != 250 || cfg.Sim.Profile != nil {
		t.Errorf("speed flag should replace the profile, got %v %v", cfg.Sim.TargetSpeed, cfg.Sim.Profile)
	}
	if cfg.Controller.Heading.Kp != 7 {
		t.Errorf("expected heading kp 7, got %v", cfg.Controller.Heading.Kp)
	}
	if cfg.Sim.Calibrate {
		t.Error("calibration should be disabled")
	}
	// unset flags leave the preset alone
	if cfg.Sim.Duration != 12 || cfg.Controller.Speed.Kp != config.DefaultConfig().Controller.Speed.Kp {
		t.Errorf("unchanged flags overrode the preset: duration %v kp %v", cfg.Sim.Duration, cfg.Controller.Speed.Kp)
	}
}

func TestRunLabel(t *testing.T) {
	defer func(p, c string) { preset, configFile = p, c }(preset, configFile)

	preset, configFile = "drift", ""
	if got := runLabel(); got != "drift" {
		t.Errorf("expected preset label, got %q", got)
	}
	configFile = "/etc/drivectl/robot.yaml"
	if got := runLabel(); got != "robot.yaml" {
		t.Errorf("expected config file label, got %q", got)
	}
}
