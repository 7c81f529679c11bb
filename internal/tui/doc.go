// Package tui is an interactive terminal console over the simulated bench.
// Arrow keys change the target speed, the gains can be tuned live and the
// wheel speed history is plotted as the robot drives.
package tui
