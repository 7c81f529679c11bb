// Package sensing turns raw collaborator readings into the per-tick samples
// the drive loop consumes: wheel speed from cumulative encoder counts and
// heading from an integrated, bias-corrected yaw rate.
package sensing
