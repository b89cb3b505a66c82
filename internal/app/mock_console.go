// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/reachy_twin/internal/feed"
	"github.com/relabs-tech/reachy_twin/internal/kinematics"
	"github.com/relabs-tech/reachy_twin/internal/motion"
)

// formatSample renders one motion sample and the passive joints solved from it.
func formatSample(s motion.Sample, passive []float64) string {
	return fmt.Sprintf(
		"YAW=%6.2f  ROLL=%6.2f  PITCH=%6.2f  Z=%6.1fmm  ANT=%6.2f/%6.2f  P1=%6.2f %6.2f %6.2f",
		s.BodyYaw(), s.Pose.Roll, s.Pose.Pitch, s.Pose.Z*1000,
		s.Antennas[0], s.Antennas[1],
		passive[0], passive[1], passive[2],
	)
}

// RunMockConsole prints synthetic motion and its passive joint solution every 100ms
// until ctx is done.
func RunMockConsole(ctx context.Context, clk clock.Clock, out io.Writer) error {
	if clk == nil {
		clk = clock.New()
	}
	src := motion.NewMockSource(clk)
	ticker := clk.Ticker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			return err
		}
		passive := kinematics.SolvePassiveJoints(s.Active[:], feed.PoseRecordToMatrix(s.Pose))
		fmt.Fprintln(out, formatSample(s, passive))
	}
}
