// File: cmd/options.go
package cmd

import (
	"github.com/xkilldash9x/armtrace/internal/config"
	"github.com/xkilldash9x/armtrace/internal/kinematics"
	"github.com/xkilldash9x/armtrace/internal/participant"
	"github.com/xkilldash9x/armtrace/internal/session"
)

func geometry(cfg config.Interface) kinematics.Geometry {
	arm := cfg.Arm()
	return kinematics.Geometry{
		ShoulderPosition: kinematics.Vector2D{X: arm.ShoulderX, Y: arm.ShoulderY},
		UpperArmLength:   arm.UpperArmLength,
		LowerArmLength:   arm.LowerArmLength,
	}
}

func sessionOptions(cfg config.Interface) session.Options {
	return session.Options{
		Geometry:        geometry(cfg),
		TargetRadius:    cfg.Task().TargetRadius,
		GrabRadius:      cfg.Input().GrabRadius,
		MinMoveDistance: cfg.Input().MinMoveDistance,
		AngleEpsilon:    cfg.Capture().AngleEpsilon,
		Interpolate:     cfg.Playback().Interpolate,
		AutoRelease:     cfg.Input().AutoRelease,
	}
}

func participantConfig(cfg config.Interface) participant.Config {
	p := cfg.Participant()
	return participant.Config{
		FittsA:          p.FittsA,
		FittsB:          p.FittsB,
		TargetWidth:     p.TargetWidth,
		TimingJitter:    p.TimingJitter,
		SampleRate:      p.SampleRate,
		Curvature:       p.Curvature,
		PerlinAmplitude: p.PerlinAmplitude,
		PerlinFrequency: p.PerlinFrequency,
		TremorAmplitude: p.TremorAmplitude,
		Seed:            p.Seed,
	}
}

// taskPoints returns the configured start and target positions.
func taskPoints(cfg config.Interface) (start, target kinematics.Vector2D) {
	t := cfg.Task()
	return kinematics.Vector2D{X: t.StartX, Y: t.StartY}, kinematics.Vector2D{X: t.TargetX, Y: t.TargetY}
}
