package game

// Physics and board constants for carrom.
// Distances are board units (a 1000x1000 viewport by default); velocities are board units per frame.

const (
	DefaultViewport = 1000.0

	BoardRadiusRatio    = 0.45  // board half-size relative to the smaller viewport side
	CoinRadiusRatio     = 0.038 // relative to board radius
	StrikerRadiusRatio  = 0.055
	PocketRadiusRatio   = 0.065
	PocketOffsetRatio   = 0.94 // pocket centers sit at center ± 0.94R on both axes
	BaselineOffsetRatio = 0.76
	BaselineHalfRatio   = 0.65
	AimBandRatio        = 0.25
	KeyStepRatio        = 0.02

	Friction        = 0.985 // per-frame velocity retention
	WallRestitution = 0.75
	CoinRestitution = 0.8
	VelocityEpsilon = 0.1
	DefaultSubSteps = 8

	CoinMass    = 1.0
	StrikerMass = 2.0

	MaxPower          = 100.0
	MinShotPower      = 5.0
	PowerScale        = 2.0 // drag distance per power point
	ShotSpeedScale    = 1.8 // power / ShotSpeedScale = launch speed
	QuickShotPower    = 50.0
	BreakShotPower    = 70.0
	StrikerGrabFactor = 2.0

	CoinValue          = 10
	QueenBonus         = 50
	StrikerFoulPenalty = 10
	NoContactPenalty   = 5

	CoinsPerColor = 9
	StrikerID     = -1
	QueenID       = 0
)
