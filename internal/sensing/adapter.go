package sensing

// Adapter bundles wheel and heading sampling behind one per-tick call.
type Adapter struct {
	Wheels  *WheelSampler
	Heading *HeadingEstimator

	source      YawRateSource
	calibration CalibrationConfig
}

func NewAdapter(counter WheelCounter, source YawRateSource, cal CalibrationConfig) *Adapter {
	return &Adapter{
		Wheels:      NewWheelSampler(counter),
		Heading:     NewHeadingEstimator(source),
		source:      source,
		calibration: cal,
	}
}

// Init initialises the yaw-rate source.
func (a *Adapter) Init() error {
	return a.source.Init()
}

// Sample refreshes heading and then wheel speeds for the elapsed dt.
func (a *Adapter) Sample(dt float64) (WheelSample, HeadingSample) {
	heading := a.Heading.Update(dt)
	wheels := a.Wheels.Sample(dt)
	return wheels, heading
}

func (a *Adapter) Calibrate() float64 {
	return a.Heading.Calibrate(a.calibration)
}

// Reset zeroes wheel counters, checkpoints and heading.
func (a *Adapter) Reset() {
	a.Wheels.Reset()
	a.Heading.Reset()
}

func (a *Adapter) ResetHeading() {
	a.Heading.Reset()
}
