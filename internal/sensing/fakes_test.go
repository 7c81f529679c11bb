package sensing

type fakeCounter struct {
	left, right int64
	resets      int
}

func (f *fakeCounter) CountLeft() int64  { return f.left }
func (f *fakeCounter) CountRight() int64 { return f.right }
func (f *fakeCounter) Reset() {
	f.left, f.right = 0, 0
	f.resets++
}

type fakeGyro struct {
	rate  float64
	err   error
	reads int
}

func (f *fakeGyro) Init() error { return f.err }
func (f *fakeGyro) YawRate() float64 {
	f.reads++
	return f.rate
}
