package bmp180

// State is the scheduler's position in a measurement cycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingTemperature
	StateAwaitingPressure
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingTemperature:
		return "awaiting-temperature"
	case StateAwaitingPressure:
		return "awaiting-pressure"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// Scheduler drives the two-phase conversion without blocking. The caller
// calls Start once and then Poll until it reports ready or fails; Poll only
// checks the clock and returns when a phase is still converting.
//
// A Scheduler must be driven from a single goroutine.
type Scheduler struct {
	port  Port
	addr  uint16
	clock Clock
	eoc   ReadyLine

	state    State
	deadline uint32
	oss      Oversampling
	raw      RawSample
	buf      [2]byte
}

// NewScheduler returns an idle scheduler. eoc may be nil.
func NewScheduler(port Port, addr uint16, clock Clock, eoc ReadyLine) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{port: port, addr: addr, clock: clock, eoc: eoc}
}

func (s *Scheduler) State() State { return s.state }

// Deadline is the tick the current phase must pass before it is read.
func (s *Scheduler) Deadline() uint32 { return s.deadline }

// Start begins a new cycle at the given oversampling. Starting while a cycle
// is pending is rejected; call Abort first to discard it.
func (s *Scheduler) Start(oss Oversampling) error {
	if err := oss.Validate(); err != nil {
		return err
	}
	switch s.state {
	case StateAwaitingTemperature, StateAwaitingPressure:
		return stateErr("start while %s", s.state)
	}
	s.state = StateIdle
	s.raw = RawSample{}
	if err := s.port.WriteReg(s.addr, regControl, cmdTemperature); err != nil {
		return transportErr("start temperature conversion", err)
	}
	s.oss = oss
	s.deadline = s.clock() + temperatureDelayMs
	s.state = StateAwaitingTemperature
	return nil
}

// Abort discards any pending cycle.
func (s *Scheduler) Abort() {
	s.state = StateIdle
	s.raw = RawSample{}
}

// Poll advances the cycle. It returns ready=false with a nil error while a
// conversion is still running, the raw sample with ready=true once the
// cycle is complete, and an error if the cycle failed (the scheduler is
// then idle again).
func (s *Scheduler) Poll() (RawSample, bool, error) {
	switch s.state {
	case StateIdle:
		return RawSample{}, false, stateErr("poll with no measurement in progress")
	case StateComplete:
		return s.raw, true, nil
	}

	done, err := s.converted()
	if err != nil {
		s.Abort()
		return RawSample{}, false, err
	}
	if !done {
		return RawSample{}, false, nil
	}

	if s.state == StateAwaitingTemperature {
		if err := s.port.ReadReg(s.addr, regResult, s.buf[:]); err != nil {
			s.Abort()
			return RawSample{}, false, transportErr("read UT", err)
		}
		s.raw.UT = uint16(s.buf[0])<<8 | uint16(s.buf[1])
		if err := s.port.WriteReg(s.addr, regControl, s.oss.controlByte()); err != nil {
			s.Abort()
			return RawSample{}, false, transportErr("start pressure conversion", err)
		}
		s.deadline = s.clock() + s.oss.ConversionDelayMs()
		s.state = StateAwaitingPressure
		return RawSample{}, false, nil
	}

	var up int32
	for _, reg := range [...]byte{regResult, regResultLSB, regResultXLSB} {
		if err := s.port.ReadReg(s.addr, reg, s.buf[:1]); err != nil {
			s.Abort()
			return RawSample{}, false, transportErr("read UP", err)
		}
		up = up<<8 | int32(s.buf[0])
	}
	s.raw.UP = up >> (8 - s.oss)
	s.raw.Oversampling = s.oss
	s.state = StateComplete
	return s.raw, true, nil
}

// Result returns the raw sample of a completed cycle.
func (s *Scheduler) Result() (RawSample, error) {
	if s.state != StateComplete {
		return RawSample{}, stateErr("result requested while %s", s.state)
	}
	return s.raw, nil
}

func (s *Scheduler) converted() (bool, error) {
	if !after(s.clock(), s.deadline) {
		return false, nil
	}
	if s.eoc == nil {
		return true, nil
	}
	ok, err := s.eoc.Ready()
	if err != nil {
		return false, transportErr("read eoc line", err)
	}
	return ok, nil
}
