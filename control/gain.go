package control

// Gain is a feedforward block: output = input * factor. Used to pass a strategy's
// requested axis velocity straight through to the command with a calibration
// factor applied.
type Gain struct {
	Name   string
	Factor float64
}

// Next scales x by the gain's factor.
func (g Gain) Next(x Signal) Signal {
	return makeSignal(g.Name, x.Value()*g.Factor)
}
