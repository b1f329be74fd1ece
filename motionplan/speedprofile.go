// Package motionplan implements the Alpha-Time trajectory primitive and the
// decision-tree planner built on top of it, grounded on the strategy
// path-planning subsystem's speed-profile and trajectory-path components.
package motionplan

import "math"

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func dist(v0, v1, acc float64) float64 {
	t := math.Abs(v0-v1) / acc
	return 0.5 * (v0 + v1) * t
}

func constantDistance(v, t float64) float64 { return v * t }

// segment is one linear speed-vs-time breakpoint of a piecewise-linear profile.
type segment struct {
	v float64
	t float64 // cumulative time since the profile's start
}

// SpeedProfile1D is a piecewise-linear speed profile along one axis: constant
// acceleration between breakpoints, at most 4 breakpoints for the shapes this
// planner produces (direct ramp, or ramp-cruise-ramp when the requested offset
// needs more than a straight acceleration change to reach), grounded on
// speedprofile.cpp's SpeedProfile1D (the exponential end-of-trajectory slow-down
// variants there are not ported — see DESIGN.md).
type SpeedProfile1D struct {
	profile []segment
	acc     float64
}

func freeExtraTimeDistance(v, t, acc, vMax float64) (float64, float64) {
	vMax *= sign(t)
	t = math.Abs(t)
	toMaxTime := 2 * math.Abs(vMax-v) / acc
	if toMaxTime < t {
		return 2*dist(v, vMax, acc) + constantDistance(vMax, t-toMaxTime), vMax
	}
	v1 := v
	if v > vMax {
		v1 = v - acc*t/2
	} else {
		v1 = v + acc*t/2
	}
	return 2 * dist(v, v1, acc), v1
}

// CalculateEndPos1D returns the signed distance traveled and the profile's top
// speed for a direct v0->v1 ramp augmented by a hintDist extra time budget, in seconds
// (speedprofile.cpp::calculateEndPos1D).
func CalculateEndPos1D(v0, v1, hintDist, acc, vMax float64) (float64, float64) {
	switch {
	case hintDist == 0:
		return dist(v0, v1, acc), math.Max(v0, v1)
	case hintDist < 0 && v0 <= v1:
		switch {
		case v0 >= -vMax:
			d, top := freeExtraTimeDistance(v0, hintDist, acc, vMax)
			return d + dist(v0, v1, acc), top
		case v0 < -vMax && v1 >= -vMax:
			return dist(v0, v1, acc) + constantDistance(-vMax, -hintDist), -vMax
		default:
			d, top := freeExtraTimeDistance(v1, hintDist, acc, vMax)
			return dist(v0, v1, acc) + d, top
		}
	case hintDist < 0 && v0 > v1:
		switch {
		case v1 >= -vMax:
			d, top := freeExtraTimeDistance(v1, hintDist, acc, vMax)
			return dist(v0, v1, acc) + d, top
		case v1 < -vMax && v0 >= -vMax:
			return dist(v0, v1, acc) + constantDistance(-vMax, -hintDist), -vMax
		default:
			d, top := freeExtraTimeDistance(v0, hintDist, acc, vMax)
			return d + dist(v0, v1, acc), top
		}
	case hintDist > 0 && v0 <= v1:
		switch {
		case v1 <= vMax:
			d, top := freeExtraTimeDistance(v1, hintDist, acc, vMax)
			return dist(v0, v1, acc) + d, top
		case v1 > vMax && v0 <= vMax:
			return dist(v0, v1, acc) + constantDistance(vMax, hintDist), vMax
		default:
			d, top := freeExtraTimeDistance(v0, hintDist, acc, vMax)
			return d + dist(v0, v1, acc), top
		}
	default: // hintDist > 0, v0 > v1
		switch {
		case v0 <= vMax:
			d, top := freeExtraTimeDistance(v0, hintDist, acc, vMax)
			return d + dist(v0, v1, acc), top
		case v0 > vMax && v1 <= vMax:
			return dist(v0, v1, acc) + constantDistance(vMax, hintDist), vMax
		default:
			d, top := freeExtraTimeDistance(v1, hintDist, acc, vMax)
			return dist(v0, v1, acc) + d, top
		}
	}
}

func createFreeExtraTimeSegment(beforeSpeed, v, nextSpeed, t, acc, vMax float64) []segment {
	vMax *= sign(t)
	t = math.Abs(t)
	toMaxTime := 2 * math.Abs(vMax-v) / acc
	if toMaxTime < t {
		return []segment{
			{v: vMax, t: math.Abs(vMax-beforeSpeed) / acc},
			{v: vMax, t: t - toMaxTime},
			{v: nextSpeed, t: math.Abs(vMax-nextSpeed) / acc},
		}
	}
	var v1 float64
	if v > vMax {
		v1 = v - acc*t/2
	} else {
		v1 = v + acc*t/2
	}
	return []segment{
		{v: v1, t: math.Abs(beforeSpeed-v1) / acc},
		{v: nextSpeed, t: math.Abs(nextSpeed-v1) / acc},
	}
}

// Calculate1DTrajectory builds the piecewise-linear speed profile taking the
// axis from v0 to v1 while spending hintDist seconds of extra time beyond the
// direct ramp, capped at ±vMax (speedprofile.cpp::calculate1DTrajectory). The returned
// per-segment times are deltas; Calculate1DTrajectory converts them into the
// profile's cumulative-time representation.
func (p *SpeedProfile1D) Calculate1DTrajectory(v0, v1, hintDist, acc, vMax float64) {
	p.acc = acc
	first := segment{v: v0, t: 0}

	var rest []segment
	switch {
	case hintDist == 0:
		rest = []segment{{v: v1, t: math.Abs(v0-v1) / acc}}
	case hintDist < 0 && v0 <= v1:
		switch {
		case v0 >= -vMax:
			rest = createFreeExtraTimeSegment(v0, v0, v1, hintDist, acc, vMax)
		case v0 < -vMax && v1 >= -vMax:
			rest = []segment{
				{v: -vMax, t: math.Abs(v0+vMax) / acc},
				{v: -vMax, t: -hintDist},
				{v: v1, t: math.Abs(v1+vMax) / acc},
			}
		default:
			rest = createFreeExtraTimeSegment(v0, v1, v1, hintDist, acc, vMax)
		}
	case hintDist < 0 && v0 > v1:
		switch {
		case v1 >= -vMax:
			rest = createFreeExtraTimeSegment(v0, v1, v1, hintDist, acc, vMax)
		case v1 < -vMax && v0 >= -vMax:
			rest = []segment{
				{v: -vMax, t: math.Abs(v0+vMax) / acc},
				{v: -vMax, t: -hintDist},
				{v: v1, t: math.Abs(v1+vMax) / acc},
			}
		default:
			rest = createFreeExtraTimeSegment(v0, v0, v1, hintDist, acc, vMax)
		}
	case hintDist > 0 && v0 <= v1:
		switch {
		case v1 <= vMax:
			rest = createFreeExtraTimeSegment(v0, v1, v1, hintDist, acc, vMax)
		case v1 > vMax && v0 <= vMax:
			rest = []segment{
				{v: vMax, t: math.Abs(v0-vMax) / acc},
				{v: vMax, t: hintDist},
				{v: v1, t: math.Abs(v1-vMax) / acc},
			}
		default:
			rest = createFreeExtraTimeSegment(v0, v0, v1, hintDist, acc, vMax)
		}
	default: // hintDist > 0, v0 > v1
		switch {
		case v0 <= vMax:
			rest = createFreeExtraTimeSegment(v0, v0, v1, hintDist, acc, vMax)
		case v0 > vMax && v1 <= vMax:
			rest = []segment{
				{v: vMax, t: math.Abs(v0-vMax) / acc},
				{v: vMax, t: hintDist},
				{v: v1, t: math.Abs(v1-vMax) / acc},
			}
		default:
			rest = createFreeExtraTimeSegment(v0, v1, v1, hintDist, acc, vMax)
		}
	}

	p.profile = make([]segment, 0, len(rest)+1)
	p.profile = append(p.profile, first)
	cum := 0.0
	for _, s := range rest {
		cum += s.t
		p.profile = append(p.profile, segment{v: s.v, t: cum})
	}
}

// EndOffset is the net signed distance traveled over the whole profile
// (speedprofile.cpp::endOffset).
func (p *SpeedProfile1D) EndOffset() float64 {
	offset := 0.0
	for i := 0; i < len(p.profile)-1; i++ {
		offset += (p.profile[i].v + p.profile[i+1].v) * 0.5 * (p.profile[i+1].t - p.profile[i].t)
	}
	return offset
}

// Duration is the profile's total time.
func (p *SpeedProfile1D) Duration() float64 {
	if len(p.profile) == 0 {
		return 0
	}
	return p.profile[len(p.profile)-1].t
}

// OffsetAndSpeedForTime returns the position and speed at a point in time
// within the profile (speedprofile.cpp::offsetAndSpeedForTime).
func (p *SpeedProfile1D) OffsetAndSpeedForTime(time float64) (float64, float64) {
	offset := 0.0
	for i := 0; i < len(p.profile)-1; i++ {
		if p.profile[i+1].t >= time {
			diff := 1.0
			if p.profile[i+1].t != p.profile[i].t {
				diff = (time - p.profile[i].t) / (p.profile[i+1].t - p.profile[i].t)
			}
			speed := p.profile[i].v + diff*(p.profile[i+1].v-p.profile[i].v)
			partDist := (p.profile[i].v + speed) * 0.5 * (time - p.profile[i].t)
			return offset + partDist, speed
		}
		offset += (p.profile[i].v + p.profile[i+1].v) * 0.5 * (p.profile[i+1].t - p.profile[i].t)
	}
	return offset, p.profile[len(p.profile)-1].v
}
