// Package pose recovers head orientation from six facial landmarks by
// fitting a perspective projection of a fixed 3D face model.
package pose

import (
	"math"

	"github.com/focusguard/focusd/pkg/landmarks"
)

// Pose is a head orientation in degrees. Yaw is the left/right turn,
// pitch the up/down tilt, roll the in-plane tilt.
type Pose struct {
	Yaw   float64
	Pitch float64
	Roll  float64
}

// modelPoints is the generic 3D face model matching PnPIndices:
// nose tip, chin, eye outer corners, mouth corners. Units are
// arbitrary; only the projective fit matters.
var modelPoints = [6][3]float64{
	{0, 0, 0},
	{0, -330, -65},
	{-225, 170, -135},
	{225, 170, -135},
	{-150, -150, -125},
	{150, -150, -125},
}

// unwrapThreshold is the yaw magnitude beyond which the solver is
// assumed to have landed on the mirrored PnP solution.
const unwrapThreshold = 160

// Estimate solves the perspective-n-point problem for the six pixel
// points against the fixed model using a pinhole camera with focal
// length equal to the image width and the principal point at the image
// center. Returns false when the fit fails or the wrong number of
// points is supplied; callers treat that as "pose undetermined".
func Estimate(points []landmarks.Point, width, height int) (Pose, bool) {
	if len(points) != len(modelPoints) || width <= 0 || height <= 0 {
		return Pose{}, false
	}

	focal := float64(width)
	cx := float64(width) / 2
	cy := float64(height) / 2

	rvec, _, ok := solvePnP(points, focal, cx, cy)
	if !ok {
		return Pose{}, false
	}

	r := rodrigues(rvec)
	yaw, pitch, roll := eulerYXZ(r)
	yaw = UnwrapYaw(yaw)

	return Pose{Yaw: yaw, Pitch: pitch, Roll: roll}, true
}

// UnwrapYaw corrects the mirrored solution the iterative solver can
// settle on near head-on-back orientations: a yaw beyond 160° is
// folded back by 180° toward zero.
func UnwrapYaw(yaw float64) float64 {
	if math.Abs(yaw) > unwrapThreshold {
		if yaw > 0 {
			return yaw - 180
		}
		return yaw + 180
	}
	return yaw
}

// solvePnP minimizes reprojection error over rotation vector and
// translation with damped Gauss-Newton iterations and a numeric
// Jacobian. Six points and six parameters keep the normal equations
// tiny, so no external solver is needed.
func solvePnP(img []landmarks.Point, focal, cx, cy float64) (rvec, tvec [3]float64, ok bool) {
	// Start facing the camera at a plausible depth.
	p := [6]float64{0, 0, 0, 0, 0, 2 * focal}

	cost, valid := reprojectionCost(p, img, focal, cx, cy)
	if !valid {
		return rvec, tvec, false
	}

	// Scratch for the 12x6 Jacobian: x and y residuals per point.
	var cols [6][12]float64

	lambda := 1e-3
	for iter := 0; iter < 60; iter++ {
		var jtj [6][6]float64
		var jtr [6]float64

		res, resOK := residuals(p, img, focal, cx, cy)
		if !resOK {
			return rvec, tvec, false
		}

		// Forward-difference Jacobian.
		for c := 0; c < 6; c++ {
			step := 1e-6 * math.Max(1, math.Abs(p[c]))
			pp := p
			pp[c] += step
			resStep, stepOK := residuals(pp, img, focal, cx, cy)
			if !stepOK {
				return rvec, tvec, false
			}
			for r := 0; r < len(res); r++ {
				d := (resStep[r] - res[r]) / step
				jtr[c] += d * res[r]
				cols[c][r] = d
			}
		}
		for a := 0; a < 6; a++ {
			for b := 0; b < 6; b++ {
				var sum float64
				for r := 0; r < len(res); r++ {
					sum += cols[a][r] * cols[b][r]
				}
				jtj[a][b] = sum
			}
		}

		accepted := false
		for attempt := 0; attempt < 8; attempt++ {
			damped := jtj
			for d := 0; d < 6; d++ {
				damped[d][d] += lambda * (1 + jtj[d][d])
			}
			delta, solved := solve6(damped, jtr)
			if !solved {
				lambda *= 10
				continue
			}

			trial := p
			for i := range trial {
				trial[i] -= delta[i]
			}
			trialCost, trialOK := reprojectionCost(trial, img, focal, cx, cy)
			if trialOK && trialCost < cost {
				p = trial
				cost = trialCost
				lambda = math.Max(lambda/4, 1e-12)
				accepted = true
				break
			}
			lambda *= 10
		}
		if !accepted || cost < 1e-10 {
			break
		}
	}

	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return rvec, tvec, false
	}

	rvec = [3]float64{p[0], p[1], p[2]}
	tvec = [3]float64{p[3], p[4], p[5]}
	return rvec, tvec, true
}

func residuals(p [6]float64, img []landmarks.Point, focal, cx, cy float64) ([12]float64, bool) {
	var out [12]float64
	r := rodrigues([3]float64{p[0], p[1], p[2]})
	for i, m := range modelPoints {
		x := r[0][0]*m[0] + r[0][1]*m[1] + r[0][2]*m[2] + p[3]
		y := r[1][0]*m[0] + r[1][1]*m[1] + r[1][2]*m[2] + p[4]
		z := r[2][0]*m[0] + r[2][1]*m[1] + r[2][2]*m[2] + p[5]
		if z < 1e-6 {
			return out, false
		}
		u := focal*x/z + cx
		v := focal*y/z + cy
		out[2*i] = u - img[i].X
		out[2*i+1] = v - img[i].Y
	}
	return out, true
}

func reprojectionCost(p [6]float64, img []landmarks.Point, focal, cx, cy float64) (float64, bool) {
	res, ok := residuals(p, img, focal, cx, cy)
	if !ok {
		return 0, false
	}
	var cost float64
	for _, r := range res {
		cost += r * r
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, false
	}
	return cost, true
}

// rodrigues converts a rotation vector to a rotation matrix.
func rodrigues(r [3]float64) [3][3]float64 {
	theta := math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2])
	if theta < 1e-12 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	kx, ky, kz := r[0]/theta, r[1]/theta, r[2]/theta
	c := math.Cos(theta)
	s := math.Sin(theta)
	t := 1 - c

	return [3][3]float64{
		{c + kx*kx*t, kx*ky*t - kz*s, kx*kz*t + ky*s},
		{ky*kx*t + kz*s, c + ky*ky*t, ky*kz*t - kx*s},
		{kz*kx*t - ky*s, kz*ky*t + kx*s, c + kz*kz*t},
	}
}

// eulerYXZ decomposes a rotation matrix as an intrinsic Y-X-Z rotation
// and returns the angles in degrees: yaw about Y first, then pitch
// about X, then roll about Z.
func eulerYXZ(m [3][3]float64) (yaw, pitch, roll float64) {
	sinPitch := -m[1][2]
	if sinPitch > 1 {
		sinPitch = 1
	} else if sinPitch < -1 {
		sinPitch = -1
	}
	pitch = math.Asin(sinPitch)

	if math.Abs(sinPitch) < 0.999999 {
		yaw = math.Atan2(m[0][2], m[2][2])
		roll = math.Atan2(m[1][0], m[1][1])
	} else {
		// Gimbal lock: yaw and roll share an axis, attribute it to yaw.
		yaw = math.Atan2(m[0][1], m[0][0])
		roll = 0
	}

	const deg = 180 / math.Pi
	return yaw * deg, pitch * deg, roll * deg
}

// solve6 solves a 6x6 linear system by Gaussian elimination with
// partial pivoting.
func solve6(a [6][6]float64, b [6]float64) ([6]float64, bool) {
	var x [6]float64
	for col := 0; col < 6; col++ {
		pivot := col
		for row := col + 1; row < 6; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-14 {
			return x, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < 6; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < 6; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}
	for row := 5; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < 6; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}
